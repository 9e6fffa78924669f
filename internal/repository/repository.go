package repository

import (
	"context"
	"errors"
	"time"

	"github.com/asphalt-aid/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a guarded update matched no row because the state changed underneath it.
	ErrConflict = errors.New("record changed concurrently")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// EmailExists ignores the user identified by except, so a user can keep their own address.
	EmailExists(ctx context.Context, email string, except uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	// Delete removes the user together with their reports and refresh tokens.
	Delete(ctx context.Context, id uuid.UUID) error
}

type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, hash string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// ReportFilter narrows the admin report listing. Zero values mean "any".
type ReportFilter struct {
	Status        models.ReportStatus
	ReportType    models.ReportType
	Severity      *int
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Query         string
	Limit         int
	Offset        int
}

type ReportStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByType     map[string]int64 `json:"by_type"`
	BySeverity map[string]int64 `json:"by_severity"`
}

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	// FindByID loads the report with its owner.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	FindOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Report, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Report, error)
	Search(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	// UpdateStatus only applies while the report is still in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReportStatus, note string) error
	SetSeverity(ctx context.Context, id uuid.UUID, severity int, analyzedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ImagesByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error)
	Stats(ctx context.Context) (*ReportStats, error)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
