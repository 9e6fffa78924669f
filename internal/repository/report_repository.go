package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/asphalt-aid/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Preload("User").First(&report, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (r *reportRepository) FindOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&report).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (r *reportRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&reports).Error
	return reports, err
}

// ClampPage applies the default and maximum page size.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *reportRepository) Search(ctx context.Context, f ReportFilter) ([]models.Report, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Report{})
	if f.Status != "" {
		query = query.Where("reports.status = ?", f.Status)
	}
	if f.ReportType != "" {
		query = query.Where("reports.report_type = ?", f.ReportType)
	}
	if f.Severity != nil {
		query = query.Where("reports.severity = ?", *f.Severity)
	}
	if f.CreatedAfter != nil {
		query = query.Where("reports.created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		query = query.Where("reports.created_at <= ?", *f.CreatedBefore)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		query = query.
			Joins("LEFT JOIN users ON users.id = reports.user_id").
			Where("users.username ILIKE ? OR reports.description ILIKE ? OR reports.address ILIKE ? OR reports.name ILIKE ?",
				like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := ClampPage(f.Limit, f.Offset)
	var reports []models.Report
	err := query.
		Preload("User").
		Order("reports.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *reportRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReportStatus, note string) error {
	result := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"admin_note": note,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update report status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *reportRepository) SetSeverity(ctx context.Context, id uuid.UUID, severity int, analyzedAt time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{
		"severity":    severity,
		"analyzed_at": analyzedAt,
	})
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Report{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reportRepository) ImagesByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	var images []string
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("user_id = ? AND image <> ''", ownerID).
		Pluck("image", &images).Error
	return images, err
}

type groupCount struct {
	Key   string
	Count int64
}

func (r *reportRepository) Stats(ctx context.Context) (*ReportStats, error) {
	stats := &ReportStats{
		ByStatus:   map[string]int64{},
		ByType:     map[string]int64{},
		BySeverity: map[string]int64{},
	}

	groups := []struct {
		column string
		into   map[string]int64
	}{
		{"status", stats.ByStatus},
		{"report_type", stats.ByType},
		{"severity", stats.BySeverity},
	}
	for _, g := range groups {
		var rows []groupCount
		err := r.db.WithContext(ctx).Model(&models.Report{}).
			Select(g.column + "::text AS key, COUNT(*) AS count").
			Group(g.column).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("count reports by %s: %w", g.column, err)
		}
		for _, row := range rows {
			g.into[row.Key] = row.Count
			if g.column == "status" {
				stats.Total += row.Count
			}
		}
	}
	return stats, nil
}

// ParseSeverity accepts "0".."3"; anything else is rejected.
func ParseSeverity(s string) (*int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !models.ValidSeverity(n) {
		return nil, fmt.Errorf("severity must be between 0 and 3")
	}
	return &n, nil
}
