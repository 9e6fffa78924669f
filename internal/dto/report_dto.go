package dto

import (
	"time"

	"github.com/asphalt-aid/backend/internal/models"
	"github.com/google/uuid"
)

// CreateReportRequest lists the writable fields. Read-only keys such as
// status or severity are dropped during decoding.
type CreateReportRequest struct {
	Name        string `json:"name" form:"name" validate:"required,max=255"`
	Description string `json:"description" form:"description" validate:"required,max=5000"`
	Address     string `json:"address" form:"address" validate:"required,max=500"`
	ReportType  string `json:"report_type" form:"report_type" validate:"omitempty,oneof=pothole crack road_sink other"`
}

// UpdatableReportFields are the only keys accepted by PUT/PATCH on a report.
var UpdatableReportFields = []string{"description", "address", "name"}

type ReportResponse struct {
	ID              uuid.UUID           `json:"id"`
	User            uuid.UUID           `json:"user"`
	Username        string              `json:"username,omitempty"`
	Image           *string             `json:"image"`
	Description     string              `json:"description"`
	Name            string              `json:"name"`
	Address         string              `json:"address"`
	Status          models.ReportStatus `json:"status"`
	Severity        int                 `json:"severity"`
	SeverityDisplay string              `json:"severity_display"`
	ReportType      models.ReportType   `json:"report_type"`
	Latitude        *float64            `json:"latitude"`
	Longitude       *float64            `json:"longitude"`
	CapturedAt      *time.Time          `json:"captured_at"`
	AdminNote       string              `json:"admin_note,omitempty"`
	AnalyzedAt      *time.Time          `json:"analyzed_at"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewReportResponse renders a report; image is exposed as its download path.
func NewReportResponse(r *models.Report) ReportResponse {
	resp := ReportResponse{
		ID:              r.ID,
		User:            r.UserID,
		Description:     r.Description,
		Name:            r.Name,
		Address:         r.Address,
		Status:          r.Status,
		Severity:        r.Severity,
		SeverityDisplay: r.SeverityDisplay(),
		ReportType:      r.ReportType,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		CapturedAt:      r.CapturedAt,
		AdminNote:       r.AdminNote,
		AnalyzedAt:      r.AnalyzedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.HasImage() {
		url := "/api/reports/" + r.ID.String() + "/image"
		resp.Image = &url
	}
	if r.User != nil {
		resp.Username = r.User.Username
	}
	return resp
}

func NewReportResponses(reports []models.Report) []ReportResponse {
	out := make([]ReportResponse, len(reports))
	for i := range reports {
		out[i] = NewReportResponse(&reports[i])
	}
	return out
}

type ReportListResponse struct {
	Detail  string           `json:"detail"`
	Count   int              `json:"count"`
	Reports []ReportResponse `json:"reports"`
}

type ReportEnvelope struct {
	Detail string         `json:"detail"`
	Report ReportResponse `json:"report"`
}
