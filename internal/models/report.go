package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusInProgress ReportStatus = "in_progress"
	StatusResolved   ReportStatus = "resolved"
	StatusRejected   ReportStatus = "rejected"
)

type ReportType string

const (
	TypePothole  ReportType = "pothole"
	TypeCrack    ReportType = "crack"
	TypeRoadSink ReportType = "road_sink"
	TypeOther    ReportType = "other"
)

const (
	SeverityNone   = 0
	SeverityLow    = 1
	SeverityMedium = 2
	SeverityHigh   = 3

	// DefaultSeverity is stored until a photo has been analysed, and whenever analysis fails.
	DefaultSeverity = SeverityLow
)

var severityLabels = map[int]string{
	SeverityNone:   "No severity - Normal road",
	SeverityLow:    "Low - Minor issue",
	SeverityMedium: "Medium - Moderate damage",
	SeverityHigh:   "High - Major damage",
}

// statusTransitions lists the statuses an admin may move a report to.
var statusTransitions = map[ReportStatus][]ReportStatus{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
	StatusResolved:   nil,
	StatusRejected:   nil,
}

// Report is a citizen road-damage observation. Severity is set by image
// analysis only and is never accepted from request bodies.
type Report struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"user"`
	Image       string       `gorm:"size:512" json:"image"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Address     string       `gorm:"type:text;not null" json:"address"`
	Status      ReportStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Severity    int          `gorm:"not null;default:1;check:severity >= 0 AND severity <= 3" json:"severity"`
	ReportType  ReportType   `gorm:"size:50;not null;default:'pothole';index" json:"report_type"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	CapturedAt  *time.Time   `json:"captured_at,omitempty"`
	AdminNote   string       `gorm:"size:1000" json:"admin_note,omitempty"`
	AnalyzedAt  *time.Time   `json:"analyzed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	User        *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}

func (r *Report) HasImage() bool {
	return r.Image != ""
}

func (r *Report) SeverityDisplay() string {
	return SeverityDisplay(r.Severity)
}

func (s ReportStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the workflow allows moving from s to next.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReportStatus) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

func (t ReportType) Valid() bool {
	switch t {
	case TypePothole, TypeCrack, TypeRoadSink, TypeOther:
		return true
	}
	return false
}

func ValidSeverity(s int) bool {
	return s >= SeverityNone && s <= SeverityHigh
}

// SeverityLabel is "" for values outside 0-3.
func SeverityLabel(s int) string {
	return severityLabels[s]
}

// SeverityDisplay renders a severity the way the admin list shows it, e.g. "3/3 - High - Major damage".
func SeverityDisplay(s int) string {
	label := SeverityLabel(s)
	if label == "" {
		return fmt.Sprintf("%d/3", s)
	}
	return fmt.Sprintf("%d/3 - %s", s, label)
}
