package services

import (
	"context"
	"errors"
	"strings"

	"github.com/asphalt-aid/backend/internal/jobqueue"
	"github.com/asphalt-aid/backend/internal/models"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/google/uuid"
)

// AnalysisQueue is the part of the job queue the admin API needs.
type AnalysisQueue interface {
	EnqueueAnalysis(ctx context.Context, reportID uuid.UUID) (*jobqueue.Job, error)
	Get(ctx context.Context, id string) (*jobqueue.Job, error)
	Stats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	Size(ctx context.Context) (int64, error)
	Delayed(ctx context.Context) (int64, error)
}

type AdminService struct {
	reports repository.ReportRepository
	queue   AnalysisQueue
}

func NewAdminService(reports repository.ReportRepository, queue AnalysisQueue) *AdminService {
	return &AdminService{reports: reports, queue: queue}
}

func (s *AdminService) Search(ctx context.Context, f repository.ReportFilter) ([]models.Report, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, newValidationError("status", "Unknown status.")
	}
	if f.ReportType != "" && !f.ReportType.Valid() {
		return nil, 0, newValidationError("report_type", "Unknown report type.")
	}
	if f.CreatedAfter != nil && f.CreatedBefore != nil && f.CreatedAfter.After(*f.CreatedBefore) {
		return nil, 0, newValidationError("created_after", "Must not be later than created_before.")
	}
	return s.reports.Search(ctx, f)
}

func (s *AdminService) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	return report, err
}

// ChangeStatus moves a report along the workflow. The write is guarded on the status
// that was read, so concurrent admins cannot skip a step.
func (s *AdminService) ChangeStatus(ctx context.Context, id uuid.UUID, status, note string) (*models.Report, error) {
	next := models.ReportStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, ErrUnknownStatus
	}

	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status == next {
		return nil, ErrSameStatus
	}
	if report.Status.Terminal() {
		return nil, ErrReportClosed
	}
	if !report.Status.CanTransitionTo(next) {
		return nil, ErrIllegalTransition
	}

	if err := s.reports.UpdateStatus(ctx, id, report.Status, next, strings.TrimSpace(note)); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrIllegalTransition
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *AdminService) RequestAnalysis(ctx context.Context, id uuid.UUID) (*jobqueue.Job, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.HasImage() {
		return nil, ErrNoImage
	}
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	return s.queue.EnqueueAnalysis(ctx, report.ID)
}

func (s *AdminService) Job(ctx context.Context, id string) (*jobqueue.Job, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	job, err := s.queue.Get(ctx, id)
	if errors.Is(err, jobqueue.ErrJobNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

type AdminStats struct {
	Reports *repository.ReportStats      `json:"reports"`
	Jobs    map[jobqueue.JobStatus]int64 `json:"jobs,omitempty"`
	Queued  int64                        `json:"queued"`
	Delayed int64                        `json:"delayed"`
}

func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	reports, err := s.reports.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := &AdminStats{Reports: reports}
	if s.queue != nil {
		if jobs, err := s.queue.Stats(ctx); err == nil {
			out.Jobs = jobs
		}
		if n, err := s.queue.Size(ctx); err == nil {
			out.Queued = n
		}
		if n, err := s.queue.Delayed(ctx); err == nil {
			out.Delayed = n
		}
	}
	return out, nil
}
