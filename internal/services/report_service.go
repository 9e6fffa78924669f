package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/jobqueue"
	"github.com/asphalt-aid/backend/internal/models"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/asphalt-aid/backend/internal/severity"
	"github.com/asphalt-aid/backend/internal/storage"
	"github.com/asphalt-aid/backend/internal/upload"
	"github.com/google/uuid"
)

// InvalidFieldsError lists request keys that may not be changed on a report.
type InvalidFieldsError struct {
	Fields []string
}

func (e *InvalidFieldsError) Error() string {
	return "Only " + strings.Join(dto.UpdatableReportFields, ", ") + " fields can be updated"
}

type ReportService struct {
	reports   repository.ReportRepository
	store     storage.Storage
	predictor severity.Predictor
	filter    *ContentFilter
	now       func() time.Time
}

func NewReportService(reports repository.ReportRepository, store storage.Storage, predictor severity.Predictor, filter *ContentFilter) *ReportService {
	return &ReportService{
		reports:   reports,
		store:     store,
		predictor: predictor,
		filter:    filter,
		now:       time.Now,
	}
}

func (s *ReportService) List(ctx context.Context, ownerID uuid.UUID) ([]models.Report, error) {
	return s.reports.ListByOwner(ctx, ownerID)
}

// Create stores a report. With a photo attached the severity is predicted before the
// row is written; a failed prediction keeps the default severity.
func (s *ReportService) Create(ctx context.Context, ownerID uuid.UUID, req *dto.CreateReportRequest, img *upload.Image) (*models.Report, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Address = strings.TrimSpace(req.Address)
	if errs := dto.Validate(req); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	if err := s.filter.CheckFields([][2]string{
		{"name", req.Name}, {"description", req.Description}, {"address", req.Address},
	}); err != nil {
		return nil, err
	}

	reportType := models.ReportType(req.ReportType)
	if reportType == "" {
		reportType = models.TypePothole
	}

	report := &models.Report{
		ID:          uuid.New(),
		UserID:      ownerID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Status:      models.StatusPending,
		Severity:    models.DefaultSeverity,
		ReportType:  reportType,
	}

	if img != nil {
		key := storage.ReportImageKey(s.now(), img.Filename)
		if err := s.store.Save(ctx, key, img.Data, img.ContentType); err != nil {
			return nil, fmt.Errorf("store report image: %w", err)
		}
		report.Image = key
		report.Latitude = img.Exif.Latitude
		report.Longitude = img.Exif.Longitude
		report.CapturedAt = img.Exif.CapturedAt

		pred := severity.Estimate(ctx, s.predictor, img.Data, "report_id", report.ID.String(), "user_id", ownerID.String())
		report.Severity = pred.Severity
		if pred.Class >= 0 {
			analyzed := s.now()
			report.AnalyzedAt = &analyzed
		}
	}

	if err := s.reports.Create(ctx, report); err != nil {
		if report.Image != "" {
			if derr := s.store.Delete(ctx, report.Image); derr != nil {
				slog.Warn("failed to remove orphaned image", "key", report.Image, "error", derr)
			}
		}
		return nil, err
	}

	slog.Info("report created", "report_id", report.ID.String(), "user_id", ownerID.String(),
		"severity", report.Severity, "has_image", report.HasImage())
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.FindOwned(ctx, id, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	return report, err
}

// Update applies description/address/name changes. Any other key is rejected; a full
// update (PUT) must carry all three.
func (s *ReportService) Update(ctx context.Context, ownerID, id uuid.UUID, values map[string]interface{}, partial bool) (*models.Report, error) {
	allowed := map[string]bool{}
	for _, f := range dto.UpdatableReportFields {
		allowed[f] = true
	}
	var invalid []string
	for k := range values {
		if !allowed[k] {
			invalid = append(invalid, k)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, &InvalidFieldsError{Fields: invalid}
	}

	problems := map[string][]string{}
	fields := map[string]interface{}{}
	var checks [][2]string
	for _, name := range dto.UpdatableReportFields {
		raw, ok := values[name]
		if !ok {
			if !partial {
				problems[name] = append(problems[name], "This field is required.")
			}
			continue
		}
		str, isString := raw.(string)
		if !isString {
			problems[name] = append(problems[name], "Not a valid string.")
			continue
		}
		str = strings.TrimSpace(str)
		if str == "" {
			problems[name] = append(problems[name], "This field may not be blank.")
			continue
		}
		fields[name] = str
		checks = append(checks, [2]string{name, str})
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Fields: problems}
	}

	report, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.filter.CheckFields(checks); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return report, nil
	}

	if err := s.reports.Update(ctx, report.ID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

func (s *ReportService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	report, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, report.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReportNotFound
		}
		return err
	}
	if report.HasImage() {
		if err := s.store.Delete(ctx, report.Image); err != nil {
			slog.Warn("failed to delete report image", "report_id", report.ID.String(), "key", report.Image, "error", err)
		}
	}
	return nil
}

// OpenImage streams the owner's photo together with its content type.
func (s *ReportService) OpenImage(ctx context.Context, ownerID, id uuid.UUID) (io.ReadCloser, string, error) {
	report, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, "", err
	}
	return s.openImage(ctx, report)
}

func (s *ReportService) openImage(ctx context.Context, report *models.Report) (io.ReadCloser, string, error) {
	if !report.HasImage() {
		return nil, "", ErrNoImage
	}
	rc, err := s.store.Open(ctx, report.Image)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrNoImage
	}
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(path.Ext(report.Image))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// Analyze re-runs severity inference on a stored photo and persists the result.
// As on creation, a failed prediction stores the default severity. Only loading
// the report or its photo can fail, and those errors are retried by the queue.
func (s *ReportService) Analyze(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	rc, _, err := s.openImage(ctx, report)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read report image: %w", err)
	}

	pred := severity.Estimate(ctx, s.predictor, data, "report_id", report.ID.String())

	analyzedAt := s.now()
	if err := s.reports.SetSeverity(ctx, report.ID, pred.Severity, analyzedAt); err != nil {
		return nil, err
	}
	slog.Info("report re-analyzed", "report_id", report.ID.String(), "class", pred.Label,
		"confidence", pred.Confidence, "previous_severity", report.Severity, "severity", pred.Severity,
		"model_ok", pred.Class >= 0)

	report.Severity = pred.Severity
	report.AnalyzedAt = &analyzedAt
	return report, nil
}

// HandleAnalyzeJob is the job queue entry point for analyze_report_image.
func (s *ReportService) HandleAnalyzeJob(ctx context.Context, job *jobqueue.Job) error {
	_, id, err := jobqueue.AnalyzePayloadFromMap(job.Payload)
	if err != nil {
		return jobqueue.Permanent(err)
	}

	_, err = s.Analyze(ctx, id)
	switch {
	case errors.Is(err, ErrNoImage):
		slog.Warn("skipping analysis, report has no image", "report_id", id.String(), "job_id", job.ID)
		return nil
	case errors.Is(err, ErrReportNotFound):
		return jobqueue.Permanent(err)
	case err != nil:
		slog.Error("report analysis failed", "report_id", id.String(), "job_id", job.ID, "error", err)
		return err
	}
	return nil
}
