package handlers

import (
	"time"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/models"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/asphalt-aid/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListReports supports ?status=&report_type=&severity=&created_after=&created_before=&q=&limit=&offset=
func (h *AdminHandler) ListReports(c *fiber.Ctx) error {
	filter := repository.ReportFilter{
		Status:     models.ReportStatus(c.Query("status")),
		ReportType: models.ReportType(c.Query("report_type")),
		Query:      c.Query("q"),
		Limit:      c.QueryInt("limit", repository.DefaultPageSize),
		Offset:     c.QueryInt("offset", 0),
	}
	if s := c.Query("severity"); s != "" {
		severity, err := repository.ParseSeverity(s)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		filter.Severity = severity
	}
	var err error
	if filter.CreatedAfter, err = parseTimeParam(c.Query("created_after"), false); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "created_after must be a date (YYYY-MM-DD) or RFC3339 time")
	}
	if filter.CreatedBefore, err = parseTimeParam(c.Query("created_before"), true); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "created_before must be a date (YYYY-MM-DD) or RFC3339 time")
	}

	reports, total, err := h.adminService.Search(c.UserContext(), filter)
	if err != nil {
		return serviceError(c, err)
	}

	limit, offset := repository.ClampPage(filter.Limit, filter.Offset)
	return c.JSON(dto.AdminReportListResponse{
		Count:   total,
		Limit:   limit,
		Offset:  offset,
		Reports: dto.NewReportResponses(reports),
	})
}

// parseTimeParam accepts a bare date or an RFC3339 timestamp. A bare date used as an
// upper bound covers the whole day.
func parseTimeParam(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (h *AdminHandler) GetReport(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	}

	report, err := h.adminService.Get(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.ReportEnvelope{
		Detail: "Report retrieved successfully",
		Report: dto.NewReportResponse(report),
	})
}

func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	}

	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}
	if errs := dto.Validate(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
			Error: true, Message: "Validation failed", Errors: errs,
		})
	}

	report, err := h.adminService.ChangeStatus(c.UserContext(), id, req.Status, req.AdminNote)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.ReportEnvelope{
		Detail: "Report status updated successfully",
		Report: dto.NewReportResponse(report),
	})
}

func (h *AdminHandler) Analyze(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	}

	job, err := h.adminService.RequestAnalysis(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.JobAcceptedResponse{
		Detail: "Severity analysis queued",
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

func (h *AdminHandler) Job(c *fiber.Ctx) error {
	job, err := h.adminService.Job(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(job)
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.adminService.Stats(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(stats)
}
