package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/identity"
	"github.com/asphalt-aid/backend/internal/services"
	"github.com/asphalt-aid/backend/internal/upload"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// imageField is the multipart field carrying the photo.
const imageField = "image"

type ReportHandler struct {
	reportService *services.ReportService
	maxUpload     int64
}

func NewReportHandler(reportService *services.ReportService, maxUpload int64) *ReportHandler {
	return &ReportHandler{reportService: reportService, maxUpload: maxUpload}
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	reports, err := h.reportService.List(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.ReportListResponse{
		Detail:  fmt.Sprintf("Retrieved %d reports successfully", len(reports)),
		Count:   len(reports),
		Reports: dto.NewReportResponses(reports),
	})
}

// Create accepts multipart (with an optional photo) or JSON.
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateReportRequest
	var img *upload.Image

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return invalidBody(c)
		}
		if err := upload.DecodeForm(&req, form.Value); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		if files := form.File[imageField]; len(files) > 0 {
			img, err = upload.ReadImage(files[0], h.maxUpload)
			if err != nil {
				return serviceError(c, err)
			}
		}
	} else if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	report, err := h.reportService.Create(c.UserContext(), userID, &req, img)
	if err != nil {
		return serviceError(c, err)
	}

	detail := "Report created successfully"
	if report.HasImage() {
		detail = "Report created successfully with AI severity analysis"
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReportEnvelope{
		Detail: detail,
		Report: dto.NewReportResponse(report),
	})
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	}

	report, err := h.reportService.Get(c.UserContext(), userID, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.ReportEnvelope{
		Detail: "Report retrieved successfully",
		Report: dto.NewReportResponse(report),
	})
}

// Update serves PUT (description, address and name all required) and PATCH.
func (h *ReportHandler) Update(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	}

	values, err := bodyValues(c)
	if err != nil {
		return invalidBody(c)
	}

	report, err := h.reportService.Update(c.UserContext(), userID, id, values, c.Method() == fiber.MethodPatch)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.ReportEnvelope{
		Detail: "Report updated successfully",
		Report: dto.NewReportResponse(report),
	})
}

func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	}

	if err := h.reportService.Delete(c.UserContext(), userID, id); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ReportHandler) Image(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	}

	rc, contentType, err := h.reportService.OpenImage(c.UserContext(), userID, id)
	if err != nil {
		if errors.Is(err, services.ErrNoImage) {
			return errorJSON(c, fiber.StatusNotFound, "Report has no image")
		}
		return serviceError(c, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return serviceError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(data)
}
