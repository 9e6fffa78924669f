package handlers

import (
	"errors"
	"log/slog"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/services"
	"github.com/asphalt-aid/backend/internal/upload"
	"github.com/gofiber/fiber/v2"
)

// sentinelStatus maps service errors to their HTTP status and client-facing message.
var sentinelStatus = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrMissingFields, fiber.StatusBadRequest, "All fields are required"},
	{services.ErrPasswordMismatch, fiber.StatusBadRequest, "Passwords do not match"},
	{services.ErrUsernameTaken, fiber.StatusBadRequest, "Username already exists"},
	{services.ErrEmailTaken, fiber.StatusBadRequest, "Email already exists"},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "Invalid credentials"},
	{services.ErrInvalidToken, fiber.StatusUnauthorized, "Invalid or expired refresh token"},
	{services.ErrUserNotFound, fiber.StatusNotFound, "User not found"},
	{services.ErrWrongPassword, fiber.StatusBadRequest, "Current password is incorrect."},
	{services.ErrReportNotFound, fiber.StatusNotFound, "Report not found"},
	{services.ErrNoImage, fiber.StatusBadRequest, "Report has no image"},
	{services.ErrUnknownStatus, fiber.StatusBadRequest, "Unknown status"},
	{services.ErrSameStatus, fiber.StatusConflict, "Report already has this status"},
	{services.ErrIllegalTransition, fiber.StatusConflict, "Status transition not allowed"},
	{services.ErrReportClosed, fiber.StatusConflict, "Report is already closed"},
	{services.ErrJobNotFound, fiber.StatusNotFound, "Job not found"},
	{services.ErrQueueUnavailable, fiber.StatusServiceUnavailable, "Background analysis is unavailable"},
	{upload.ErrTooLarge, fiber.StatusRequestEntityTooLarge, "Image exceeds the upload size limit"},
	{upload.ErrUnsupportedType, fiber.StatusBadRequest, "Unsupported image type"},
	{upload.ErrEmpty, fiber.StatusBadRequest, "Image is empty"},
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func invalidBody(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
}

func unauthorized(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
}

// serviceError renders err; anything unrecognised is logged and reported as a 500.
func serviceError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	var perr *services.PasswordPolicyError
	var cerr *services.ContentRejectedError
	var ierr *services.InvalidFieldsError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
			Error: true, Message: "Validation failed", Errors: verr.Fields,
		})
	case errors.As(err, &perr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
			Error: true, Message: perr.Error(), Errors: map[string][]string{"password": perr.Problems},
		})
	case errors.As(err, &cerr):
		return errorJSON(c, fiber.StatusBadRequest, cerr.Error())
	case errors.As(err, &ierr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.InvalidFieldsResponse{
			Error: true, Message: ierr.Error(), InvalidFields: ierr.Fields,
		})
	}

	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return errorJSON(c, s.status, s.message)
		}
	}

	slog.Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", requestID(c),
		"error", err,
	)
	return errorJSON(c, fiber.StatusInternalServerError, "Internal server error")
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
