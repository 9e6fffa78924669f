package handlers

import (
	"errors"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/identity"
	"github.com/asphalt-aid/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	userService *services.UserService
}

func NewProfileHandler(userService *services.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	user, err := h.userService.Profile(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewProfileResponse(user))
}

// Update serves PUT (all fields) and PATCH (any subset).
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	user, err := h.userService.UpdateProfile(c.UserContext(), userID, &req, c.Method() == fiber.MethodPatch)
	if errors.Is(err, services.ErrEmailTaken) {
		return errorJSON(c, fiber.StatusBadRequest, "This email is already in use.")
	}
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewProfileResponse(user))
}

func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	err = h.userService.ChangePassword(c.UserContext(), userID, &req)
	if errors.Is(err, services.ErrPasswordMismatch) {
		return errorJSON(c, fiber.StatusBadRequest, "New passwords do not match.")
	}
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.DetailResponse{Detail: "Password changed successfully"})
}

func (h *ProfileHandler) Delete(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.DeleteAccountRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	err = h.userService.DeleteAccount(c.UserContext(), userID, req.Password)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		return errorJSON(c, fiber.StatusBadRequest, "Password is required")
	case errors.Is(err, services.ErrInvalidCredentials):
		return errorJSON(c, fiber.StatusUnauthorized, "Incorrect password. Please try again.")
	case err != nil:
		return serviceError(c, err)
	}
	return c.JSON(dto.DetailResponse{Detail: "Account deleted successfully"})
}
