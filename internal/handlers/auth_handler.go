package handlers

import (
	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.authService.Signup(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Signin(c *fiber.Ctx) error {
	var req dto.SigninRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.authService.Signin(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}
	if req.RefreshToken == "" {
		return errorJSON(c, fiber.StatusBadRequest, "refresh_token is required")
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}
	if req.RefreshToken == "" {
		return errorJSON(c, fiber.StatusBadRequest, "refresh_token is required")
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.DetailResponse{Detail: "Logged out successfully"})
}
