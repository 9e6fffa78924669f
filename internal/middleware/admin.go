package middleware

import (
	"strings"

	"github.com/asphalt-aid/backend/internal/config"
	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/identity"
	"github.com/asphalt-aid/backend/internal/models"
	"github.com/asphalt-aid/backend/internal/permissions"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired resolves the caller's role and asks the RBAC policy whether it may
// reach the requested admin path. A caller is an admin when:
// 1. the X-Admin-Token header matches ADMIN_TOKEN
// 2. their email or id is listed in ADMIN_EMAILS / ADMIN_USER_IDS
// 3. their stored user row has the admin role
func AdminRequired(users repository.UserRepository, perms *permissions.Permissions, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		role := permissions.RoleUser

		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			role = permissions.RoleAdmin
		}

		userID, err := identity.GetUserID(c)
		if err != nil && role != permissions.RoleAdmin {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if role != permissions.RoleAdmin {
			email := identity.GetEmail(c)
			if containsFold(adminEmails, email) || contains(adminUserIDs, userID.String()) {
				role = permissions.RoleAdmin
			}
		}

		if role != permissions.RoleAdmin {
			user, err := users.FindByID(c.UserContext(), userID)
			if err == nil && user.Role == models.RoleAdmin {
				role = permissions.RoleAdmin
			}
		}

		if !perms.IsAuthorized(role, c.Path(), c.Method()) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		c.Locals("role", role)
		return c.Next()
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}

func containsFold(list []string, val string) bool {
	if val == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
