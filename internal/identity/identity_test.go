package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityFromLocals(t *testing.T) {
	id := uuid.New()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, err := GetUserID(c)
		assert.ErrorIs(t, err, ErrNoIdentity)
		assert.Empty(t, GetRole(c))

		c.Locals(LocalsKey, &jwt.Token{Claims: jwt.MapClaims{
			"sub": id.String(), "email": "a@example.com", "role": "admin",
		}})
		got, err := GetUserID(c)
		assert.NoError(t, err)
		assert.Equal(t, id, got)
		assert.Equal(t, "a@example.com", GetEmail(c))
		assert.Equal(t, "admin", GetRole(c))
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
