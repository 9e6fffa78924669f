// Package identity reads the authenticated caller from the JWT stored by the auth middleware.
package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LocalsKey is where the JWT middleware keeps the parsed token.
const LocalsKey = "user"

var ErrNoIdentity = errors.New("no authenticated user in context")

// Claims returns the map claims of the request's access token.
func Claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals(LocalsKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoIdentity
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := Claims(c)
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	return uuid.Parse(sub)
}

func GetEmail(c *fiber.Ctx) string {
	claims, err := Claims(c)
	if err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

func GetRole(c *fiber.Ctx) string {
	claims, err := Claims(c)
	if err != nil {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}
