package handlers_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestProfile(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")
	s.signup(t, "bob")

	res := s.do(t, "GET", "/api/profile", alice.access, nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "alice", res.body["username"])
	assert.Contains(t, res.body, "date_joined")

	res = s.do(t, "PUT", "/api/profile/update", alice.access, map[string]string{"first_name": "Al"})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Contains(t, res.body["errors"], "email")

	res = s.do(t, "PATCH", "/api/profile/update", alice.access, map[string]string{"last_name": "Smith"})
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "Smith", res.body["last_name"])

	res = s.do(t, "PATCH", "/api/profile/update", alice.access, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "This email is already in use.", res.body["message"])

	res = s.do(t, "PUT", "/api/profile/update", alice.access, map[string]string{
		"email": "alice@example.com", "first_name": "Alice", "last_name": "Jones",
	})
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "Jones", res.body["last_name"])
}

func TestChangePassword(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")

	res := s.do(t, "POST", "/api/change-password", alice.access, map[string]string{
		"current_password": "wrong", "new_password": "Fresh-Tarmac-77", "confirm_password": "Fresh-Tarmac-77",
	})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "Current password is incorrect.", res.body["message"])

	res = s.do(t, "POST", "/api/change-password", alice.access, map[string]string{
		"current_password": password, "new_password": "Fresh-Tarmac-77", "confirm_password": "Fresh-Tarmac-70",
	})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "New passwords do not match.", res.body["message"])

	res = s.do(t, "POST", "/api/change-password", alice.access, map[string]string{
		"current_password": password, "new_password": "Fresh-Tarmac-77", "confirm_password": "Fresh-Tarmac-77",
	})
	assert.Equal(t, fiber.StatusOK, res.status)

	res = s.do(t, "POST", "/api/auth/refresh", "", map[string]string{"refresh_token": alice.refresh})
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	res = s.do(t, "POST", "/api/auth/signin", "", map[string]string{"username": "alice", "password": "Fresh-Tarmac-77"})
	assert.Equal(t, fiber.StatusOK, res.status)
}

func TestDeleteAccount(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")

	res := s.do(t, "DELETE", "/api/profile", alice.access, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "Password is required", res.body["message"])

	res = s.do(t, "DELETE", "/api/profile", alice.access, map[string]string{"password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	res = s.do(t, "DELETE", "/api/profile", alice.access, map[string]string{"password": password})
	assert.Equal(t, fiber.StatusOK, res.status)

	res = s.do(t, "GET", "/api/profile", alice.access, nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)
}
