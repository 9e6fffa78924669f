package apidocs

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPI3DocumentIsValid(t *testing.T) {
	doc, err := OpenAPI3(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Asphalt Aid API", doc.Info.Title)
	for _, p := range []string{
		"/auth/signup", "/auth/signin", "/auth/refresh", "/auth/logout",
		"/profile", "/profile/update", "/change-password",
		"/reports", "/reports/{id}", "/reports/{id}/image",
		"/admin/reports", "/admin/reports/{id}", "/admin/reports/{id}/status",
		"/admin/reports/{id}/analyze", "/admin/jobs/{id}", "/admin/stats", "/health",
	} {
		assert.NotNil(t, doc.Paths.Find(p), p)
	}

	create := doc.Paths.Find("/reports").Post
	require.NotNil(t, create)
	require.NotNil(t, create.RequestBody)
	assert.NotNil(t, create.RequestBody.Value.Content.Get("multipart/form-data"))
}

func TestRegisterServesDocuments(t *testing.T) {
	app := fiber.New()
	require.NoError(t, Register(app))

	resp, err := app.Test(httptest.NewRequest("GET", OpenAPI3Path, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Contains(t, parsed["openapi"], "3.")

	resp, err = app.Test(httptest.NewRequest("GET", UIPath, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
