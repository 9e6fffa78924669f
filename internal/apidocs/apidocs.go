// Package apidocs embeds the API description and serves it with Swagger UI.
package apidocs

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
)

//go:embed swagger.json
var document []byte

// UIPath is where Swagger UI is mounted; the raw document sits next to it.
const (
	UIPath       = "/docs"
	DocumentPath = "/docs/swagger.json"
	OpenAPI3Path = "/docs/openapi3.json"
)

// Document returns the embedded Swagger 2.0 document.
func Document() []byte {
	return document
}

// OpenAPI3 converts the embedded document to OpenAPI 3 and validates it.
func OpenAPI3(ctx context.Context) (*openapi3.T, error) {
	var doc2 openapi2.T
	if err := json.Unmarshal(document, &doc2); err != nil {
		return nil, fmt.Errorf("parse swagger document: %w", err)
	}
	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("convert to openapi 3: %w", err)
	}
	if err := doc3.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi 3 document: %w", err)
	}
	return doc3, nil
}

// Register mounts Swagger UI at /docs and the OpenAPI 3 rendering at /docs/openapi3.json.
func Register(app *fiber.App) error {
	doc3, err := OpenAPI3(context.Background())
	if err != nil {
		return err
	}
	v3, err := json.Marshal(doc3)
	if err != nil {
		return fmt.Errorf("encode openapi 3 document: %w", err)
	}

	app.Get(OpenAPI3Path, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(v3)
	})
	app.Use(swagger.New(swagger.Config{
		BasePath:    "/",
		FilePath:    "./docs/swagger.json",
		FileContent: document,
		Path:        "docs",
		Title:       "Asphalt Aid API",
	}))
	return nil
}
