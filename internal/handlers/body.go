package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// parseBody decodes the request body into out. An empty body leaves out untouched.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 && !isMultipart(c) {
		return nil
	}
	return c.BodyParser(out)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

func isJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON)
}

// bodyValues returns the submitted keys as a map, from JSON, urlencoded or multipart bodies.
// Keeping raw keys lets callers reject fields they do not accept.
func bodyValues(c *fiber.Ctx) (map[string]interface{}, error) {
	values := map[string]interface{}{}
	switch {
	case isMultipart(c):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		for k, v := range form.Value {
			if len(v) > 0 {
				values[k] = v[0]
			}
		}
		for k := range form.File {
			values[k] = nil
		}
	case isJSON(c):
		if len(c.Body()) == 0 {
			return values, nil
		}
		if err := json.Unmarshal(c.Body(), &values); err != nil {
			return nil, err
		}
	default:
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			values[string(k)] = string(v)
		})
	}
	return values, nil
}
