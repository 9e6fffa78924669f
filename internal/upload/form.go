package upload

import (
	"fmt"
	"net/url"

	"github.com/go-playground/form"
)

var decoder = form.NewDecoder()

// DecodeForm copies multipart text values into dst using `form` struct tags.
func DecodeForm(dst interface{}, values map[string][]string) error {
	if err := decoder.Decode(dst, url.Values(values)); err != nil {
		if errs, ok := err.(form.DecodeErrors); ok {
			for field, fe := range errs {
				return fmt.Errorf("field %s: %v", field, fe)
			}
		}
		return err
	}
	return nil
}
