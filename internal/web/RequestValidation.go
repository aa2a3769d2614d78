// This file contains the actual validator implementation for incoming http requests.
//
// Field presence is declared with `validate` tags on the request structs in the common package.

package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ParseBody decodes the JSON body of c into req. An empty body, or one sent without a content type
// the parser understands, leaves req zeroed, so missing fields are reported by ValidateRequest
// rather than as a parse error.
func ParseBody(c *fiber.Ctx, req interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	err := c.BodyParser(req)
	if errors.Is(err, fiber.ErrUnprocessableEntity) {
		return nil
	}
	return err
}

// ValidateRequest checks the `validate` tags of a parsed request struct.
func ValidateRequest(req interface{}) error {
	return validate.Struct(req)
}
