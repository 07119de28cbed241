// Package web is the read-only query surface over the store. It never
// triggers fetches; crawl cycles and the query service share nothing but
// the tables.
package web

import (
	"stockdata/errs"
	"stockdata/log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

const (
	ArgQuery = "query"
	ArgBody  = "body"
)

// VerifyArg parses request arguments into args and validates the struct
// tags. Parse and validation failures both map to 400.
func VerifyArg(c *fiber.Ctx, args interface{}, from string) error {
	var err error
	if from == ArgBody {
		err = c.BodyParser(args)
	} else {
		err = c.QueryParser(args)
	}
	if err != nil {
		return &fiber.Error{Code: fiber.StatusBadRequest, Message: "invalid args: " + err.Error()}
	}
	if err = validate.Struct(args); err != nil {
		return &fiber.Error{Code: fiber.StatusBadRequest, Message: err.Error()}
	}
	return nil
}

// ErrHandler maps errors onto the response contract: fiber errors keep
// their status, coded store errors become 500, anything else too.
func ErrHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	if e, ok := err.(*errs.Error); ok {
		log.Error("request failed", zap.String("path", c.Path()), zap.String("err", e.Short()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": e.Short()})
	}
	log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
