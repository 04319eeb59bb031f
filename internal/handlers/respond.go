package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"katalog/internal/apperrors"
	"katalog/internal/flash"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// FieldError is one entry of a validation failure response.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

var validationMessages = map[string]string{
	"email.required":    "Email is required",
	"email.email":       "Invalid email",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"password.maxbytes": "Password must be at most 72 bytes",
	"name.required":     "Name is required",
	"name.max":          "Name must be at most 100 characters",
	"unit.required":     "Unit is required",
	"price.gte":         "Price must not be negative",
	"stock.gte":         "Stock must not be negative",
}

// newValidator reports fields by their form names and adds the maxbytes tag.
func newValidator() *validator.Validate {
	v := validator.New()
	// bcrypt limits input by bytes, not characters.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// responder holds what every handler needs to answer a request.
type responder struct {
	validate *validator.Validate
	flashes  flash.Store
	logger   *zap.Logger
}

func newResponder(flashes flash.Store, logger *zap.Logger) responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return responder{
		validate: newValidator(),
		flashes:  flashes,
		logger:   logger,
	}
}

// bind parses and validates the body into out. It writes the 400 response
// itself and returns false when the request is rejected.
func (r responder) bind(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		r.logger.Debug("error parsing request body", zap.String("path", c.Path()), zap.Error(err))
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg": "Invalid request body",
		})
	}

	if err := r.validate.Struct(out); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, r.fail(c, err)
		}
		fields := make([]FieldError, 0, len(validationErrors))
		for _, e := range validationErrors {
			msg, ok := validationMessages[e.Field()+"."+e.Tag()]
			if !ok {
				msg = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
			}
			fields = append(fields, FieldError{Field: e.Field(), Msg: msg})
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg":    "Validation failed",
			"errors": fields,
		})
	}
	return true, nil
}

// fail maps an error to its HTTP response.
func (r responder) fail(c *fiber.Ctx, err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindConflict:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"msg": apperrors.Message(err, "Bad request")})
	case apperrors.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"msg": apperrors.Message(err, "Not found")})
	case apperrors.KindAuth:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"msg": apperrors.ErrUnauthorized.Message})
	default:
		r.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"msg": "Internal server error"})
	}
}

// render answers a page route with its view model.
func (r responder) render(c *fiber.Ctx, view, title string, data interface{}) error {
	return c.JSON(fiber.Map{
		"view":    view,
		"title":   title,
		"data":    data,
		"message": r.popFlash(c),
	})
}

// redirectWithFlash stores msg and redirects to path carrying its key.
func (r responder) redirectWithFlash(c *fiber.Ctx, path string, msg flash.Message) error {
	key, err := r.flashes.Put(c.UserContext(), msg)
	if err != nil {
		r.logger.Warn("failed to store flash message", zap.Error(err))
		return c.Redirect(path)
	}
	return c.Redirect(path + "?" + flash.QueryParam + "=" + url.QueryEscape(key))
}

func (r responder) popFlash(c *fiber.Ctx) *flash.Message {
	key := c.Query(flash.QueryParam)
	if key == "" {
		return nil
	}
	msg, err := r.flashes.Pop(c.UserContext(), key)
	if err != nil {
		r.logger.Warn("failed to read flash message", zap.Error(err))
		return nil
	}
	return msg
}
