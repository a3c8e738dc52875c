package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	validate *validator.Validate
}

// NewValidator registers the custom tags used by request bodies.
func NewValidator() (*RequestValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("seatid", validateSeatID); err != nil {
		return nil, fmt.Errorf("register seatid validator: %w", err)
	}
	return &RequestValidator{validate: v}, nil
}

func (rv *RequestValidator) Validate(i any) error {
	return rv.validate.Struct(i)
}

func validateSeatID(fl validator.FieldLevel) bool {
	return model.IsSeatID(fl.Field().String())
}

var errBody = errors.New("invalid request body")

// bindJSON decodes the request body into dst, rejecting unknown fields and
// trailing data.  An empty body decodes as {} so missing fields are left
// to validation.
func bindJSON(c echo.Context, dst any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBody)
	}
	return nil
}

// bind decodes and validates a request, writing the 400 response itself
// when either step fails.  missing is the message used for validation
// failures other than a malformed seat id.
func bind(c echo.Context, dst any, missing string) (bool, error) {
	if err := bindJSON(c, dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err, missing)})
	}
	return true, nil
}

func validationMessage(err error, missing string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "seatid" {
				return msgInvalidSeatID
			}
		}
	}
	return missing
}
