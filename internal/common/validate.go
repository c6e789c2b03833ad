package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// mobilePattern matches a ten digit Indian mobile number.
var mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	return v
}

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Validate runs struct tag validation and converts failures into an AppError
// carrying per-field details.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[lowerFirst(fe.Field())] = fe.Tag()
			}
			appErr := NewAppError(CodeValidationFailed, "request validation failed", http.StatusUnprocessableEntity, err)
			appErr.Details = details
			return appErr
		}
		return BadRequest("invalid request", err)
	}
	return nil
}

// DecodeJSON decodes the request body into dst and validates it.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("request body is required", err)
		}
		return BadRequest("invalid JSON body", err)
	}
	return Validate(dst)
}

// WriteAppError renders err when it is an AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := appErr.Code
	if code == "" {
		code = CodeInternal
	}
	JSONError(w, status, code, appErr.Message, appErr.Details)
	return true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
