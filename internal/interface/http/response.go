package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSES
// ══════════════════════════════════════════════════════════════════════════════

// errorBody is the only error shape the API returns.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes a flat JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status and writes {"error": message}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := messageFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps the shared error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case shared.IsUnauthorized(err):
		return http.StatusUnauthorized
	case shared.IsForbidden(err):
		return http.StatusForbidden
	case shared.IsNotFound(err):
		return http.StatusNotFound
	case shared.IsValidation(err):
		return http.StatusBadRequest
	case shared.IsRateLimited(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// messageFor prefers the domain message. Other errors are reported as-is.
func messageFor(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	if err == nil {
		return "Unknown error"
	}
	return err.Error()
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUESTS
// ══════════════════════════════════════════════════════════════════════════════

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeOptional decodes a JSON body when one is present and validates it.
func decodeOptional(r *http.Request, dst any) error {
	if r.Body != nil && r.ContentLength != 0 {
		err := json.NewDecoder(r.Body).Decode(dst)
		if err != nil && !errors.Is(err, io.EOF) {
			return shared.WrapError("http", "Decode", shared.ErrInvalidInput, "Invalid JSON body", err)
		}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return shared.WrapError("http", "Validate", shared.ErrValidation,
				"Invalid "+fe.Field()+": failed "+fe.Tag(), err)
		}
		return shared.WrapError("http", "Validate", shared.ErrValidation, "Invalid request", err)
	}
	return nil
}

// intParam returns the query parameter as an int, or 0 when absent or invalid.
func intParam(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// flagParam reads "1" or "true" as set.
func flagParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || strings.EqualFold(v, "true")
}
