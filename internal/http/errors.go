package http

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator"
	"github.com/robertarktes/event-registrations/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and applies its validate tags.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validationf("Invalid request body")
	}
	err := validate.StructCtx(r.Context(), dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Validationf("Invalid request body")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return domain.Validationf("%s is required", fe.Field())
	case "email":
		return domain.Validationf("%s must be a valid email", fe.Field())
	case "oneof":
		return domain.Validationf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return domain.Validationf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return domain.Validationf("%s is invalid", fe.Field())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError is the single place domain errors become HTTP statuses.
// Server-side failures are logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		loggerFrom(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrSignatureInvalid):
		return http.StatusBadRequest, "Invalid payment signature"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, domain.ErrNoToken):
		return http.StatusUnauthorized, "No token provided"
	case domain.IsUnauthenticated(err):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrSerializationFailure):
		return http.StatusConflict, "conflict, try again"
	case errors.Is(err, domain.ErrOrderCreationFailed):
		return http.StatusInternalServerError, "Failed to create order"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
