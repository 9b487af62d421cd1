// Package httputil provides HTTP middleware and response helpers shared by all handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, contentType string, write func() error) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := write(); err != nil {
		slog.Error("failed to write response", "status", status, "error", err)
	}
}

// JSON writes data as the raw response body. A nil interface writes no body;
// pass a typed nil pointer to send a JSON null.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, "application/json", func() error {
		if data == nil {
			return nil
		}
		return json.NewEncoder(w).Encode(data)
	})
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, status int, text string) {
	writeJSON(w, status, "text/plain; charset=utf-8", func() error {
		_, err := w.Write([]byte(text))
		return err
	})
}

// Error writes the {"error": {"message": ...}} envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: errorDetail{Message: message}})
}

// ValidationError writes a 400 "validation error". Validator failures are
// reported per field, anything else (malformed JSON) as a plain details string.
func ValidationError(w http.ResponseWriter, err error) {
	detail := errorDetail{Message: "validation error", Details: err.Error()}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		detail.Details = fields
	}

	JSON(w, http.StatusBadRequest, errorBody{Error: detail})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fe.Tag()
	}
}

// Message writes the {"success": true, "message": ...} acknowledgement used by mutation endpoints.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, messageBody{Success: true, Message: message})
}
