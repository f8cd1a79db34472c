package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"catalog-admin/internal/apperror"

	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithErrorDetails(w, statusCode, message, nil)
}

func respondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]any) {
	RespondWithJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// StatusFor maps an error from the catalog layer onto an HTTP status
func StatusFor(err error) int {
	var (
		formErr     *apperror.FormValidationError
		authErr     *apperror.AuthError
		notFoundErr *apperror.NotFoundError
		reqErr      *apperror.RequestError
	)

	switch {
	case errors.As(err, &formErr):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrNoConnection):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &reqErr) && reqErr.Status >= 400 && reqErr.Status < 500:
		return reqErr.Status
	case errors.As(err, &reqErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithAppError answers with the status StatusFor picks and a
// structured body. Field errors are listed under details.fields.
func RespondWithAppError(w http.ResponseWriter, err error) {
	var formErr *apperror.FormValidationError
	if errors.As(err, &formErr) {
		respondWithErrorDetails(w, http.StatusBadRequest, formErr.Message, map[string]any{"fields": formErr.Fields})
		return
	}
	RespondWithError(w, StatusFor(err), apperror.Message(err))
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					if WantsJSON(r) {
						RespondWithError(w, http.StatusInternalServerError, "internal server error")
						return
					}
					http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
