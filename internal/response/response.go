// Package response writes the uniform JSON envelope returned by every endpoint.
package response

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/logging"
)

// Envelope wraps successful responses.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// ErrorEnvelope wraps failed responses.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

// Success writes a success envelope.
func Success(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	JSON(ctx, w, status, Envelope{
		StatusCode: status,
		Success:    status < http.StatusBadRequest,
		Message:    message,
		Data:       data,
	})
}

// Error writes the error envelope for err. Errors outside the apperr taxonomy
// are reported as a generic 500.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr == nil {
		appErr = apperr.Internal("internal server error", nil)
	}

	logger := logging.FromContext(ctx)
	if appErr.Err != nil {
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("request error", "kind", appErr.Kind, "message", appErr.Message, "error", appErr.Err)
		} else {
			logger.Warn("request error", "kind", appErr.Kind, "message", appErr.Message, "error", appErr.Err)
		}
	}

	details := appErr.Details
	if details == nil {
		details = []string{}
	}

	JSON(ctx, w, appErr.Status, ErrorEnvelope{
		StatusCode: appErr.Status,
		Success:    false,
		Message:    appErr.Message,
		Errors:     details,
	})
}

// JSON encodes payload with the given status.
func JSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status)
	}
}
