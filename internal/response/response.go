// Package response writes JSON bodies and classified error envelopes.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err as an envelope. Internal causes are logged, not returned.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	e := apperr.From(err)
	status := e.HTTPStatus()
	reqID := middleware.GetReqID(r.Context())

	if logger != nil && status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", reqID),
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
	}

	JSON(w, status, errorEnvelope{
		Error:     errorBody{Code: e.Code(), Message: e.Message},
		RequestID: reqID,
	})
}
