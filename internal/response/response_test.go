package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dailymint/internal/apperr"
)

func TestError_Envelope(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		logged  bool
	}{
		{"validation", apperr.Validation("content is empty"), http.StatusBadRequest, "40001", "content is empty", false},
		{"duplicate", apperr.DuplicateSubmission("already submitted"), http.StatusConflict, "40901", "already submitted", false},
		{"upstream", apperr.Upstream("chain_rpc", errors.New("dial tcp")), http.StatusBadGateway, "50201", "chain_rpc unavailable", true},
		{"unclassified", errors.New("pq: secret detail"), http.StatusInternalServerError, "50001", "internal server error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := logs.Len()
			r := httptest.NewRequest(http.MethodPost, "/api/creations", nil)
			r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, "req-1"))
			w := httptest.NewRecorder()

			Error(w, r, logger, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body errorEnvelope
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
			assert.Equal(t, "req-1", body.RequestID)
			assert.Equal(t, tt.logged, logs.Len() > before)
		})
	}
}
