package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"dailymint/internal/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type MetaHandler struct {
	db        Pinger
	publicURL string
	logger    *zap.Logger
}

func NewMetaHandler(db Pinger, publicURL string, logger *zap.Logger) *MetaHandler {
	return &MetaHandler{db: db, publicURL: strings.TrimRight(publicURL, "/"), logger: logger}
}

type manifest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	URL         string `json:"url"`
}

// Manifest serves the mini-app manifest.
func (h *MetaHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, manifest{
		Name:        "DailyMint",
		Description: "Create daily, build streaks, earn tokens",
		Icon:        h.publicURL + "/icon.png",
		URL:         h.publicURL,
	})
}

func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
