package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
	mw "dailymint/internal/middleware"
	"dailymint/internal/response"
	"dailymint/internal/services"
)

type PromptHandler struct {
	prompts *services.PromptService
	logger  *zap.Logger
}

func NewPromptHandler(prompts *services.PromptService, logger *zap.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

// Active returns today's prompt, 404 when none is active.
func (h *PromptHandler) Active(w http.ResponseWriter, r *http.Request) {
	p, err := h.prompts.Active(r.Context())
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Create stores a community prompt. Only admins may activate it; prompts
// from everyone else are stored inactive.
func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body services.NewPrompt
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, h.logger, apperr.Validation("invalid body"))
		return
	}
	if !mw.IsAdmin(r.Context()) {
		if body.Activate != nil && *body.Activate {
			response.Error(w, r, h.logger, apperr.Forbidden("only admins can activate prompts"))
			return
		}
		inactive := false
		body.Activate = &inactive
	}
	p, err := h.prompts.Create(r.Context(), mw.UserID(r.Context()), body)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, p)
}

// Generate asks the LLM for a prompt and activates it.
func (h *PromptHandler) Generate(w http.ResponseWriter, r *http.Request) {
	p, err := h.prompts.Rotate(r.Context())
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, p)
}

func (h *PromptHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.prompts.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
