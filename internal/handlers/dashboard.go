package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"dailymint/internal/apperr"
	mw "dailymint/internal/middleware"
	"dailymint/internal/models"
	"dailymint/internal/response"
	"dailymint/internal/store"
	"dailymint/internal/streak"
)

type DashboardHandler struct {
	streaks *streak.Ledger
	store   store.Store
	days    streak.Normalizer
	logger  *zap.Logger
}

func NewDashboardHandler(streaks *streak.Ledger, s store.Store, days streak.Normalizer, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{streaks: streaks, store: s, days: days, logger: logger}
}

type streakResponse struct {
	StreakDTO
	Today         string `json:"today"`
	HasTodayEntry bool   `json:"has_today_entry"`
	// AtRisk is set when yesterday was the last creation day, so today's
	// creation keeps the streak alive.
	AtRisk bool `json:"at_risk"`
}

// Streak returns the caller's streak as of the server's current day.
func (h *DashboardHandler) Streak(w http.ResponseWriter, r *http.Request) {
	rec, err := h.streaks.Get(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	today := h.days.Today()
	out := streakResponse{StreakDTO: ToStreakDTO(rec), Today: today.String()}
	if last, ok := streak.LastDay(rec); ok {
		out.HasTodayEntry = last == today
		out.AtRisk = last == today-1
		if last < today-1 {
			// the streak is already broken; the next creation restarts it
			out.CurrentStreak = 0
		}
	}
	response.JSON(w, http.StatusOK, out)
}

// Leaderboard ranks users by ?by=streak|tokens|creations.
func (h *DashboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	by := models.LeaderboardBy(r.URL.Query().Get("by"))
	switch by {
	case "":
		by = models.ByStreak
	case models.ByStreak, models.ByTokens, models.ByCreations:
	default:
		response.Error(w, r, h.logger, apperr.Validation("by must be one of streak, tokens, creations"))
		return
	}
	limit := queryLimit(r.URL.Query().Get("limit"), 10, 100)

	rows, err := h.store.Leaderboard(r.Context(), by, limit)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	if rows == nil {
		rows = []models.LeaderboardRow{}
	}
	response.JSON(w, http.StatusOK, rows)
}
