package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/coins"
	"dailymint/internal/ledger"
	mw "dailymint/internal/middleware"
	"dailymint/internal/models"
	"dailymint/internal/response"
)

type TokenHandler struct {
	ledger   *ledger.Ledger
	balances coins.BalanceReader
	logger   *zap.Logger
}

// NewTokenHandler wires the handler; balances may be nil when no chain RPC is configured.
func NewTokenHandler(l *ledger.Ledger, balances coins.BalanceReader, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{ledger: l, balances: balances, logger: logger}
}

type balanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// Balance returns the caller's ledger balance.
func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	bal, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, balanceResponse{UserID: userID, Balance: bal})
}

func (h *TokenHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r.URL.Query().Get("limit"), 50, 100)
	entries, err := h.ledger.History(r.Context(), mw.UserID(r.Context()), limit)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	response.JSON(w, http.StatusOK, entries)
}

type onChainBalanceResponse struct {
	Token    string `json:"token"`
	Holder   string `json:"holder"`
	Raw      string `json:"raw"`
	Balance  string `json:"balance"`
	Decimals int    `json:"decimals"`
}

// OnChainBalance reads balanceOf(address) of the coin contract in the URL.
func (h *TokenHandler) OnChainBalance(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		response.Error(w, r, h.logger, apperr.Upstream("chain_rpc", errChainNotConfigured))
		return
	}
	token := chi.URLParam(r, "address")
	holder := r.URL.Query().Get("address")
	if holder == "" {
		response.Error(w, r, h.logger, apperr.Validation("address query parameter is required"))
		return
	}
	bal, err := h.balances.BalanceOf(r.Context(), token, holder)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, onChainBalanceResponse{
		Token:    token,
		Holder:   holder,
		Raw:      bal.Shift(coins.TokenDecimals).StringFixed(0),
		Balance:  bal.String(),
		Decimals: coins.TokenDecimals,
	})
}
