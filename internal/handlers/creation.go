package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/coins"
	"dailymint/internal/metrics"
	mw "dailymint/internal/middleware"
	"dailymint/internal/models"
	"dailymint/internal/response"
	"dailymint/internal/services"
	"dailymint/internal/store"
	"dailymint/internal/submission"
)

type CreationHandler struct {
	subs      *submission.Orchestrator
	store     store.Store
	encSvc    *services.EncryptionService
	minter    coins.Minter
	chainID   int64
	publicURL string
	payout    string
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

type CreationConfig struct {
	ChainID       int64
	PublicURL     string
	PayoutAddress string
}

func NewCreationHandler(subs *submission.Orchestrator, s store.Store, encSvc *services.EncryptionService, minter coins.Minter, cfg CreationConfig, m *metrics.Metrics, logger *zap.Logger) *CreationHandler {
	if cfg.ChainID == 0 {
		cfg.ChainID = coins.DefaultChainID
	}
	return &CreationHandler{
		subs:      subs,
		store:     s,
		encSvc:    encSvc,
		minter:    minter,
		chainID:   cfg.ChainID,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		payout:    cfg.PayoutAddress,
		metrics:   m,
		logger:    logger,
	}
}

type submitBody struct {
	PromptID string `json:"prompt_id"`
	Content  string `json:"content"`
	IsPublic *bool  `json:"is_public"`
}

type submitResponse struct {
	Creation      CreationDTO `json:"creation"`
	Streak        StreakDTO   `json:"streak"`
	StreakOutcome string      `json:"streak_outcome"`
	Reward        int64       `json:"reward"`
	Balance       int64       `json:"balance"`
}

// Submit godoc
// @Summary Submit today's creation
// @Tags creations
// @Security BearerAuth
// @Success 201 {object} submitResponse
// @Failure 409 {object} object "Already submitted today"
// @Router /creations [post]
func (h *CreationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, h.logger, apperr.Validation("invalid body"))
		return
	}
	isPublic := true
	if body.IsPublic != nil {
		isPublic = *body.IsPublic
	}

	res, err := h.subs.Submit(r.Context(), submission.Request{
		UserID:   userID,
		PromptID: body.PromptID,
		Content:  body.Content,
		IsPublic: isPublic,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, submitResponse{
		Creation:      ToCreationDTO(res.Creation),
		Streak:        ToStreakDTO(res.Streak),
		StreakOutcome: string(res.Outcome),
		Reward:        res.Reward,
		Balance:       res.Balance,
	})
}

// List returns the caller's creations, newest first.
func (h *CreationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	limit := queryLimit(r.URL.Query().Get("limit"), 30, 100)

	items, err := h.store.ListCreations(r.Context(), userID, limit)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	out := make([]CreationDTO, 0, len(items))
	for _, c := range items {
		if err := h.encSvc.DecryptCreation(&c); err != nil {
			response.Error(w, r, h.logger, apperr.Internal("could not decrypt creation", err))
			return
		}
		out = append(out, ToCreationDTO(c))
	}
	response.JSON(w, http.StatusOK, out)
}

// Get returns a public creation, or a private one to its owner.
func (h *CreationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.load(r, mw.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, ToCreationDTO(c))
}

type tokenAttribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

type tokenMetadata struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	ExternalURL string           `json:"external_url,omitempty"`
	Content     string           `json:"content"`
	Attributes  []tokenAttribute `json:"attributes"`
}

// Metadata serves the coin URI document of a public creation.
func (h *CreationHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	c, err := h.load(r, "")
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	prompt, err := h.store.GetPrompt(r.Context(), c.PromptID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, h.metadataFor(c, prompt))
}

func (h *CreationHandler) metadataFor(c models.Creation, p models.DailyPrompt) tokenMetadata {
	day := c.CreationDay.Format(dateLayout)
	return tokenMetadata{
		Name:        fmt.Sprintf("%s (%s)", p.Title, day),
		Description: p.Text,
		ExternalURL: h.publicURL + "/api/creations/" + c.ID,
		Content:     c.Content,
		Attributes: []tokenAttribute{
			{TraitType: "Day", Value: day},
			{TraitType: "Prompt", Value: p.Title},
			{TraitType: "Prompt Type", Value: string(p.Type)},
			{TraitType: "Tokens Earned", Value: c.CoinsEarned},
		},
	}
}

// Mint deploys a coin for a public creation owned by the caller. A claim on
// the row keeps concurrent requests from deploying a second coin.
func (h *CreationHandler) Mint(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	c, err := h.load(r, userID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	switch {
	case c.UserID != userID:
		err = apperr.Forbidden("only the owner can mint a creation")
	case c.IsMinted:
		err = store.ErrAlreadyMinted
	case !c.IsPublic:
		err = apperr.Validation("only public creations can be minted")
	case h.minter == nil:
		err = apperr.Upstream("coin_api", errMintNotConfigured)
	}
	if err != nil {
		h.observeMint(err)
		response.Error(w, r, h.logger, err)
		return
	}

	if err := h.store.ClaimMint(r.Context(), c.ID); err != nil {
		h.observeMint(err)
		response.Error(w, r, h.logger, err)
		return
	}
	deployed := false
	defer func() {
		if deployed {
			return
		}
		// the request may already be canceled; the claim must still go
		if err := h.store.ReleaseMint(context.WithoutCancel(r.Context()), c.ID); err != nil {
			h.logger.Error("release mint claim", zap.String("creation_id", c.ID), zap.Error(err))
		}
	}()

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	recipient := h.payout
	if user.WalletAddress != nil && coins.IsAddress(*user.WalletAddress) {
		recipient = *user.WalletAddress
	}
	prompt, err := h.store.GetPrompt(r.Context(), c.PromptID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	meta := h.metadataFor(c, prompt)
	coin, err := h.minter.CreateCoin(r.Context(), coins.CoinRequest{
		Name:            meta.Name,
		Symbol:          coins.Symbol(prompt.Title),
		URI:             h.publicURL + "/api/creations/" + c.ID + "/metadata",
		PayoutRecipient: recipient,
		ChainID:         h.chainID,
	})
	if err != nil {
		h.observeMint(err)
		response.Error(w, r, h.logger, err)
		return
	}
	// a deployed coin keeps its claim even if recording it fails
	deployed = true

	var txHash *string
	if coin.TxHash != "" {
		txHash = &coin.TxHash
	}
	minted, err := h.store.MarkMinted(r.Context(), c.ID, coin.Address, txHash)
	if err != nil {
		h.logger.Error("coin deployed but creation not marked minted",
			zap.String("creation_id", c.ID), zap.String("coin_address", coin.Address), zap.Error(err))
		h.observeMint(err)
		response.Error(w, r, h.logger, err)
		return
	}
	h.observeMint(nil)
	h.logger.Info("creation minted", zap.String("creation_id", c.ID), zap.String("coin_address", coin.Address))
	response.JSON(w, http.StatusOK, ToCreationDTO(minted))
}

// load fetches the creation in the URL. Private creations are visible to
// their owner only and are decrypted for them.
func (h *CreationHandler) load(r *http.Request, viewer string) (models.Creation, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return models.Creation{}, apperr.Validation("creation id must be a uuid")
	}
	c, err := h.store.GetCreation(r.Context(), id)
	if err != nil {
		return models.Creation{}, err
	}
	if !c.IsPublic && (viewer == "" || c.UserID != viewer) {
		return models.Creation{}, store.ErrCreationNotFound
	}
	if err := h.encSvc.DecryptCreation(&c); err != nil {
		return models.Creation{}, apperr.Internal("could not decrypt creation", err)
	}
	return c, nil
}

func (h *CreationHandler) observeMint(err error) {
	if h.metrics == nil {
		return
	}
	outcome := "minted"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if apperr.KindOf(err) == apperr.KindUpstream {
			h.metrics.UpstreamErrors.WithLabelValues("coin_api").Inc()
		}
	}
	h.metrics.MintsTotal.WithLabelValues(outcome).Inc()
}
