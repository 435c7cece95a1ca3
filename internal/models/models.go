package models

import "time"

type User struct {
	ID            string     `db:"id" json:"id"` // identity provider subject (fid)
	Username      *string    `db:"username" json:"username,omitempty"`
	DisplayName   *string    `db:"display_name" json:"display_name,omitempty"`
	PfpURL        *string    `db:"pfp_url" json:"pfp_url,omitempty"`
	WalletAddress *string    `db:"wallet_address" json:"wallet_address,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin     time.Time  `db:"last_login" json:"last_login"`
	DeactivatedAt *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
}

// UserUpdate carries optional profile changes; nil fields are left untouched.
type UserUpdate struct {
	Username      *string `json:"username"`
	DisplayName   *string `json:"display_name"`
	PfpURL        *string `json:"pfp_url"`
	WalletAddress *string `json:"wallet_address"`
}

type PromptType string

const (
	PromptText         PromptType = "text"
	PromptVisual       PromptType = "visual"
	PromptIdea         PromptType = "idea"
	PromptMicroFiction PromptType = "micro_fiction"
)

func (t PromptType) Valid() bool {
	switch t {
	case PromptText, PromptVisual, PromptIdea, PromptMicroFiction:
		return true
	}
	return false
}

type DailyPrompt struct {
	ID                   string     `db:"id" json:"id"`
	Title                string     `db:"title" json:"title"`
	Text                 string     `db:"prompt_text" json:"description"`
	Type                 PromptType `db:"prompt_type" json:"prompt_type"`
	Date                 time.Time  `db:"prompt_date" json:"date"`
	Active               bool       `db:"active" json:"active"`
	ActiveFrom           *time.Time `db:"active_from" json:"active_from,omitempty"`
	ActiveUntil          *time.Time `db:"active_until" json:"active_until,omitempty"`
	CreatedByUserID      *string    `db:"created_by_user_id" json:"created_by_user_id,omitempty"`
	IsCommunityGenerated bool       `db:"is_community_generated" json:"is_community_generated"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// ActiveAt reports whether the prompt accepts submissions at t.
func (p DailyPrompt) ActiveAt(t time.Time) bool {
	if !p.Active {
		return false
	}
	if p.ActiveFrom != nil && t.Before(*p.ActiveFrom) {
		return false
	}
	if p.ActiveUntil != nil && !t.Before(*p.ActiveUntil) {
		return false
	}
	return true
}

type Creation struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	PromptID    string    `db:"prompt_id" json:"prompt_id"`
	Content     string    `db:"content" json:"content"` // Encrypted in DB when private
	ContentType string    `db:"content_type" json:"content_type"`
	CreationDay time.Time `db:"creation_day" json:"creation_day"`
	IsValid     bool      `db:"is_valid" json:"is_valid"`
	IsPublic    bool      `db:"is_public" json:"is_public"`
	IsMinted    bool      `db:"is_minted" json:"is_minted"`
	CoinAddress *string   `db:"coin_address" json:"coin_address,omitempty"`
	MintTxHash  *string   `db:"mint_tx_hash" json:"mint_tx_hash,omitempty"`
	CoinsEarned int64     `db:"coins_earned" json:"coins_earned"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type StreakRecord struct {
	UserID           string     `db:"user_id" json:"user_id"`
	CurrentStreak    int        `db:"current_streak" json:"current_streak"`
	LongestStreak    int        `db:"longest_streak" json:"longest_streak"`
	LastCreationDate *time.Time `db:"last_creation_date" json:"last_creation_date,omitempty"`
	StreakStartDate  *time.Time `db:"streak_start_date" json:"streak_start_date,omitempty"`
	TotalCreations   int        `db:"total_creations" json:"total_creations"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

type TransactionType string

const (
	TxEarned TransactionType = "earned"
	TxSpent  TransactionType = "spent"
	TxBonus  TransactionType = "bonus"
)

// LedgerEntry is an immutable token transaction. Amount is signed.
type LedgerEntry struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Type        TransactionType `db:"transaction_type" json:"transaction_type"`
	Amount      int64           `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	CreationID  *string         `db:"creation_id" json:"creation_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type LeaderboardBy string

const (
	ByStreak    LeaderboardBy = "streak"
	ByTokens    LeaderboardBy = "tokens"
	ByCreations LeaderboardBy = "creations"
)

type LeaderboardRow struct {
	Rank           int     `db:"-" json:"rank"`
	UserID         string  `db:"user_id" json:"user_id"`
	Username       *string `db:"username" json:"username,omitempty"`
	DisplayName    *string `db:"display_name" json:"display_name,omitempty"`
	PfpURL         *string `db:"pfp_url" json:"pfp_url,omitempty"`
	CurrentStreak  int     `db:"current_streak" json:"current_streak"`
	TotalTokens    int64   `db:"total_tokens" json:"total_tokens"`
	TotalCreations int     `db:"total_creations" json:"total_creations"`
}
