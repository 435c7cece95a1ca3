package handlers

import (
	"strconv"
	"time"

	"dailymint/internal/models"
)

const dateLayout = "2006-01-02"

// CreationDTO renders the creation day as a date-only string.
type CreationDTO struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	PromptID    string  `json:"prompt_id"`
	Content     string  `json:"content"`
	ContentType string  `json:"content_type"`
	CreationDay string  `json:"creation_day"`
	IsPublic    bool    `json:"is_public"`
	IsMinted    bool    `json:"is_minted"`
	CoinAddress *string `json:"coin_address,omitempty"`
	MintTxHash  *string `json:"mint_tx_hash,omitempty"`
	CoinsEarned int64   `json:"coins_earned"`
	CreatedAt   string  `json:"created_at"`
}

type StreakDTO struct {
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	TotalCreations   int     `json:"total_creations"`
	LastCreationDate *string `json:"last_creation_date,omitempty"`
	StreakStartDate  *string `json:"streak_start_date,omitempty"`
}

type UserDTO struct {
	ID            string  `json:"id"`
	Username      *string `json:"username,omitempty"`
	DisplayName   *string `json:"display_name,omitempty"`
	PfpURL        *string `json:"pfp_url,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
	CreatedAt     string  `json:"created_at"`
	LastLogin     string  `json:"last_login"`
}

func toDateStringPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func ToCreationDTO(c models.Creation) CreationDTO {
	return CreationDTO{
		ID:          c.ID,
		UserID:      c.UserID,
		PromptID:    c.PromptID,
		Content:     c.Content,
		ContentType: c.ContentType,
		CreationDay: c.CreationDay.Format(dateLayout),
		IsPublic:    c.IsPublic,
		IsMinted:    c.IsMinted,
		CoinAddress: c.CoinAddress,
		MintTxHash:  c.MintTxHash,
		CoinsEarned: c.CoinsEarned,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ToStreakDTO(s models.StreakRecord) StreakDTO {
	return StreakDTO{
		CurrentStreak:    s.CurrentStreak,
		LongestStreak:    s.LongestStreak,
		TotalCreations:   s.TotalCreations,
		LastCreationDate: toDateStringPtr(s.LastCreationDate),
		StreakStartDate:  toDateStringPtr(s.StreakStartDate),
	}
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		PfpURL:        u.PfpURL,
		WalletAddress: u.WalletAddress,
		CreatedAt:     u.CreatedAt.UTC().Format(time.RFC3339),
		LastLogin:     u.LastLogin.UTC().Format(time.RFC3339),
	}
}

// queryLimit parses ?limit=, clamped to [1, max].
func queryLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
