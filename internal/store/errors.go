package store

import "dailymint/internal/apperr"

var (
	ErrUserNotFound     = apperr.NotFound("user")
	ErrPromptNotFound   = apperr.NotFound("prompt")
	ErrCreationNotFound = apperr.NotFound("creation")
	ErrAlreadyMinted    = apperr.Conflict("creation already minted")
	ErrMintInProgress   = apperr.Conflict("creation is being minted")
	// ErrDuplicateDay is returned when a second valid creation is inserted for the same user and day.
	ErrDuplicateDay = apperr.DuplicateSubmission("a creation was already submitted today")
	// ErrEntryUserMismatch is returned when a transaction is asked to write another user's ledger entry.
	ErrEntryUserMismatch = apperr.Internal("ledger entry belongs to another user", nil)
)
