package services

import (
	"dailymint/internal/crypto"
	"dailymint/internal/models"
)

// EncryptionService seals the content of private creations at rest.
// A nil sealer leaves content untouched.
type EncryptionService struct {
	sealer *crypto.Sealer
}

func NewEncryptionService(sealer *crypto.Sealer) *EncryptionService {
	return &EncryptionService{sealer: sealer}
}

// NewEncryptionServiceFromKey builds the service from a base64 key; an empty key disables sealing.
func NewEncryptionServiceFromKey(encodedKey string) (*EncryptionService, error) {
	if encodedKey == "" {
		return NewEncryptionService(nil), nil
	}
	s, err := crypto.NewSealerFromBase64(encodedKey)
	if err != nil {
		return nil, err
	}
	return NewEncryptionService(s), nil
}

// EncryptCreation seals the content of a private creation before it is stored.
func (s *EncryptionService) EncryptCreation(c *models.Creation) error {
	if s == nil || s.sealer == nil || c.IsPublic {
		return nil
	}
	sealed, err := s.sealer.Seal(c.Content)
	if err != nil {
		return err
	}
	c.Content = sealed
	return nil
}

// DecryptCreation opens the content of a creation read from the store.
// Public content is stored as written and is returned untouched.
func (s *EncryptionService) DecryptCreation(c *models.Creation) error {
	if s == nil || s.sealer == nil || c.IsPublic {
		return nil
	}
	plain, err := s.sealer.Open(c.Content)
	if err != nil {
		return err
	}
	c.Content = plain
	return nil
}
