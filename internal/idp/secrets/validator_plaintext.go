package secrets

import (
	"context"
	"crypto/subtle"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// PlainTextSecretValidator compares a shared secret credential against
// stored plaintext values. Constant-time even for plaintext so the two
// shared-secret validators leak the same amount of nothing.
type PlainTextSecretValidator struct{}

func (v *PlainTextSecretValidator) Validate(ctx context.Context, stored []domain.Secret, parsed domain.ParsedSecret) (bool, error) {
	if parsed.Type != domain.ParsedSecretTypeSharedSecret || parsed.Credential == "" {
		return false, nil
	}

	for _, s := range stored {
		if s.Type != domain.SecretTypeSharedSecret {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(s.Value), []byte(parsed.Credential)) == 1 {
			return true, nil
		}
	}

	return false, nil
}
