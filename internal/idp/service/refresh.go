package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/idx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// RefreshTokenService issues and rotates refresh tokens per the client's
// usage (one-time vs reuse) and expiration (absolute vs sliding) policies.
type RefreshTokenService struct {
	store store.Store
}

func NewRefreshTokenService(st store.Store) *RefreshTokenService {
	return &RefreshTokenService{store: st}
}

// Create issues a fresh refresh token wrapping the access token snapshot
// and returns the raw handle. Only the handle's fingerprint is stored.
func (s *RefreshTokenService) Create(ctx context.Context, subject string, accessToken domain.Token, scopes []string, client *domain.Client) (string, error) {
	handle, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	lifetime := client.AbsoluteRefreshLifetime()
	if client.RefreshTokenExpiration == domain.RefreshTokenExpirationSliding {
		lifetime = min(client.SlidingRefreshLifetime(), client.AbsoluteRefreshLifetime())
	}

	rt := domain.RefreshToken{
		ID:          idx.New().String(),
		TokenHash:   cryptox.FingerprintToken(handle),
		ClientID:    client.ID,
		Subject:     subject,
		Scopes:      scopes,
		AccessToken: accessToken,
		CreatedAt:   time.Now().UTC(),
		Lifetime:    lifetime,
	}
	if err := s.store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Debug("refresh token issued",
		"client_id", client.ID, "subject", subject)
	return handle, nil
}

// Update applies the rotation policy after a successful refresh grant and
// returns the handle the client should use next time. One-time-only tokens
// are replaced under a transaction; sliding tokens get their window
// extended, capped at the absolute maximum measured from first issuance.
func (s *RefreshTokenService) Update(ctx context.Context, handle string, rt *domain.RefreshToken, client *domain.Client) (string, error) {
	log := slogx.FromContext(ctx)
	newHandle := handle
	recordID := rt.ID

	if client.RefreshTokenUsage == domain.RefreshTokenUsageOneTimeOnly {
		fresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return "", err
		}

		replacement := *rt
		replacement.ID = idx.New().String()
		replacement.TokenHash = cryptox.FingerprintToken(fresh)
		// CreatedAt is kept: rotation must not restart the absolute window.

		err = s.store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.RefreshTokens().DeleteRefreshTokenByHash(ctx, rt.TokenHash); err != nil {
				return err
			}
			return tx.RefreshTokens().CreateRefreshToken(ctx, replacement)
		})
		if err != nil {
			return "", err
		}

		newHandle = fresh
		recordID = replacement.ID
		log.Debug("refresh token rotated", "client_id", client.ID)
	}

	if client.RefreshTokenExpiration == domain.RefreshTokenExpirationSliding {
		used := time.Since(rt.CreatedAt)
		extended := min(used+client.SlidingRefreshLifetime(), client.AbsoluteRefreshLifetime())
		if extended > rt.Lifetime {
			if err := s.store.RefreshTokens().UpdateRefreshTokenLifetime(ctx, recordID, extended); err != nil {
				return "", err
			}
			log.Debug("refresh token lifetime extended",
				"client_id", client.ID, "lifetime", extended)
		}
	}

	return newHandle, nil
}
