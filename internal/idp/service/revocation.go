package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// RevocationService executes validated revocation requests. Its outward
// behaviour is deliberately flat: the endpoint returns success whether the
// token existed, was already gone, or belongs to another client. Anything
// else is an ownership oracle.
type RevocationService struct {
	store  store.Store
	events events.Sink
}

func NewRevocationService(st store.Store, sink events.Sink) *RevocationService {
	return &RevocationService{store: st, events: sink}
}

// Revoke locates and removes the token. With no hint the access token
// store is tried first, then the refresh token store; a refresh_token hint
// flips the order. Revoking a refresh token cascades to the access tokens
// issued under the same subject and client.
func (s *RevocationService) Revoke(ctx context.Context, req *validation.ValidatedRevocationRequest) error {
	hash := cryptox.FingerprintToken(req.Token)

	order := []string{domain.TokenTypeHintAccessToken, domain.TokenTypeHintRefreshToken}
	if req.TokenTypeHint == domain.TokenTypeHintRefreshToken {
		order = []string{domain.TokenTypeHintRefreshToken, domain.TokenTypeHintAccessToken}
	}

	for _, kind := range order {
		var (
			done bool
			err  error
		)
		switch kind {
		case domain.TokenTypeHintAccessToken:
			done, err = s.revokeAccessToken(ctx, req, hash)
		case domain.TokenTypeHintRefreshToken:
			done, err = s.revokeRefreshToken(ctx, req, hash)
		}
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	// Unknown handle. Still a success to the caller.
	slogx.FromContext(ctx).Debug("revocation target not found", "client_id", req.Client.ID)
	return nil
}

func (s *RevocationService) revokeAccessToken(ctx context.Context, req *validation.ValidatedRevocationRequest, hash string) (bool, error) {
	t, err := s.store.Tokens().GetTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if t.ClientID != req.Client.ID {
		s.logOwnerMismatch(ctx, req.Client.ID, t.ClientID)
		// Found, so stop searching; but leave the token alone.
		return true, nil
	}

	if err := s.store.Tokens().DeleteTokenByHash(ctx, hash); err != nil {
		return false, err
	}

	s.events.Raise(ctx, events.Event{
		Name:     events.TokenRevoked,
		Success:  true,
		ClientID: req.Client.ID,
		Subject:  t.SubjectID(),
		Details:  map[string]any{"token_type": domain.TokenTypeHintAccessToken},
	})
	return true, nil
}

func (s *RevocationService) revokeRefreshToken(ctx context.Context, req *validation.ValidatedRevocationRequest, hash string) (bool, error) {
	rt, err := s.store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if rt.ClientID != req.Client.ID {
		s.logOwnerMismatch(ctx, req.Client.ID, rt.ClientID)
		return true, nil
	}

	// Cascade: dropping a refresh token invalidates the access tokens
	// issued alongside it for this subject and client.
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteRefreshTokenByHash(ctx, hash); err != nil {
			return err
		}
		return tx.Tokens().DeleteTokensBySubjectAndClient(ctx, rt.Subject, rt.ClientID)
	})
	if err != nil {
		return false, err
	}

	s.events.Raise(ctx, events.Event{
		Name:     events.TokenRevoked,
		Success:  true,
		ClientID: req.Client.ID,
		Subject:  rt.Subject,
		Details:  map[string]any{"token_type": domain.TokenTypeHintRefreshToken},
	})
	return true, nil
}

func (s *RevocationService) logOwnerMismatch(ctx context.Context, callerID, ownerID string) {
	slogx.FromContext(ctx).Warn("revocation attempt against another client's token",
		"client_id", callerID, "owner_client_id", ownerID)
	s.events.Raise(ctx, events.Event{
		Name:     events.RevocationOwnerMismatch,
		Success:  false,
		ClientID: callerID,
	})
}
