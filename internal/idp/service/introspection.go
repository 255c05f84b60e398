package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// IntrospectionService answers RFC 7662 queries for reference access
// tokens. The caller authenticated as a scope owner; a token that does not
// carry that scope reads as inactive rather than revealing anything.
type IntrospectionService struct {
	store  store.Store
	events events.Sink
}

func NewIntrospectionService(st store.Store, sink events.Sink) *IntrospectionService {
	return &IntrospectionService{store: st, events: sink}
}

func (s *IntrospectionService) Introspect(ctx context.Context, req *validation.ValidatedIntrospectionRequest) (*oauth2x.IntrospectionResponse, error) {
	log := slogx.FromContext(ctx)
	inactive := &oauth2x.IntrospectionResponse{Active: false}

	t, err := s.store.Tokens().GetTokenByHash(ctx, cryptox.FingerprintToken(req.Token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("introspected token not found", "scope", req.Scope.Name)
			return inactive, nil
		}
		return nil, err
	}

	if time.Now().After(t.ExpiresAt()) {
		return inactive, nil
	}

	// The calling scope must be among the token's granted scopes.
	if !slices.Contains(t.Scopes(), req.Scope.Name) {
		log.Warn("introspection by scope not present on token",
			"scope", req.Scope.Name, "client_id", t.ClientID)
		return inactive, nil
	}

	s.events.Raise(ctx, events.Event{
		Name:     events.TokenIntrospected,
		Success:  true,
		ClientID: t.ClientID,
		Subject:  t.SubjectID(),
		Details:  map[string]any{"scope": req.Scope.Name},
	})

	resp := &oauth2x.IntrospectionResponse{
		Active:    true,
		Scope:     strings.Join(t.Scopes(), " "),
		ClientID:  t.ClientID,
		TokenType: tokenTypeBearer,
		Exp:       t.ExpiresAt().Unix(),
		Iat:       t.CreatedAt.Unix(),
		Sub:       t.SubjectID(),
		Aud:       []string{t.Audience},
		Iss:       t.Issuer,
	}
	for _, c := range t.Claims {
		if c.Type == domain.ClaimJwtID {
			resp.Jti = c.Value
		}
	}
	return resp, nil
}
