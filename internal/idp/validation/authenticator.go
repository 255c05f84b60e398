package validation

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/secrets"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// ClientAuthenticator resolves and verifies the client behind a request.
// Every failure collapses to ErrInvalidClient so callers can never probe
// whether the id or the credential was wrong.
type ClientAuthenticator struct {
	clients    store.Clients
	parsers    *secrets.ParserChain
	validators *secrets.ValidatorChain
	events     events.Sink
}

func NewClientAuthenticator(clients store.Clients, parsers *secrets.ParserChain, validators *secrets.ValidatorChain, sink events.Sink) *ClientAuthenticator {
	return &ClientAuthenticator{
		clients:    clients,
		parsers:    parsers,
		validators: validators,
		events:     sink,
	}
}

// Authenticate extracts a credential from the request and validates it
// against the named client's stored secrets.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*domain.Client, error) {
	log := slogx.FromContext(ctx)

	parsed, err := a.parsers.Parse(ctx, r)
	if err != nil || parsed == nil {
		log.Debug("no usable client credential in request")
		a.raiseFailure(ctx, "")
		return nil, ErrInvalidClient
	}

	client, err := a.clients.GetClientByID(ctx, parsed.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		log.Debug("unknown client", "client_id", parsed.ID)
		a.raiseFailure(ctx, parsed.ID)
		return nil, ErrInvalidClient
	}

	if !client.Enabled {
		log.Warn("disabled client attempted authentication", "client_id", client.ID)
		a.raiseFailure(ctx, client.ID)
		return nil, ErrInvalidClient
	}

	if !a.validators.Validate(ctx, client.Secrets, *parsed) {
		log.Warn("client secret validation failed", "client_id", client.ID)
		a.raiseFailure(ctx, client.ID)
		return nil, ErrInvalidClient
	}

	a.events.Raise(ctx, events.Event{
		Name:     events.ClientAuthenticated,
		Success:  true,
		ClientID: client.ID,
	})
	return &client, nil
}

func (a *ClientAuthenticator) raiseFailure(ctx context.Context, clientID string) {
	a.events.Raise(ctx, events.Event{
		Name:     events.ClientAuthFailed,
		Success:  false,
		ClientID: clientID,
	})
}

// ScopeAuthenticator authenticates a scope owner, used by the introspection
// endpoint where callers identify as a scope rather than a client.
type ScopeAuthenticator struct {
	scopes     store.Scopes
	parsers    *secrets.ParserChain
	validators *secrets.ValidatorChain
}

func NewScopeAuthenticator(scopes store.Scopes, parsers *secrets.ParserChain, validators *secrets.ValidatorChain) *ScopeAuthenticator {
	return &ScopeAuthenticator{scopes: scopes, parsers: parsers, validators: validators}
}

// Authenticate resolves the credential to a registered scope and validates
// it against the scope's stored secrets. Same opacity rule as clients.
func (a *ScopeAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*domain.Scope, error) {
	log := slogx.FromContext(ctx)

	parsed, err := a.parsers.Parse(ctx, r)
	if err != nil || parsed == nil {
		return nil, ErrInvalidClient
	}

	scope, err := a.scopes.GetScopeByName(ctx, parsed.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		log.Debug("unknown scope owner", "scope", parsed.ID)
		return nil, ErrInvalidClient
	}

	if !scope.Enabled || len(scope.Secrets) == 0 {
		return nil, ErrInvalidClient
	}

	if !a.validators.Validate(ctx, scope.Secrets, *parsed) {
		log.Warn("scope secret validation failed", "scope", scope.Name)
		return nil, ErrInvalidClient
	}

	return &scope, nil
}
