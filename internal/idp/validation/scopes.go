package validation

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// ScopeValidator resolves and classifies the scopes of a single request.
// One instance per validation pass; the flags and granted list accumulate
// as checks run and are read by the token pipeline afterwards.
type ScopeValidator struct {
	scopes store.Scopes

	RequestedScopes []string
	GrantedScopes   []domain.Scope

	ContainsIdentityScopes     bool
	ContainsResourceScopes     bool
	ContainsOfflineAccessScope bool
}

func NewScopeValidator(scopes store.Scopes) *ScopeValidator {
	return &ScopeValidator{scopes: scopes}
}

// ParseScopeParam splits a space-delimited scope parameter into a
// de-duplicated list, preserving first-seen order.
func ParseScopeParam(raw string) []string {
	fields := httpx.ParseSpaceDelimitedFields(raw)
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// AreScopesValid resolves every requested scope against the scope store.
// One unknown or disabled scope fails the whole batch; there are no
// partial grants. Matched scopes are classified and accumulated.
func (v *ScopeValidator) AreScopesValid(ctx context.Context, requested []string) (bool, error) {
	log := slogx.FromContext(ctx)

	found, err := v.scopes.GetScopesByNames(ctx, requested)
	if err != nil {
		return false, err
	}

	byName := make(map[string]domain.Scope, len(found))
	for _, s := range found {
		byName[s.Name] = s
	}

	for _, name := range requested {
		scope, ok := byName[name]
		if !ok {
			log.Warn("unknown scope requested", "scope", name)
			return false, nil
		}
		if !scope.Enabled {
			log.Warn("disabled scope requested", "scope", name)
			return false, nil
		}

		switch {
		case name == domain.ScopeOfflineAccess:
			v.ContainsOfflineAccessScope = true
		case scope.Type == domain.ScopeTypeIdentity:
			v.ContainsIdentityScopes = true
		default:
			v.ContainsResourceScopes = true
		}

		v.GrantedScopes = append(v.GrantedScopes, scope)
	}

	v.RequestedScopes = requested
	return true, nil
}

// AreScopesAllowed checks the client's allow-list. The first scope outside
// it fails the whole request.
func (v *ScopeValidator) AreScopesAllowed(ctx context.Context, client *domain.Client, requested []string) bool {
	if client.AllowAccessToAllScopes {
		return true
	}

	log := slogx.FromContext(ctx)
	for _, name := range requested {
		if !client.AllowsScope(name) {
			log.Warn("scope not allowed for client", "client_id", client.ID, "scope", name)
			return false
		}
	}
	return true
}

// IsResponseTypeValid enforces the response-type/scope coupling: an
// id_token-bearing response type needs at least one identity scope, an
// identity-only response type must carry no resource scopes, and a
// token-only response type must carry no identity scopes and at least one
// resource scope.
func (v *ScopeValidator) IsResponseTypeValid(ctx context.Context, responseType string) bool {
	log := slogx.FromContext(ctx)

	if responseTypeBearsIdentityToken(responseType) && !v.ContainsIdentityScopes {
		log.Warn("response type requires identity scopes but none requested",
			"response_type", responseType)
		return false
	}

	switch responseType {
	case domain.ResponseTypeIDToken:
		if v.ContainsResourceScopes {
			log.Warn("identity-only response type with resource scopes")
			return false
		}
	case domain.ResponseTypeToken:
		if v.ContainsIdentityScopes {
			log.Warn("token-only response type with identity scopes")
			return false
		}
		if !v.ContainsResourceScopes {
			log.Warn("token-only response type without resource scopes")
			return false
		}
	}

	return true
}

// SetConsentedScopes prunes the granted list down to what the user agreed
// to. Required scopes survive regardless; flags are recomputed from what
// is left.
func (v *ScopeValidator) SetConsentedScopes(consented []string) {
	kept := v.GrantedScopes[:0]
	for _, s := range v.GrantedScopes {
		if s.Required || slices.Contains(consented, s.Name) {
			kept = append(kept, s)
		}
	}
	v.GrantedScopes = kept

	v.ContainsIdentityScopes = false
	v.ContainsResourceScopes = false
	v.ContainsOfflineAccessScope = false
	for _, s := range v.GrantedScopes {
		switch {
		case s.Name == domain.ScopeOfflineAccess:
			v.ContainsOfflineAccessScope = true
		case s.Type == domain.ScopeTypeIdentity:
			v.ContainsIdentityScopes = true
		default:
			v.ContainsResourceScopes = true
		}
	}
}

// GrantedScopeNames returns the names of the granted scopes in order.
func (v *ScopeValidator) GrantedScopeNames() []string {
	names := make([]string, 0, len(v.GrantedScopes))
	for _, s := range v.GrantedScopes {
		names = append(names, s.Name)
	}
	return names
}

// IdentityScopes returns the granted identity-typed scopes.
func (v *ScopeValidator) IdentityScopes() []domain.Scope {
	var out []domain.Scope
	for _, s := range v.GrantedScopes {
		if s.Type == domain.ScopeTypeIdentity {
			out = append(out, s)
		}
	}
	return out
}

// responseTypeBearsIdentityToken reports whether the response type returns
// an id_token from the authorize endpoint.
func responseTypeBearsIdentityToken(responseType string) bool {
	switch responseType {
	case domain.ResponseTypeIDToken,
		domain.ResponseTypeIDTokenToken,
		domain.ResponseTypeCodeIDToken,
		domain.ResponseTypeCodeIDTokenToken:
		return true
	}
	return false
}
