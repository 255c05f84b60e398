package domain

// ScopeType classifies a scope as identity (maps to id_token claims) or
// resource (maps to API access).
type ScopeType string

const (
	ScopeTypeIdentity ScopeType = "identity"
	ScopeTypeResource ScopeType = "resource"
)

// ScopeClaim is a claim associated with a scope.
type ScopeClaim struct {
	Name string

	// AlwaysIncludeInIdentityToken forces the claim into identity tokens
	// even when an access token is also issued (where clients would
	// normally fetch claims from the userinfo endpoint).
	AlwaysIncludeInIdentityToken bool
}

// Scope is a named permission unit. Immutable within a request.
type Scope struct {
	Name        string
	DisplayName string
	Description string
	Type        ScopeType
	Enabled     bool

	// Required scopes cannot be deselected during consent.
	Required bool

	// Emphasize highlights the scope on consent screens; carried for the
	// external consent layer, unused by the engine itself.
	Emphasize bool

	Claims []ScopeClaim

	// IncludeAllClaimsForUser short-circuits claim filtering and fetches the
	// full user profile.
	IncludeAllClaimsForUser bool

	// Secrets authenticate the scope owner at the introspection endpoint.
	Secrets []Secret
}

// ClaimNames returns the claim names declared on the scope.
func (s *Scope) ClaimNames() []string {
	names := make([]string, 0, len(s.Claims))
	for _, c := range s.Claims {
		names = append(names, c.Name)
	}
	return names
}
