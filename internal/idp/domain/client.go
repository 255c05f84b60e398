package domain

import "time"

// Flow is the OAuth2/OIDC flow a client is registered for. A client has
// exactly one flow; the authorize and token validators reject requests that
// do not match it.
type Flow string

const (
	FlowAuthorizationCode             Flow = "code"
	FlowAuthorizationCodeWithProofKey Flow = "code_with_proof_key"
	FlowImplicit                      Flow = "implicit"
	FlowHybrid                        Flow = "hybrid"
	FlowHybridWithProofKey            Flow = "hybrid_with_proof_key"
	FlowClientCredentials             Flow = "client_credentials"
	FlowResourceOwner                 Flow = "resource_owner"
	FlowCustom                        Flow = "custom"
)

// UsesProofKey reports whether the flow requires PKCE at code redemption.
func (f Flow) UsesProofKey() bool {
	return f == FlowAuthorizationCodeWithProofKey || f == FlowHybridWithProofKey
}

// IsCodeFlow reports whether the flow issues authorization codes.
func (f Flow) IsCodeFlow() bool {
	switch f {
	case FlowAuthorizationCode, FlowAuthorizationCodeWithProofKey, FlowHybrid, FlowHybridWithProofKey:
		return true
	}
	return false
}

// AccessTokenType selects between self-contained JWTs and reference handles.
type AccessTokenType string

const (
	AccessTokenTypeJWT       AccessTokenType = "jwt"
	AccessTokenTypeReference AccessTokenType = "reference"
)

// RefreshTokenUsage controls whether a refresh token survives redemption.
type RefreshTokenUsage string

const (
	RefreshTokenUsageReUse       RefreshTokenUsage = "reuse"
	RefreshTokenUsageOneTimeOnly RefreshTokenUsage = "one_time_only"
)

// RefreshTokenExpiration controls how a refresh token's lifetime evolves.
type RefreshTokenExpiration string

const (
	RefreshTokenExpirationAbsolute RefreshTokenExpiration = "absolute"
	RefreshTokenExpirationSliding  RefreshTokenExpiration = "sliding"
)

// Client is a registered application. Loaded from the client store per
// request and never mutated by the protocol engine; administration happens
// elsewhere.
type Client struct {
	ID      string
	Name    string
	Enabled bool

	Flow Flow

	// Secrets a confidential client may authenticate with. Public clients
	// have none.
	Secrets []Secret

	RedirectURIs           []string
	PostLogoutRedirectURIs []string

	// AllowedScopes is the allow-list checked by the scope validator unless
	// AllowAccessToAllScopes is set.
	AllowedScopes          []string
	AllowAccessToAllScopes bool

	// Custom grant types this client may use; ignored when
	// AllowAccessToAllCustomGrantTypes is set.
	AllowedCustomGrantTypes          []string
	AllowAccessToAllCustomGrantTypes bool

	// Token lifetimes. Zero values fall back to server defaults at issuance.
	IdentityTokenLifetime        time.Duration
	AccessTokenLifetime          time.Duration
	AuthorizationCodeLifetime    time.Duration
	AbsoluteRefreshTokenLifetime time.Duration
	SlidingRefreshTokenLifetime  time.Duration

	RefreshTokenUsage      RefreshTokenUsage
	RefreshTokenExpiration RefreshTokenExpiration
	AccessTokenType        AccessTokenType

	// EnableLocalLogin gates the password grant per client.
	EnableLocalLogin bool

	// Claims are client claims copied into access tokens. When
	// PrefixClientClaims is set each claim type gets a "client_" prefix.
	Claims             []Claim
	PrefixClientClaims bool

	// IncludeJwtID adds a unique jti claim to issued access tokens.
	IncludeJwtID bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fallback lifetimes for clients configured with zero values.
const (
	defaultIdentityTokenLifetime        = 5 * time.Minute
	defaultAccessTokenLifetime          = time.Hour
	defaultAuthorizationCodeLifetime    = 5 * time.Minute
	defaultAbsoluteRefreshTokenLifetime = 30 * 24 * time.Hour
	defaultSlidingRefreshTokenLifetime  = 15 * 24 * time.Hour
)

// IdentityLifetime returns the configured identity token lifetime or the
// server default.
func (c *Client) IdentityLifetime() time.Duration {
	if c.IdentityTokenLifetime > 0 {
		return c.IdentityTokenLifetime
	}
	return defaultIdentityTokenLifetime
}

// AccessLifetime returns the configured access token lifetime or the server
// default.
func (c *Client) AccessLifetime() time.Duration {
	if c.AccessTokenLifetime > 0 {
		return c.AccessTokenLifetime
	}
	return defaultAccessTokenLifetime
}

// CodeLifetime returns the configured authorization code lifetime or the
// server default.
func (c *Client) CodeLifetime() time.Duration {
	if c.AuthorizationCodeLifetime > 0 {
		return c.AuthorizationCodeLifetime
	}
	return defaultAuthorizationCodeLifetime
}

// AbsoluteRefreshLifetime returns the hard cap on refresh token lifetime.
func (c *Client) AbsoluteRefreshLifetime() time.Duration {
	if c.AbsoluteRefreshTokenLifetime > 0 {
		return c.AbsoluteRefreshTokenLifetime
	}
	return defaultAbsoluteRefreshTokenLifetime
}

// SlidingRefreshLifetime returns the per-use extension window for sliding
// refresh tokens.
func (c *Client) SlidingRefreshLifetime() time.Duration {
	if c.SlidingRefreshTokenLifetime > 0 {
		return c.SlidingRefreshTokenLifetime
	}
	return defaultSlidingRefreshTokenLifetime
}

// HasSecret reports whether the client is confidential.
func (c *Client) HasSecret() bool { return len(c.Secrets) > 0 }

// AllowsScope checks the scope allow-list.
func (c *Client) AllowsScope(scope string) bool {
	if c.AllowAccessToAllScopes {
		return true
	}
	for _, s := range c.AllowedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AllowsCustomGrantType checks the custom grant allow-list.
func (c *Client) AllowsCustomGrantType(grantType string) bool {
	if c.AllowAccessToAllCustomGrantTypes {
		return true
	}
	for _, g := range c.AllowedCustomGrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// HasRedirectURI checks exact-set membership; no prefix or pattern matching.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}
