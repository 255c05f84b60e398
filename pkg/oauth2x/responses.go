package oauth2x

// TokenResponse is the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is either a signed JWT or an opaque reference handle,
	// depending on the client's access token type.
	AccessToken string `json:"access_token"`

	// IdentityToken is the signed OIDC id_token, present for OpenID requests.
	IdentityToken string `json:"id_token,omitempty"`

	// RefreshToken is the opaque refresh token handle, present when the
	// request carried the offline_access scope.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is "Bearer" (or "pop" for proof-of-possession requests).
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// Scope is the space-delimited list of granted scopes.
	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse is the RFC 7662 introspection response. For an
// inactive token only Active is populated; everything else stays empty so
// callers learn nothing about tokens they cannot see.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`
	Jti       string   `json:"jti,omitempty"`
}

// AuthorizeResponse carries the parameters returned from the authorize
// endpoint to the client's redirect URI. Which fields are set depends on
// the flow: code for code flows, tokens for implicit/hybrid.
type AuthorizeResponse struct {
	RedirectURI  string
	ResponseMode string

	Code          string
	AccessToken   string
	IdentityToken string
	TokenType     string
	ExpiresIn     int64
	Scope         string
	State         string
	SessionState  string
}

// AuthorizeErrorResponse is the error counterpart, delivered to the
// redirect URI with the standard error/state parameters.
type AuthorizeErrorResponse struct {
	RedirectURI  string
	ResponseMode string

	ErrorCode   string
	Description string
	State       string
}
