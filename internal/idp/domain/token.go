package domain

import "time"

// Claim is a single name/value pair destined for a token.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// NewClaim is a small convenience constructor.
func NewClaim(claimType, value string) Claim {
	return Claim{Type: claimType, Value: value}
}

// Token is the abstract token built by the token service before it is either
// signed (JWT) or persisted as a reference handle. Concrete kinds are
// identity tokens and access tokens, distinguished by Type.
type Token struct {
	Type     string        `json:"type"`
	Issuer   string        `json:"issuer"`
	Audience string        `json:"audience"`
	Subject  string        `json:"subject,omitempty"` // empty for client-only tokens
	ClientID string        `json:"client_id"`
	Lifetime time.Duration `json:"lifetime"`
	Claims   []Claim       `json:"claims"`

	CreatedAt time.Time `json:"created_at"`

	// Client carries the issuing client for policy lookups (access token
	// type, claim prefixing). Not serialized with reference tokens.
	Client *Client `json:"-"`
}

// ExpiresAt is the absolute expiry of the token.
func (t *Token) ExpiresAt() time.Time { return t.CreatedAt.Add(t.Lifetime) }

// Scopes returns the values of all scope claims on the token.
func (t *Token) Scopes() []string {
	var out []string
	for _, c := range t.Claims {
		if c.Type == ClaimScope {
			out = append(out, c.Value)
		}
	}
	return out
}

// SubjectID returns the sub claim value, preferring the claim set over the
// Subject field so reference tokens round-trip faithfully.
func (t *Token) SubjectID() string {
	for _, c := range t.Claims {
		if c.Type == ClaimSubject {
			return c.Value
		}
	}
	return t.Subject
}

// AuthorizationCode is the short-lived, single-use grant artifact issued at
// the authorize endpoint for code-bearing flows. Stored hashed; redemption
// consumes it atomically.
type AuthorizationCode struct {
	ID          string
	CodeHash    string
	ClientID    string
	Subject     string
	SessionID   string
	RedirectURI string
	Scopes      []string

	Nonce    string
	IsOpenID bool

	CodeChallenge       string
	CodeChallengeMethod string

	CreatedAt time.Time
}

// RefreshToken is the persisted artifact behind an opaque refresh handle.
type RefreshToken struct {
	ID        string
	TokenHash string
	ClientID  string
	Subject   string
	Scopes    []string

	// AccessToken is the snapshot of the access token issued alongside this
	// refresh token; refreshed access tokens are minted from it.
	AccessToken Token

	CreatedAt time.Time

	// Lifetime is the current remaining window from CreatedAt. Sliding
	// expiration rewrites it on each use, capped at the client's absolute
	// maximum.
	Lifetime time.Duration
}

// ExpiresAt is the absolute expiry of the refresh token.
func (r *RefreshToken) ExpiresAt() time.Time { return r.CreatedAt.Add(r.Lifetime) }
