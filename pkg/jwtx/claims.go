package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the parsed claim set of an access token issued by this server.
// Used on the verification side; the issuing side builds jwt.MapClaims
// directly because identity and access tokens carry different shapes.
type Claims struct {
	jwt.RegisteredClaims

	// ClientID identifies the client the token was issued to.
	ClientID string `json:"client_id,omitempty"`

	// Scope holds the granted scopes. Accepts both a single string and an
	// array on the wire.
	Scope jwt.ClaimStrings `json:"scope,omitempty"`

	// SID is the session the token was issued under, when known.
	SID string `json:"sid,omitempty"`

	// AMR lists the authentication method references, e.g. ["password"].
	AMR jwt.ClaimStrings `json:"amr,omitempty"`

	// AuthTime is the unix time of the original user authentication.
	AuthTime int64 `json:"auth_time,omitempty"`

	// IDP names the identity provider that authenticated the subject.
	IDP string `json:"idp,omitempty"`

	// ACR is the authentication context class reference, if one was
	// requested via acr_values.
	ACR string `json:"acr,omitempty"`
}

// HasScope reports whether the token carries the given scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scope, scope)
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. There
// might be a better way of doing this, but I'm being lazy and using random.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	// Check expired (exp)
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	// Check if a valid token isn't used before it is valid (nbf)
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	// Check After Leeway
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	// Check Before Leeway
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
