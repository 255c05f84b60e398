package domain

import (
	"crypto/x509"
	"time"
)

// Stored secret types.
const (
	SecretTypeSharedSecret   = "shared_secret"
	SecretTypeX509Thumbprint = "x509_thumbprint"
	SecretTypeX509Base64     = "x509_base64"
)

// Parsed secret type tags. These describe what a parser extracted from the
// request, not how the stored secret is represented.
const (
	ParsedSecretTypeSharedSecret    = "shared_secret"
	ParsedSecretTypeX509Certificate = "x509_certificate"
	ParsedSecretTypeJWTBearer       = "jwt_bearer"
)

// Secret is a stored credential attached to a client or scope.
type Secret struct {
	Type        string
	Value       string
	Description string
	Expiration  *time.Time
}

// IsExpired reports whether the secret has an expiration in the past.
// Expired secrets never match, regardless of value correctness.
func (s *Secret) IsExpired(now time.Time) bool {
	return s.Expiration != nil && now.After(*s.Expiration)
}

// ParsedSecret is a credential claimed by a request. Created per request and
// discarded after validation.
type ParsedSecret struct {
	// ID identifies the holder (client id or scope name).
	ID string

	// Type is one of the ParsedSecretType constants.
	Type string

	// Credential is the claimed secret: a string for shared secrets and JWT
	// assertions, or the presented certificate for TLS client auth.
	Credential string

	// Certificate is set when Type is ParsedSecretTypeX509Certificate.
	Certificate *x509.Certificate
}
