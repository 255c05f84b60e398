package secrets

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// PrivateKeyJWTValidator verifies private_key_jwt client assertions.
// The assertion must be signed with a key the client registered, either as
// a full base64 certificate secret or via an embedded x5c certificate whose
// thumbprint matches a registered thumbprint secret. Issuer and subject
// must both equal the claimed client id, the audience must be this server's
// token endpoint, and the assertion must not have been seen before.
type PrivateKeyJWTValidator struct {
	// Audience is the token endpoint URL assertions must be addressed to.
	Audience string

	// Replay rejects assertions presented more than once inside their
	// validity window.
	Replay *ReplayCache
}

func (v *PrivateKeyJWTValidator) Validate(ctx context.Context, stored []domain.Secret, parsed domain.ParsedSecret) (bool, error) {
	if parsed.Type != domain.ParsedSecretTypeJWTBearer || parsed.Credential == "" {
		return false, nil
	}

	log := slogx.FromContext(ctx)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithAudience(v.Audience),
		jwt.WithExpirationRequired(),
	)

	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(parsed.Credential, claims, func(t *jwt.Token) (any, error) {
		return assertionKeys(t, stored)
	})
	if err != nil {
		log.Debug("client assertion rejected", "client_id", parsed.ID, "error", err)
		return false, nil
	}
	if !token.Valid {
		return false, nil
	}

	if claims.Issuer != parsed.ID || claims.Subject != parsed.ID {
		log.Debug("client assertion issuer/subject mismatch", "client_id", parsed.ID)
		return false, nil
	}

	expiry := time.Now().Add(5 * time.Minute)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	if v.Replay != nil && !v.Replay.Add(parsed.Credential, expiry) {
		log.Warn("client assertion replay detected", "client_id", parsed.ID)
		return false, nil
	}

	return true, nil
}

// assertionKeys collects the public keys the assertion may be verified with.
// An embedded x5c certificate is only trusted if its thumbprint matches a
// registered thumbprint secret; otherwise any registered base64 certificate
// is a candidate.
func assertionKeys(t *jwt.Token, stored []domain.Secret) (any, error) {
	keys := jwt.VerificationKeySet{}

	if embedded, err := embeddedCertificate(t); err == nil && embedded != nil {
		thumbprint := CertificateThumbprint(embedded)
		for _, s := range stored {
			if s.Type == domain.SecretTypeX509Thumbprint && strings.EqualFold(s.Value, thumbprint) {
				keys.Keys = append(keys.Keys, embedded.PublicKey)
				break
			}
		}
	}

	for _, s := range stored {
		if s.Type != domain.SecretTypeX509Base64 {
			continue
		}
		der, err := base64.StdEncoding.DecodeString(s.Value)
		if err != nil {
			continue
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			continue
		}
		keys.Keys = append(keys.Keys, cert.PublicKey)
	}

	if len(keys.Keys) == 0 {
		return nil, errors.New("secrets: no registered certificate matches assertion")
	}
	return keys, nil
}

// embeddedCertificate parses the first x5c header entry, if present.
func embeddedCertificate(t *jwt.Token) (*x509.Certificate, error) {
	raw, ok := t.Header["x5c"]
	if !ok {
		return nil, nil
	}

	chain, ok := raw.([]any)
	if !ok || len(chain) == 0 {
		return nil, errors.New("secrets: malformed x5c header")
	}
	first, ok := chain[0].(string)
	if !ok {
		return nil, errors.New("secrets: malformed x5c header")
	}

	der, err := base64.StdEncoding.DecodeString(first)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}
