package secrets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// CertificateThumbprint returns the hex-encoded SHA-256 digest of a
// certificate's DER bytes. This is the value stored in thumbprint secrets
// and surfaced as the signing kid.
func CertificateThumbprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// X509ThumbprintValidator matches a presented certificate against stored
// thumbprint secrets.
type X509ThumbprintValidator struct{}

func (v *X509ThumbprintValidator) Validate(ctx context.Context, stored []domain.Secret, parsed domain.ParsedSecret) (bool, error) {
	if parsed.Type != domain.ParsedSecretTypeX509Certificate || parsed.Certificate == nil {
		return false, nil
	}

	thumbprint := CertificateThumbprint(parsed.Certificate)
	for _, s := range stored {
		if s.Type != domain.SecretTypeX509Thumbprint {
			continue
		}
		if strings.EqualFold(s.Value, thumbprint) {
			return true, nil
		}
	}

	return false, nil
}

// X509CertificateBase64Validator matches a presented certificate against
// stored full certificates (base64 DER). Byte-exact comparison, no chain
// building: the registered cert IS the credential.
type X509CertificateBase64Validator struct{}

func (v *X509CertificateBase64Validator) Validate(ctx context.Context, stored []domain.Secret, parsed domain.ParsedSecret) (bool, error) {
	if parsed.Type != domain.ParsedSecretTypeX509Certificate || parsed.Certificate == nil {
		return false, nil
	}

	for _, s := range stored {
		if s.Type != domain.SecretTypeX509Base64 {
			continue
		}
		der, err := base64.StdEncoding.DecodeString(s.Value)
		if err != nil {
			continue
		}
		if bytes.Equal(der, parsed.Certificate.Raw) {
			return true, nil
		}
	}

	return false, nil
}
