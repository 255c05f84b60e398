package secrets

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// HashedSecretValidator compares a shared secret credential against stored
// hash digests. The stored byte length picks the algorithm: 32 bytes is
// SHA-256, 64 bytes is SHA-512. Any other length is a configuration error
// and that secret never matches, rather than guessing an algorithm.
type HashedSecretValidator struct{}

func (v *HashedSecretValidator) Validate(ctx context.Context, stored []domain.Secret, parsed domain.ParsedSecret) (bool, error) {
	if parsed.Type != domain.ParsedSecretTypeSharedSecret || parsed.Credential == "" {
		return false, nil
	}

	log := slogx.FromContext(ctx)

	for _, s := range stored {
		if s.Type != domain.SecretTypeSharedSecret {
			continue
		}

		digest, ok := decodeDigest(s.Value)
		if !ok {
			// Plaintext secrets land here too; that is the other
			// validator's job, not an anomaly worth logging.
			continue
		}

		var expected []byte
		switch len(digest) {
		case sha256.Size:
			sum := sha256.Sum256([]byte(parsed.Credential))
			expected = sum[:]
		case sha512.Size:
			sum := sha512.Sum512([]byte(parsed.Credential))
			expected = sum[:]
		default:
			log.Warn("stored secret hash has unexpected length, refusing to match",
				"length", len(digest))
			continue
		}

		if subtle.ConstantTimeCompare(digest, expected) == 1 {
			return true, nil
		}
	}

	return false, nil
}

// decodeDigest accepts the two encodings hashed secrets are stored in,
// standard base64 and hex. Returns false when the stored value is not a
// digest encoding at all.
func decodeDigest(value string) ([]byte, bool) {
	if b, err := base64.StdEncoding.DecodeString(value); err == nil {
		return b, true
	}
	if b, err := hex.DecodeString(value); err == nil {
		return b, true
	}
	return nil, false
}
