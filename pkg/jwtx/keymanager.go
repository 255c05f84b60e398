package jwtx

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/aussiebroadwan/idp/pkg/cryptox"
)

// Supported JWT signing algorithms
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// KeyManager holds the single signing credential of the server together
// with the verification side: a Verifier for inbound tokens and a KeySet
// published at the JWKS endpoint.
//
// One signing key at a time keeps the trust story simple; rotation is a
// restart with a new configured key, and verifiers pick up the new kid from
// the JWKS.
type KeyManager struct {
	Signer    Signer
	Verifier  Verifier
	KeySet    *KeySet
	algorithm string
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Algorithm specifies which signing algorithm to use.
	// Supported values: "RS256", "ES256", "EdDSA"
	Algorithm string

	// PrivateKeyPEM is the PEM-encoded signing key. Leave empty to generate
	// an ephemeral key (dev and test only; tokens die with the process).
	PrivateKeyPEM []byte

	// Issuer is the issuer claim (iss) that will be validated in tokens.
	Issuer string

	// Audience is the list of audience values (aud) that will be validated.
	// Empty slice means no audience validation.
	Audience []string

	// RSABits specifies the RSA key size when generating an ephemeral RS256
	// key. Defaults to 2048 if not specified.
	RSABits int
}

// NewKeyManager builds the key manager from a configured PEM key, or an
// ephemeral one when no key is supplied. The kid is derived from the public
// key so it is stable across restarts with the same key material.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	pemKey := opts.PrivateKeyPEM
	if len(pemKey) == 0 {
		var err error
		pemKey, err = generateKeyPEM(opts.Algorithm, opts.RSABits)
		if err != nil {
			return nil, err
		}
	}

	// Two-pass construction: the kid depends on the public key, which we
	// only know after loading the key once.
	probe, err := newSigner(opts.Algorithm, "probe", pemKey)
	if err != nil {
		return nil, err
	}
	kid := DeriveKID(probe.PublicJWK())

	signer, err := newSigner(opts.Algorithm, kid, pemKey)
	if err != nil {
		return nil, err
	}
	if err := signer.Validate(); err != nil {
		return nil, err
	}

	keyset := NewKeySet()
	if err := keyset.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: failed to add signer to keyset: %w", err)
	}

	var verifier Verifier
	switch opts.Algorithm {
	case AlgorithmRS256:
		verifier = NewCommonRS256(keyset, opts.Issuer, opts.Audience)
	case AlgorithmES256:
		verifier = NewCommonES256(keyset, opts.Issuer, opts.Audience)
	case AlgorithmEdDSA:
		verifier = NewCommonEdDSA(keyset, opts.Issuer, opts.Audience)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: RS256, ES256, EdDSA)", opts.Algorithm)
	}

	return &KeyManager{
		Signer:    signer,
		Verifier:  verifier,
		KeySet:    keyset,
		algorithm: opts.Algorithm,
	}, nil
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// DeriveKID computes a stable key id from the public key material: the
// base64url SHA-256 of the JWK's key-specific fields.
func DeriveKID(j JWK) string {
	h := sha256.New()
	h.Write([]byte(j.Kty))
	h.Write([]byte(j.Crv))
	h.Write([]byte(j.N))
	h.Write([]byte(j.E))
	h.Write([]byte(j.X))
	h.Write([]byte(j.Y))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:16])
}

func newSigner(algorithm, kid string, pemKey []byte) (Signer, error) {
	switch algorithm {
	case AlgorithmRS256:
		return NewSignerRS256(kid, pemKey)
	case AlgorithmES256:
		return NewSignerES256(kid, pemKey)
	case AlgorithmEdDSA:
		return NewSignerEdDSA(kid, pemKey)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", algorithm)
	}
}

func generateKeyPEM(algorithm string, rsaBits int) ([]byte, error) {
	switch algorithm {
	case AlgorithmRS256:
		bits := rsaBits
		if bits == 0 {
			bits = 2048
		}
		pemKey, err := cryptox.GenerateRSAKey(bits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate RS256 key: %w", err)
		}
		return pemKey, nil

	case AlgorithmES256:
		pemKey, err := cryptox.GenerateES256Key()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate ES256 key: %w", err)
		}
		return pemKey, nil

	case AlgorithmEdDSA:
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate EdDSA key: %w", err)
		}
		return pemKey, nil

	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", algorithm)
	}
}
