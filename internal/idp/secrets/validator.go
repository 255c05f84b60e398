package secrets

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// Validator checks a parsed credential against a principal's stored secrets.
// Returning (false, nil) means "no match from my strategy"; the chain keeps
// trying. An error is a strategy-internal failure, logged and skipped.
type Validator interface {
	Validate(ctx context.Context, stored []domain.Secret, parsed domain.ParsedSecret) (bool, error)
}

// ValidatorChain tries each validator in order. First success wins; if no
// validator matches, authentication fails.
type ValidatorChain struct {
	validators []Validator
}

func NewValidatorChain(validators ...Validator) *ValidatorChain {
	return &ValidatorChain{validators: validators}
}

// DefaultValidatorChain wires the built-in validators. audience is the
// token endpoint URL that private_key_jwt assertions must be addressed to.
func DefaultValidatorChain(audience string, replay *ReplayCache) *ValidatorChain {
	return NewValidatorChain(
		&HashedSecretValidator{},
		&PlainTextSecretValidator{},
		&X509ThumbprintValidator{},
		&X509CertificateBase64Validator{},
		&PrivateKeyJWTValidator{Audience: audience, Replay: replay},
	)
}

// Validate filters out expired secrets, then runs the chain against what is
// left. An empty live set always fails regardless of the credential.
func (c *ValidatorChain) Validate(ctx context.Context, stored []domain.Secret, parsed domain.ParsedSecret) bool {
	log := slogx.FromContext(ctx)

	now := time.Now()
	live := make([]domain.Secret, 0, len(stored))
	for _, s := range stored {
		if s.IsExpired(now) {
			log.Debug("skipping expired secret", "secret_type", s.Type)
			continue
		}
		live = append(live, s)
	}
	if len(live) == 0 {
		return false
	}

	for _, v := range c.validators {
		ok, err := v.Validate(ctx, live, parsed)
		if err != nil {
			log.Warn("secret validator error", "error", err)
			continue
		}
		if ok {
			return true
		}
	}

	return false
}
