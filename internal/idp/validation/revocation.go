package validation

import (
	"context"
	"net/url"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// ValidatedRevocationRequest is a parsed RFC 7009 revocation request for an
// authenticated client.
type ValidatedRevocationRequest struct {
	Client *domain.Client

	// Token is the raw handle to revoke.
	Token string

	// TokenTypeHint is access_token, refresh_token, or empty. Unknown
	// hints are dropped, not fatal.
	TokenTypeHint string
}

// RevocationRequestValidator parses the revocation form parameters. The
// lookup and ownership rules live in the revocation service.
type RevocationRequestValidator struct{}

func NewRevocationRequestValidator() *RevocationRequestValidator {
	return &RevocationRequestValidator{}
}

func (v *RevocationRequestValidator) Validate(ctx context.Context, form url.Values, client *domain.Client) (*ValidatedRevocationRequest, error) {
	log := slogx.FromContext(ctx)

	token := form.Get("token")
	if token == "" || len(token) > domain.MaxTokenHandleLength {
		return nil, ErrInvalidRequest
	}

	hint := form.Get("token_type_hint")
	switch hint {
	case "", domain.TokenTypeHintAccessToken, domain.TokenTypeHintRefreshToken:
	default:
		// RFC 7009 lets us fall back to trying all stores.
		log.Info("ignoring unknown token_type_hint", "hint", hint)
		hint = ""
	}

	return &ValidatedRevocationRequest{
		Client:        client,
		Token:         token,
		TokenTypeHint: hint,
	}, nil
}
