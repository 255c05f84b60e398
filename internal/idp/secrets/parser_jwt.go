package secrets

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// JWTBearerParser extracts a private_key_jwt client assertion from the
// request body. Only the assertion's subject claim is read here, unverified,
// to learn which client is claiming to authenticate; signature and claim
// checks happen in the validator with that client's registered secrets.
type JWTBearerParser struct{}

func (p *JWTBearerParser) AuthenticationMethod() string { return "private_key_jwt" }

func (p *JWTBearerParser) Parse(ctx context.Context, r *http.Request) (*domain.ParsedSecret, error) {
	assertionType := r.PostFormValue("client_assertion_type")
	assertion := r.PostFormValue("client_assertion")

	if assertionType == "" && assertion == "" {
		return nil, nil
	}
	if assertionType != domain.ClientAssertionTypeJWTBearer || assertion == "" {
		return nil, ErrMalformedSecret
	}
	if len(assertion) > domain.MaxClientAssertionLength {
		return nil, ErrMalformedSecret
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(assertion, claims); err != nil {
		return nil, ErrMalformedSecret
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" || len(sub) > domain.MaxClientIDLength {
		return nil, ErrMalformedSecret
	}

	return &domain.ParsedSecret{
		ID:         sub,
		Type:       domain.ParsedSecretTypeJWTBearer,
		Credential: assertion,
	}, nil
}
