package secrets

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// PostBodyParser extracts client_id/client_secret form fields from the
// request body. The secret may be absent for public clients; the validator
// chain decides whether a missing credential is acceptable.
type PostBodyParser struct{}

func (p *PostBodyParser) AuthenticationMethod() string { return "client_secret_post" }

func (p *PostBodyParser) Parse(ctx context.Context, r *http.Request) (*domain.ParsedSecret, error) {
	clientID := r.PostFormValue("client_id")
	if clientID == "" {
		return nil, nil
	}

	clientSecret := r.PostFormValue("client_secret")

	if len(clientID) > domain.MaxClientIDLength || len(clientSecret) > domain.MaxClientSecretLength {
		return nil, ErrMalformedSecret
	}

	return &domain.ParsedSecret{
		ID:         clientID,
		Type:       domain.ParsedSecretTypeSharedSecret,
		Credential: clientSecret,
	}, nil
}
