package secrets

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// BasicAuthParser extracts a shared secret from the Authorization: Basic
// header. Client id and secret are form-urlencoded inside the header per
// RFC 6749 section 2.3.1, so both halves are unescaped after splitting.
type BasicAuthParser struct{}

func (p *BasicAuthParser) AuthenticationMethod() string { return "client_secret_basic" }

func (p *BasicAuthParser) Parse(ctx context.Context, r *http.Request) (*domain.ParsedSecret, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}

	scheme, encoded, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		// Bearer and friends belong to other middleware.
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedSecret
	}

	id, secret, found := strings.Cut(string(raw), ":")
	if !found || id == "" {
		return nil, ErrMalformedSecret
	}

	clientID, err := url.QueryUnescape(id)
	if err != nil {
		return nil, ErrMalformedSecret
	}
	clientSecret, err := url.QueryUnescape(secret)
	if err != nil {
		return nil, ErrMalformedSecret
	}

	if len(clientID) > domain.MaxClientIDLength || len(clientSecret) > domain.MaxClientSecretLength {
		return nil, ErrMalformedSecret
	}

	return &domain.ParsedSecret{
		ID:         clientID,
		Type:       domain.ParsedSecretTypeSharedSecret,
		Credential: clientSecret,
	}, nil
}
