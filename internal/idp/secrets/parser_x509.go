package secrets

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// X509CertificateParser picks up a TLS client certificate presented during
// the handshake. The client still names itself via the client_id form field
// since a certificate subject is not a client identifier.
type X509CertificateParser struct{}

func (p *X509CertificateParser) AuthenticationMethod() string { return "tls_client_auth" }

func (p *X509CertificateParser) Parse(ctx context.Context, r *http.Request) (*domain.ParsedSecret, error) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return nil, nil
	}

	clientID := r.PostFormValue("client_id")
	if clientID == "" {
		return nil, nil
	}
	if len(clientID) > domain.MaxClientIDLength {
		return nil, ErrMalformedSecret
	}

	return &domain.ParsedSecret{
		ID:          clientID,
		Type:        domain.ParsedSecretTypeX509Certificate,
		Certificate: r.TLS.PeerCertificates[0],
	}, nil
}
