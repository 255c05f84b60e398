// Package secrets extracts client credentials from incoming requests and
// verifies them against stored secrets. Parsing and validation are separate
// strategy chains so new credential types (mTLS, assertion formats) slot in
// without touching the authenticator.
package secrets

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// ErrMalformedSecret is returned when a parser recognises its own scheme in
// the request but the credential is malformed (bad base64, oversized values).
var ErrMalformedSecret = errors.New("secrets: malformed credential")

// Parser extracts a credential of one particular kind from a request.
// Returning (nil, nil) means "this request does not carry my kind of
// credential"; the chain moves on to the next parser.
type Parser interface {
	// AuthenticationMethod names the scheme for logging.
	AuthenticationMethod() string

	Parse(ctx context.Context, r *http.Request) (*domain.ParsedSecret, error)
}

// ParserChain tries each parser in order and returns the first ParsedSecret
// found. A parser error stops the chain: a malformed credential of a
// recognised scheme must not fall through to a weaker scheme.
type ParserChain struct {
	parsers []Parser
}

func NewParserChain(parsers ...Parser) *ParserChain {
	return &ParserChain{parsers: parsers}
}

// DefaultParserChain wires the built-in parsers in priority order: Basic
// header, POST body, TLS client certificate, JWT client assertion.
func DefaultParserChain() *ParserChain {
	return NewParserChain(
		&BasicAuthParser{},
		&PostBodyParser{},
		&X509CertificateParser{},
		&JWTBearerParser{},
	)
}

// Parse returns the first credential any parser extracts, or (nil, nil) if
// the request carries no recognisable credential at all.
func (c *ParserChain) Parse(ctx context.Context, r *http.Request) (*domain.ParsedSecret, error) {
	log := slogx.FromContext(ctx)

	for _, p := range c.parsers {
		parsed, err := p.Parse(ctx, r)
		if err != nil {
			log.Warn("credential parsing failed",
				"method", p.AuthenticationMethod(), "error", err)
			return nil, err
		}
		if parsed != nil {
			log.Debug("credential parsed", "method", p.AuthenticationMethod())
			return parsed, nil
		}
	}

	return nil, nil
}
