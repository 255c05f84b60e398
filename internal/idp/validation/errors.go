// Package validation implements the protocol validators: client/scope
// authentication, scope checking, and the authorize/token/revocation/
// introspection request pipelines. Validators return sentinel errors named
// after the RFC 6749 vocabulary; the HTTP layer maps them onto wire
// responses.
package validation

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrInvalidScope         = errors.New("invalid_scope")
	ErrUnauthorizedClient   = errors.New("unauthorized_client")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrLoginRequired        = errors.New("login_required")
)
