// Package events is the audit trail for protocol decisions. Every issue,
// validation failure, and revocation lands here as a structured event.
// Sinks are fire-and-forget: they must never block or fail the pipeline.
package events

import (
	"context"
	"time"
)

// Event is a single auditable protocol decision.
type Event struct {
	// Name identifies the decision point, e.g. "token_issued".
	Name string

	// Success is false for rejections and failures.
	Success bool

	// ClientID, Subject and GrantType locate the decision. Any may be
	// empty depending on how far validation got.
	ClientID  string
	Subject   string
	GrantType string

	// Details carries decision-specific key/value context. Values must
	// already be safe to log: no raw secrets or full token values.
	Details map[string]any

	// Time defaults to now when left zero.
	Time time.Time
}

// Event names raised by the validation and token pipelines.
const (
	TokenIssued             = "token_issued"
	TokenRevoked            = "token_revoked"
	TokenIntrospected       = "token_introspected"
	AuthorizeFailed         = "authorize_validation_failed"
	TokenRequestFailed      = "token_request_validation_failed"
	ClientAuthenticated     = "client_authenticated"
	ClientAuthFailed        = "client_authentication_failed"
	RevocationOwnerMismatch = "revocation_owner_mismatch"
)

// Sink consumes audit events. Implementations must be safe for concurrent
// use and must not block the caller.
type Sink interface {
	Raise(ctx context.Context, e Event)
}

// ObfuscateToken keeps only the last four characters of a token value so
// audit events can correlate without leaking the credential.
func ObfuscateToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
