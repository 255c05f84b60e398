// Package users is the external user collaborator boundary: local
// credential checks, active-status checks, and profile claim retrieval.
// The token pipeline only ever talks to the Service interface; a real
// deployment plugs a directory or user database in behind it.
package users

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

var (
	// ErrInvalidCredentials is returned for unknown users and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("users: invalid credentials")

	// ErrAccountInactive is returned when the account exists but is
	// disabled or locked.
	ErrAccountInactive = errors.New("users: account inactive")
)

// Service is what the validation and claims pipelines need from a user
// store.
type Service interface {
	// AuthenticateLocal verifies a username/password pair and returns the
	// authenticated subject.
	AuthenticateLocal(ctx context.Context, username, password string) (*domain.Subject, error)

	// IsActive reports whether the subject's account is still active.
	// Grants bound to an inactive subject must not be honoured.
	IsActive(ctx context.Context, subjectID string) (bool, error)

	// GetProfileClaims fetches profile claims for a subject. When
	// includeAll is set the requested list is ignored and every claim the
	// store knows is returned.
	GetProfileClaims(ctx context.Context, subjectID string, requested []string, includeAll bool) ([]domain.Claim, error)
}
