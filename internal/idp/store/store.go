package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and let callers take
// only what they need; transactions go through WithTx so multi-step token
// operations (code redemption, refresh rotation) stay atomic.
type Store interface {
	Clients() Clients
	Scopes() Scopes
	AuthorizationCodes() AuthorizationCodes
	Tokens() Tokens
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn errors
	// and committing otherwise. Preferred over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// GetClientByID fetches a registered client, enabled or not; callers
	// check the Enabled flag so disabled clients fail the same way at every
	// decision point.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	CreateClient(ctx context.Context, c domain.Client) error
	DeleteClient(ctx context.Context, id string) error
	IsEmpty(ctx context.Context) (bool, error)
}

type Scopes interface {
	// GetScopeByName fetches a single registered scope.
	GetScopeByName(ctx context.Context, name string) (domain.Scope, error)

	// GetScopesByNames fetches a batch; missing names are simply absent from
	// the result, the scope validator treats that as a hard failure.
	GetScopesByNames(ctx context.Context, names []string) ([]domain.Scope, error)

	CreateScope(ctx context.Context, s domain.Scope) error
	DeleteScope(ctx context.Context, name string) error
	IsEmpty(ctx context.Context) (bool, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted code record.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// ConsumeAuthorizationCodeByHash fetches the code by hash and deletes it
	// in the same statement. A second consume of the same hash returns
	// ErrNotFound, which is what makes redemption exactly-once.
	ConsumeAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// DeleteAuthorizationCodesCreatedBefore is housekeeping; the cutoff is
	// computed by the caller because code expiry is a per-client setting.
	DeleteAuthorizationCodesCreatedBefore(ctx context.Context, cutoff time.Time) error
}

// Tokens stores reference access tokens keyed by the fingerprint of their
// opaque handle. Self-contained JWTs never land here.
type Tokens interface {
	CreateToken(ctx context.Context, handleHash string, t domain.Token) error
	GetTokenByHash(ctx context.Context, handleHash string) (domain.Token, error)
	DeleteTokenByHash(ctx context.Context, handleHash string) error

	// DeleteTokensBySubjectAndClient implements revocation cascade.
	DeleteTokensBySubjectAndClient(ctx context.Context, subject, clientID string) error

	DeleteExpiredTokens(ctx context.Context) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// UpdateRefreshTokenLifetime supports sliding expiration; the driver
	// recomputes the stored expiry from creation time plus lifetime.
	UpdateRefreshTokenLifetime(ctx context.Context, id string, lifetime time.Duration) error

	DeleteRefreshTokenByHash(ctx context.Context, hash string) error
	DeleteRefreshTokensBySubjectAndClient(ctx context.Context, subject, clientID string) error
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
