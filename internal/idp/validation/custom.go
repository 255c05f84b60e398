package validation

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// CustomGrantValidator validates one custom grant type at the token
// endpoint. It may resolve a subject for the grant; returning (nil, nil)
// issues a client-only token.
type CustomGrantValidator interface {
	GrantType() string
	Validate(ctx context.Context, req *ValidatedTokenRequest) (*domain.Subject, error)
}

// CustomGrantRegistry maps grant type strings to their validators.
// Registration happens at startup; lookups are concurrent.
type CustomGrantRegistry struct {
	mu     sync.RWMutex
	byType map[string]CustomGrantValidator
}

func NewCustomGrantRegistry(validators ...CustomGrantValidator) *CustomGrantRegistry {
	r := &CustomGrantRegistry{byType: make(map[string]CustomGrantValidator)}
	for _, v := range validators {
		r.Register(v)
	}
	return r
}

func (r *CustomGrantRegistry) Register(v CustomGrantValidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[v.GrantType()] = v
}

func (r *CustomGrantRegistry) Get(grantType string) (CustomGrantValidator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byType[grantType]
	return v, ok
}

// AuthorizeRequestHook runs after all built-in authorize checks pass and
// may still reject the request.
type AuthorizeRequestHook interface {
	ValidateAuthorizeRequest(ctx context.Context, req *ValidatedAuthorizeRequest) *AuthorizeError
}

// TokenRequestHook runs after all grant-specific token checks pass and may
// still reject the request.
type TokenRequestHook interface {
	ValidateTokenRequest(ctx context.Context, req *ValidatedTokenRequest) error
}
