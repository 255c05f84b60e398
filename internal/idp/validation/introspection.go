package validation

import (
	"context"
	"net/url"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// ValidatedIntrospectionRequest is a parsed RFC 7662 introspection request
// for an authenticated scope owner.
type ValidatedIntrospectionRequest struct {
	// Scope is the authenticated scope owner making the call.
	Scope *domain.Scope

	// Token is the raw handle to introspect.
	Token string
}

// IntrospectionRequestValidator parses the introspection form parameters.
// Scope authentication happens before this runs; the activity decision
// lives in the introspection service.
type IntrospectionRequestValidator struct{}

func NewIntrospectionRequestValidator() *IntrospectionRequestValidator {
	return &IntrospectionRequestValidator{}
}

func (v *IntrospectionRequestValidator) Validate(ctx context.Context, form url.Values, scope *domain.Scope) (*ValidatedIntrospectionRequest, error) {
	token := form.Get("token")
	if token == "" || len(token) > domain.MaxTokenHandleLength {
		return nil, ErrInvalidRequest
	}

	return &ValidatedIntrospectionRequest{
		Scope: scope,
		Token: token,
	}, nil
}
