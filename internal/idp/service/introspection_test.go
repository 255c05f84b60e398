package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

func introspectionRequest(scopeName, token string) *validation.ValidatedIntrospectionRequest {
	return &validation.ValidatedIntrospectionRequest{
		Scope: &domain.Scope{Name: scopeName, Type: domain.ScopeTypeResource, Enabled: true},
		Token: token,
	}
}

// seedIntrospectableToken stores a reference access token with the given
// scopes and lifetime, returning the raw handle.
func seedIntrospectableToken(t *testing.T, st *sqlite.Store, lifetime time.Duration, scopes ...string) string {
	t.Helper()

	handle, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	claims := []domain.Claim{
		{Type: domain.ClaimClientID, Value: "web-app"},
		{Type: domain.ClaimSubject, Value: "subject-1"},
		{Type: domain.ClaimJwtID, Value: jwtx.NewJTI()},
	}
	for _, s := range scopes {
		claims = append(claims, domain.Claim{Type: domain.ClaimScope, Value: s})
	}

	token := domain.Token{
		Type:      domain.TokenTypeAccess,
		Issuer:    testIssuer,
		Audience:  testIssuer + "/resources",
		Subject:   "subject-1",
		ClientID:  "web-app",
		Lifetime:  lifetime,
		Claims:    claims,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Tokens().CreateToken(context.Background(), cryptox.FingerprintToken(handle), token))
	return handle
}

func TestIntrospectActiveToken(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewIntrospectionService(st, events.NopSink{})
	ctx := context.Background()

	handle := seedIntrospectableToken(t, st, time.Hour, "api", "reports")

	resp, err := svc.Introspect(ctx, introspectionRequest("api", handle))
	require.NoError(t, err)

	require.True(t, resp.Active)
	require.Equal(t, "api reports", resp.Scope)
	require.Equal(t, "web-app", resp.ClientID)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, "subject-1", resp.Sub)
	require.Equal(t, []string{testIssuer + "/resources"}, resp.Aud)
	require.Equal(t, testIssuer, resp.Iss)
	require.NotEmpty(t, resp.Jti)
	require.Greater(t, resp.Exp, resp.Iat)
}

func TestIntrospectInactiveToken(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewIntrospectionService(st, events.NopSink{})
	ctx := context.Background()

	t.Run("unknown handle", func(t *testing.T) {
		resp, err := svc.Introspect(ctx, introspectionRequest("api", "no-such-token"))
		require.NoError(t, err)
		require.False(t, resp.Active)
		require.Empty(t, resp.Scope)
		require.Empty(t, resp.ClientID)
		require.Empty(t, resp.Sub)
	})

	t.Run("expired token", func(t *testing.T) {
		handle := seedIntrospectableToken(t, st, -time.Minute, "api")

		resp, err := svc.Introspect(ctx, introspectionRequest("api", handle))
		require.NoError(t, err)
		require.False(t, resp.Active)
		require.Empty(t, resp.ClientID)
	})

	t.Run("caller scope not on the token", func(t *testing.T) {
		handle := seedIntrospectableToken(t, st, time.Hour, "api")

		// The reports API may not learn anything about a token scoped to
		// another resource.
		resp, err := svc.Introspect(ctx, introspectionRequest("reports", handle))
		require.NoError(t, err)
		require.False(t, resp.Active)
		require.Empty(t, resp.Scope)
		require.Empty(t, resp.Sub)
	})
}
