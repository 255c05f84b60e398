package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/users"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

const testIssuer = "https://idp.example.com"

// newTestStore spins up an in-memory sqlite store with migrations applied
// and the standard scope fixture loaded.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	ctx := context.Background()
	fixtures := []domain.Scope{
		{Name: "openid", Type: domain.ScopeTypeIdentity, Enabled: true, Required: true},
		{Name: "profile", Type: domain.ScopeTypeIdentity, Enabled: true,
			Claims: []domain.ScopeClaim{{Name: "name", AlwaysIncludeInIdentityToken: true}}},
		{Name: "api", Type: domain.ScopeTypeResource, Enabled: true},
		{Name: "reports", Type: domain.ScopeTypeResource, Enabled: true},
		{Name: "offline_access", Type: domain.ScopeTypeResource, Enabled: true},
	}
	for _, s := range fixtures {
		require.NoError(t, st.Scopes().CreateScope(ctx, s))
	}

	return st
}

func newTestUsers(t *testing.T) *users.InMemoryService {
	t.Helper()

	svc, err := users.NewInMemoryService(users.User{
		SubjectID: "subject-1",
		Username:  "alice",
		Password:  "correct horse battery staple",
		Name:      "Alice",
		Active:    true,
		Claims: []domain.Claim{
			{Type: "name", Value: "Alice"},
			{Type: "email", Value: "alice@example.com"},
		},
	})
	require.NoError(t, err)
	return svc
}

// newTestKeys builds an ephemeral signing credential for the test issuer.
func newTestKeys(t *testing.T) *jwtx.KeyManager {
	t.Helper()

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmES256,
		Issuer:    testIssuer,
	})
	require.NoError(t, err)
	return km
}

// newTokenService wires a TokenService over the given store with an
// ephemeral signer and the seeded in-memory user service.
func newTokenService(t *testing.T, st *sqlite.Store) *TokenService {
	t.Helper()

	claims := NewClaimsProvider(newTestUsers(t))
	return NewTokenService(testIssuer, newTestKeys(t).Signer, claims, st, events.NopSink{})
}

func testSubject() *domain.Subject {
	return &domain.Subject{
		ID:                   "subject-1",
		Name:                 "Alice",
		AuthenticationMethod: domain.AuthenticationMethodPassword,
		AuthenticationTime:   time.Now().UTC().Truncate(time.Second),
		IdentityProvider:     domain.LocalIdentityProvider,
	}
}

func jwtClient() *domain.Client {
	return &domain.Client{
		ID:              "web-app",
		Name:            "Web App",
		Enabled:         true,
		Flow:            domain.FlowAuthorizationCode,
		RedirectURIs:    []string{"https://app.example/callback"},
		AllowedScopes:   []string{"openid", "profile", "api", "offline_access"},
		AccessTokenType: domain.AccessTokenTypeJWT,
	}
}

func referenceClient() *domain.Client {
	c := jwtClient()
	c.ID = "ref-app"
	c.AccessTokenType = domain.AccessTokenTypeReference
	return c
}

// grantedScopes resolves scope fixtures by name, preserving request order.
func grantedScopes(t *testing.T, st *sqlite.Store, names ...string) []domain.Scope {
	t.Helper()

	found, err := st.Scopes().GetScopesByNames(context.Background(), names)
	require.NoError(t, err)
	require.Len(t, found, len(names))

	byName := make(map[string]domain.Scope, len(found))
	for _, s := range found {
		byName[s.Name] = s
	}
	out := make([]domain.Scope, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n])
	}
	return out
}

// scopeValidatorFor builds a pre-granted scope validator the way the token
// pipeline leaves it after a successful validation pass.
func scopeValidatorFor(t *testing.T, st *sqlite.Store, names ...string) *validation.ScopeValidator {
	t.Helper()

	v := validation.NewScopeValidator(st.Scopes())
	ok, err := v.AreScopesValid(context.Background(), names)
	require.NoError(t, err)
	require.True(t, ok)
	return v
}

// decodeJWT parses a compact JWT without verifying the signature. Signature
// verification has its own tests; these care about the claim set.
func decodeJWT(t *testing.T, token string) jwt.MapClaims {
	t.Helper()

	require.Equal(t, 3, len(strings.Split(token, ".")), "expected a compact JWT")
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims
}
