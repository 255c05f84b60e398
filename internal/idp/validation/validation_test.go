package validation

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/users"
	"github.com/stretchr/testify/require"
)

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
			Claims: []domain.ScopeClaim{{Name: "name"}}},
		{Name: "api", Type: domain.ScopeTypeResource, Enabled: true},
		{Name: "reports", Type: domain.ScopeTypeResource, Enabled: true},
		{Name: "offline_access", Type: domain.ScopeTypeResource, Enabled: true},
		{Name: "retired", Type: domain.ScopeTypeResource, Enabled: false},
	}
	for _, s := range fixtures {
		require.NoError(t, st.Scopes().CreateScope(ctx, s))
	}

	return st
}

func newTestUsers(t *testing.T) *users.InMemoryService {
	t.Helper()

	svc, err := users.NewInMemoryService(
		users.User{
			SubjectID: "subject-1",
			Username:  "alice",
			Password:  "correct horse battery staple",
			Name:      "Alice",
			Active:    true,
			Claims:    []domain.Claim{{Type: "name", Value: "Alice"}},
		},
		users.User{
			SubjectID: "subject-2",
			Username:  "bob",
			Password:  "hunter2hunter2",
			Name:      "Bob",
			Active:    false,
		},
	)
	require.NoError(t, err)
	return svc
}

func codeClient() domain.Client {
	return domain.Client{
		ID:            "web-app",
		Name:          "Web App",
		Enabled:       true,
		Flow:          domain.FlowAuthorizationCode,
		RedirectURIs:  []string{"https://app.example/callback"},
		AllowedScopes: []string{"openid", "profile", "api", "offline_access"},
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}
