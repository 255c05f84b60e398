package app

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/users"
)

const seedFixture = `{
	"scopes": [
		{"name": "openid", "type": "identity", "required": true},
		{"name": "api", "type": "resource", "secrets": ["api-owner-secret"]}
	],
	"clients": [
		{
			"id": "svc-app",
			"name": "Service App",
			"flow": "client_credentials",
			"secrets": ["svc-secret"],
			"allowed_scopes": ["api"]
		}
	],
	"users": [
		{
			"subject_id": "subject-1",
			"username": "alice",
			"password": "hunter2hunter2",
			"name": "Alice",
			"claims": {"email": "alice@example.com"}
		}
	]
}`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	userSvc, err := users.NewInMemoryService()
	require.NoError(t, err)

	seed, err := LoadSeed(writeSeedFile(t, seedFixture))
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, st, userSvc))

	client, err := st.Clients().GetClientByID(ctx, "svc-app")
	require.NoError(t, err)
	require.True(t, client.Enabled)
	require.Equal(t, domain.FlowClientCredentials, client.Flow)
	require.Equal(t, domain.AccessTokenTypeJWT, client.AccessTokenType)

	// Secrets land hashed, never plaintext.
	require.Len(t, client.Secrets, 1)
	sum := sha256.Sum256([]byte("svc-secret"))
	require.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), client.Secrets[0].Value)
	require.Equal(t, domain.SecretTypeSharedSecret, client.Secrets[0].Type)

	scope, err := st.Scopes().GetScopeByName(ctx, "api")
	require.NoError(t, err)
	require.True(t, scope.Enabled)
	require.Len(t, scope.Secrets, 1)

	subject, err := userSvc.AuthenticateLocal(ctx, "alice", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "subject-1", subject.ID)
}

func TestSeedApplyIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	userSvc, err := users.NewInMemoryService()
	require.NoError(t, err)

	seed, err := LoadSeed(writeSeedFile(t, seedFixture))
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, st, userSvc))

	// A second pass over a populated store must not fail or clobber.
	require.NoError(t, seed.Apply(ctx, st, userSvc))
}

func TestSeedRejectsUnknownFlow(t *testing.T) {
	t.Parallel()

	seed := &Seed{Clients: []SeedClient{{ID: "x", Flow: "carrier_pigeon"}}}

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	userSvc, err := users.NewInMemoryService()
	require.NoError(t, err)

	err = seed.Apply(context.Background(), st, userSvc)
	require.ErrorContains(t, err, "unknown flow")
}
