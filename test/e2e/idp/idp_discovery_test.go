package idp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/pkg/idpsdk"
)

func TestDiscoveryAndJWKS(t *testing.T) {
	baseURL, cleanup := setupIDPContainer(t)
	defer cleanup()

	client := idpsdk.NewClient(baseURL)
	ctx := context.Background()

	t.Run("discovery document advertises the configured issuer", func(t *testing.T) {
		doc, err := client.Discovery(ctx)
		require.NoError(t, err)

		require.Equal(t, testIssuer, doc.Issuer)
		require.Equal(t, testIssuer+"/connect/authorize", doc.AuthorizationEndpoint)
		require.Equal(t, testIssuer+"/connect/token", doc.TokenEndpoint)
		require.Equal(t, testIssuer+"/connect/revocation", doc.RevocationEndpoint)
		require.Equal(t, testIssuer+"/connect/introspect", doc.IntrospectionEndpoint)
		require.Equal(t, testIssuer+"/.well-known/jwks.json", doc.JWKSURI)

		require.ElementsMatch(t, []string{
			"authorization_code", "client_credentials", "password", "refresh_token",
		}, doc.GrantTypesSupported)
		require.Contains(t, doc.ResponseTypesSupported, "code")
		require.Contains(t, doc.ResponseModesSupported, "form_post")
		require.Equal(t, []string{"ES256"}, doc.IDTokenSigningAlgValuesSupported)
	})

	t.Run("jwks publishes the signing key", func(t *testing.T) {
		jwks, err := client.JWKS(ctx)
		require.NoError(t, err)

		require.Len(t, jwks.Keys, 1)
		key := jwks.Keys[0]
		require.Equal(t, "EC", key.Kty)
		require.Equal(t, "ES256", key.Alg)
		require.Equal(t, "sig", key.Use)
		require.NotEmpty(t, key.Kid)
		require.NotEmpty(t, key.X)
		require.NotEmpty(t, key.Y)
	})
}

func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupIDPContainer(t)
	defer cleanup()

	client := idpsdk.NewClient(baseURL)
	ctx := context.Background()

	t.Run("livez", func(t *testing.T) {
		health, err := client.Livez(ctx)
		assertHealthy(t, health, err)
		require.NotEmpty(t, health.Uptime)
	})

	t.Run("readyz reports dependency checks", func(t *testing.T) {
		health, err := client.Readyz(ctx)
		assertHealthy(t, health, err)
		require.NotNil(t, health.Checks)
		require.Equal(t, "ok", health.Checks.Database)
		require.Equal(t, "ok", health.Checks.Signer)
	})
}
