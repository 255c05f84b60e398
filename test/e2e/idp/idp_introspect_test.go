package idp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/pkg/idpsdk"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
)

func TestIntrospection(t *testing.T) {
	baseURL, cleanup := setupIDPContainer(t)
	defer cleanup()

	client := idpsdk.NewClient(baseURL)
	ctx := context.Background()

	// ref-app is configured for reference tokens, the only kind the
	// introspection endpoint can look up.
	tokens, err := client.ClientCredentialsGrant(ctx, refClientID, refClientSecret, []string{"api"})
	require.NoError(t, err)
	require.NotContains(t, tokens.AccessToken, ".", "reference tokens are opaque handles")

	t.Run("scope owner sees an active token", func(t *testing.T) {
		info, err := client.Introspect(ctx, "api", apiScopeSecret, tokens.AccessToken)
		require.NoError(t, err)
		require.True(t, info.Active)
		require.Equal(t, refClientID, info.ClientID)
		require.Contains(t, info.Scope, "api")
	})

	t.Run("unknown tokens are inactive", func(t *testing.T) {
		info, err := client.Introspect(ctx, "api", apiScopeSecret, "not-a-token")
		require.NoError(t, err)
		require.False(t, info.Active)
	})

	t.Run("revoked tokens are inactive", func(t *testing.T) {
		revoked, err := client.ClientCredentialsGrant(ctx, refClientID, refClientSecret, []string{"api"})
		require.NoError(t, err)

		err = client.Revoke(ctx, refClientID, refClientSecret, revoked.AccessToken, "access_token")
		require.NoError(t, err)

		info, err := client.Introspect(ctx, "api", apiScopeSecret, revoked.AccessToken)
		require.NoError(t, err)
		require.False(t, info.Active)
	})

	t.Run("rejects a wrong scope secret", func(t *testing.T) {
		_, err := client.Introspect(ctx, "api", "wrong-secret", tokens.AccessToken)
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, "invalid_client", oerr.Code)
	})
}
