package idp_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/pkg/idpsdk"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
)

func TestClientCredentialsFlow(t *testing.T) {
	baseURL, cleanup := setupIDPContainer(t)
	defer cleanup()

	client := idpsdk.NewClient(baseURL)
	ctx := context.Background()

	t.Run("issues a token for allowed scopes", func(t *testing.T) {
		resp, err := client.ClientCredentialsGrant(ctx, svcClientID, svcClientSecret, []string{"api", "reports"})
		require.NoError(t, err)
		assertTokenResponse(t, resp)
		require.Equal(t, "api reports", resp.Scope)
		require.Empty(t, resp.RefreshToken, "no user, nothing to refresh")
		require.Empty(t, resp.IdentityToken)
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		_, err := client.ClientCredentialsGrant(ctx, svcClientID, "wrong-secret", []string{"api"})
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, "invalid_client", oerr.Code)
		require.Equal(t, http.StatusUnauthorized, oerr.StatusCode)
	})

	t.Run("rejects scopes outside the allow-list", func(t *testing.T) {
		_, err := client.ClientCredentialsGrant(ctx, svcClientID, svcClientSecret, []string{"profile"})
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, "invalid_scope", oerr.Code)
	})

	t.Run("rejects identity scopes without a user", func(t *testing.T) {
		_, err := client.ClientCredentialsGrant(ctx, cliClientID, cliClientSecret, []string{"openid"})
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		// cli-app is a resource owner client, so the flow check fires first.
		require.Equal(t, "unauthorized_client", oerr.Code)
	})
}
