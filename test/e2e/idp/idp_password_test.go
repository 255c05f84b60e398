package idp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/pkg/idpsdk"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
)

func TestPasswordGrant(t *testing.T) {
	baseURL, cleanup := setupIDPContainer(t)
	defer cleanup()

	client := idpsdk.NewClient(baseURL)
	ctx := context.Background()

	t.Run("issues access, identity and refresh tokens", func(t *testing.T) {
		resp, err := client.PasswordGrant(ctx, cliClientID, cliClientSecret,
			testUsername, testUserPass,
			[]string{"openid", "profile", "api", "offline_access"})
		require.NoError(t, err)
		assertTokenResponse(t, resp)
		require.NotEmpty(t, resp.IdentityToken, "openid scope should yield an id_token")
		require.NotEmpty(t, resp.RefreshToken, "offline_access should yield a refresh token")
	})

	t.Run("rejects wrong credentials", func(t *testing.T) {
		_, err := client.PasswordGrant(ctx, cliClientID, cliClientSecret,
			testUsername, "wrong password", []string{"openid"})
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, "invalid_grant", oerr.Code)
	})

	t.Run("rejects unknown users the same way", func(t *testing.T) {
		_, err := client.PasswordGrant(ctx, cliClientID, cliClientSecret,
			"mallory", "whatever", []string{"openid"})
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, "invalid_grant", oerr.Code)
	})
}

func TestRefreshGrant(t *testing.T) {
	baseURL, cleanup := setupIDPContainer(t)
	defer cleanup()

	client := idpsdk.NewClient(baseURL)
	ctx := context.Background()

	first, err := client.PasswordGrant(ctx, cliClientID, cliClientSecret,
		testUsername, testUserPass,
		[]string{"openid", "api", "offline_access"})
	require.NoError(t, err)
	require.NotEmpty(t, first.RefreshToken)

	t.Run("exchanges the refresh token for fresh tokens", func(t *testing.T) {
		refreshed, err := client.RefreshGrant(ctx, cliClientID, cliClientSecret, first.RefreshToken, nil)
		require.NoError(t, err)
		assertTokenResponse(t, refreshed)
		require.NotEmpty(t, refreshed.RefreshToken)
		require.Equal(t, "openid api offline_access", refreshed.Scope)
	})

	t.Run("rejects a token owned by another client", func(t *testing.T) {
		second, err := client.PasswordGrant(ctx, cliClientID, cliClientSecret,
			testUsername, testUserPass,
			[]string{"openid", "offline_access"})
		require.NoError(t, err)

		_, err = client.RefreshGrant(ctx, svcClientID, svcClientSecret, second.RefreshToken, nil)
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, "invalid_grant", oerr.Code)
	})

	t.Run("rejects garbage handles", func(t *testing.T) {
		_, err := client.RefreshGrant(ctx, cliClientID, cliClientSecret, "not-a-real-handle", nil)
		require.Error(t, err)

		var oerr *oauth2x.OAuth2Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, "invalid_grant", oerr.Code)
	})
}
