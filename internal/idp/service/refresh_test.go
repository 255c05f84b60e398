package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/idx"
)

func refreshClient() *domain.Client {
	c := jwtClient()
	c.RefreshTokenUsage = domain.RefreshTokenUsageReUse
	c.RefreshTokenExpiration = domain.RefreshTokenExpirationAbsolute
	c.AbsoluteRefreshTokenLifetime = 30 * 24 * time.Hour
	c.SlidingRefreshTokenLifetime = 24 * time.Hour
	return c
}

func snapshotAccessToken() domain.Token {
	return domain.Token{
		Type:     domain.TokenTypeAccess,
		Issuer:   testIssuer,
		Audience: testIssuer + "/resources",
		Subject:  "subject-1",
		ClientID: "web-app",
		Lifetime: time.Hour,
		Claims: []domain.Claim{
			{Type: domain.ClaimClientID, Value: "web-app"},
			{Type: domain.ClaimSubject, Value: "subject-1"},
			{Type: domain.ClaimScope, Value: "api"},
			{Type: domain.ClaimScope, Value: "offline_access"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestRefreshTokenCreate(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewRefreshTokenService(st)
	ctx := context.Background()

	t.Run("stores by fingerprint with the absolute lifetime", func(t *testing.T) {
		client := refreshClient()

		handle, err := svc.Create(ctx, "subject-1", snapshotAccessToken(), []string{"api", "offline_access"}, client)
		require.NoError(t, err)
		require.NotEmpty(t, handle)

		// Raw handle is never a lookup key.
		_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, handle)
		require.ErrorIs(t, err, store.ErrNotFound)

		rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
		require.NoError(t, err)
		require.Equal(t, "web-app", rt.ClientID)
		require.Equal(t, "subject-1", rt.Subject)
		require.Equal(t, []string{"api", "offline_access"}, rt.Scopes)
		require.Equal(t, client.AbsoluteRefreshTokenLifetime, rt.Lifetime)
		require.Equal(t, []string{"api", "offline_access"}, rt.AccessToken.Scopes())
	})

	t.Run("sliding expiration starts at the sliding window", func(t *testing.T) {
		client := refreshClient()
		client.RefreshTokenExpiration = domain.RefreshTokenExpirationSliding

		handle, err := svc.Create(ctx, "subject-1", snapshotAccessToken(), []string{"api"}, client)
		require.NoError(t, err)

		rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
		require.NoError(t, err)
		require.Equal(t, client.SlidingRefreshTokenLifetime, rt.Lifetime)
	})

	t.Run("sliding window never exceeds the absolute cap", func(t *testing.T) {
		client := refreshClient()
		client.RefreshTokenExpiration = domain.RefreshTokenExpirationSliding
		client.SlidingRefreshTokenLifetime = 60 * 24 * time.Hour // wider than absolute

		handle, err := svc.Create(ctx, "subject-1", snapshotAccessToken(), []string{"api"}, client)
		require.NoError(t, err)

		rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
		require.NoError(t, err)
		require.Equal(t, client.AbsoluteRefreshTokenLifetime, rt.Lifetime)
	})
}

func TestRefreshTokenUpdate_Reuse(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewRefreshTokenService(st)
	ctx := context.Background()
	client := refreshClient()

	handle, err := svc.Create(ctx, "subject-1", snapshotAccessToken(), []string{"api"}, client)
	require.NoError(t, err)

	rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
	require.NoError(t, err)

	// Reuse policy hands the same handle back untouched.
	next, err := svc.Update(ctx, handle, &rt, client)
	require.NoError(t, err)
	require.Equal(t, handle, next)

	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
	require.NoError(t, err)
}

func TestRefreshTokenUpdate_OneTimeOnly(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewRefreshTokenService(st)
	ctx := context.Background()
	client := refreshClient()
	client.RefreshTokenUsage = domain.RefreshTokenUsageOneTimeOnly

	handle, err := svc.Create(ctx, "subject-1", snapshotAccessToken(), []string{"api"}, client)
	require.NoError(t, err)

	rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
	require.NoError(t, err)

	next, err := svc.Update(ctx, handle, &rt, client)
	require.NoError(t, err)
	require.NotEqual(t, handle, next)

	// Old handle is burned; the replacement is live.
	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
	require.ErrorIs(t, err, store.ErrNotFound)

	replacement, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(next))
	require.NoError(t, err)
	require.Equal(t, rt.Subject, replacement.Subject)
	require.Equal(t, rt.Scopes, replacement.Scopes)

	// Rotation must not restart the absolute window.
	require.WithinDuration(t, rt.CreatedAt, replacement.CreatedAt, time.Second)
}

func TestRefreshTokenUpdate_SlidingExtension(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewRefreshTokenService(st)
	ctx := context.Background()

	client := refreshClient()
	client.RefreshTokenExpiration = domain.RefreshTokenExpirationSliding
	client.SlidingRefreshTokenLifetime = 24 * time.Hour
	client.AbsoluteRefreshTokenLifetime = 30 * 24 * time.Hour

	// Seed a token first issued ten days ago, so a use today should extend
	// the window to elapsed + sliding.
	createdAt := time.Now().UTC().Add(-10 * 24 * time.Hour)
	handle, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	seeded := domain.RefreshToken{
		ID:          idx.New().String(),
		TokenHash:   cryptox.FingerprintToken(handle),
		ClientID:    client.ID,
		Subject:     "subject-1",
		Scopes:      []string{"api"},
		AccessToken: snapshotAccessToken(),
		CreatedAt:   createdAt,
		Lifetime:    client.SlidingRefreshTokenLifetime,
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, seeded))

	next, err := svc.Update(ctx, handle, &seeded, client)
	require.NoError(t, err)
	require.Equal(t, handle, next)

	rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
	require.NoError(t, err)
	require.Greater(t, rt.Lifetime, seeded.Lifetime)
	require.InDelta(t, float64(10*24*time.Hour+24*time.Hour), float64(rt.Lifetime), float64(time.Minute))
}

func TestRefreshTokenUpdate_SlidingCappedAtAbsolute(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewRefreshTokenService(st)
	ctx := context.Background()

	client := refreshClient()
	client.RefreshTokenExpiration = domain.RefreshTokenExpirationSliding
	client.SlidingRefreshTokenLifetime = 24 * time.Hour
	client.AbsoluteRefreshTokenLifetime = 5 * 24 * time.Hour

	// First issued 4.5 days ago; elapsed + sliding would exceed the cap.
	createdAt := time.Now().UTC().Add(-108 * time.Hour)
	handle, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	seeded := domain.RefreshToken{
		ID:          idx.New().String(),
		TokenHash:   cryptox.FingerprintToken(handle),
		ClientID:    client.ID,
		Subject:     "subject-1",
		Scopes:      []string{"api"},
		AccessToken: snapshotAccessToken(),
		CreatedAt:   createdAt,
		Lifetime:    client.SlidingRefreshTokenLifetime,
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, seeded))

	_, err = svc.Update(ctx, handle, &seeded, client)
	require.NoError(t, err)

	rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
	require.NoError(t, err)
	require.Equal(t, client.AbsoluteRefreshTokenLifetime, rt.Lifetime)
}

func TestRefreshTokenUpdate_RotationAndExtensionTogether(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := NewRefreshTokenService(st)
	ctx := context.Background()

	client := refreshClient()
	client.RefreshTokenUsage = domain.RefreshTokenUsageOneTimeOnly
	client.RefreshTokenExpiration = domain.RefreshTokenExpirationSliding
	client.SlidingRefreshTokenLifetime = 24 * time.Hour
	client.AbsoluteRefreshTokenLifetime = 30 * 24 * time.Hour

	createdAt := time.Now().UTC().Add(-5 * 24 * time.Hour)
	handle, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	seeded := domain.RefreshToken{
		ID:          idx.New().String(),
		TokenHash:   cryptox.FingerprintToken(handle),
		ClientID:    client.ID,
		Subject:     "subject-1",
		Scopes:      []string{"api"},
		AccessToken: snapshotAccessToken(),
		CreatedAt:   createdAt,
		Lifetime:    client.SlidingRefreshTokenLifetime,
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, seeded))

	next, err := svc.Update(ctx, handle, &seeded, client)
	require.NoError(t, err)
	require.NotEqual(t, handle, next)

	// Extension lands on the replacement record, not the burned one.
	rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(next))
	require.NoError(t, err)
	require.Greater(t, rt.Lifetime, seeded.Lifetime)
	require.WithinDuration(t, createdAt, rt.CreatedAt, time.Second)
}
