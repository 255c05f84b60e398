package validation

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTokenValidator(t *testing.T) (*TokenRequestValidator, *sqlite.Store) {
	t.Helper()

	st := newTestStore(t)
	v := NewTokenRequestValidator(st, newTestUsers(t), events.NopSink{}, NewCustomGrantRegistry())
	return v, st
}

func seedAuthorizationCode(t *testing.T, st *sqlite.Store, code domain.AuthorizationCode) {
	t.Helper()
	if code.ID == "" {
		code.ID = idx.New().String()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	require.NoError(t, st.AuthorizationCodes().CreateAuthorizationCode(context.Background(), code))
}

func TestValidateAuthorizationCodeGrant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, st := newTokenValidator(t)

	client := codeClient()

	newCode := func(raw string) domain.AuthorizationCode {
		return domain.AuthorizationCode{
			CodeHash:    cryptox.FingerprintToken(raw),
			ClientID:    client.ID,
			Subject:     "subject-1",
			RedirectURI: "https://app.example/callback",
			Scopes:      []string{"openid", "api"},
			Nonce:       "n-0S6_WzA2Mj",
			IsOpenID:    true,
		}
	}

	form := func(code string) url.Values {
		return url.Values{
			"grant_type":   {domain.GrantTypeAuthorizationCode},
			"code":         {code},
			"redirect_uri": {"https://app.example/callback"},
		}
	}

	t.Run("valid redemption builds the subject", func(t *testing.T) {
		seedAuthorizationCode(t, st, newCode("code-valid"))

		req, err := v.Validate(ctx, form("code-valid"), &client)
		require.NoError(t, err)
		require.NotNil(t, req.Subject)
		require.Equal(t, "subject-1", req.Subject.ID)
		require.Equal(t, domain.LocalIdentityProvider, req.Subject.IdentityProvider)
		require.True(t, req.IsOpenIDRequest)
		require.Equal(t, "n-0S6_WzA2Mj", req.Nonce)
		require.Equal(t, []string{"openid", "api"}, req.Scopes.GrantedScopeNames())
	})

	t.Run("second redemption fails", func(t *testing.T) {
		seedAuthorizationCode(t, st, newCode("code-once"))

		_, err := v.Validate(ctx, form("code-once"), &client)
		require.NoError(t, err)

		_, err = v.Validate(ctx, form("code-once"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("code bound to another client fails and burns", func(t *testing.T) {
		code := newCode("code-stolen")
		code.ClientID = "someone-else"
		seedAuthorizationCode(t, st, code)

		_, err := v.Validate(ctx, form("code-stolen"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)

		// The failed attempt consumed the code; the rightful owner loses it
		// too, which is the safe direction.
		other := codeClient()
		other.ID = "someone-else"
		_, err = v.Validate(ctx, form("code-stolen"), &other)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("expired code fails", func(t *testing.T) {
		code := newCode("code-old")
		code.CreatedAt = time.Now().Add(-10 * time.Minute)
		seedAuthorizationCode(t, st, code)

		_, err := v.Validate(ctx, form("code-old"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("redirect_uri must match the authorization request", func(t *testing.T) {
		seedAuthorizationCode(t, st, newCode("code-redirect"))

		params := form("code-redirect")
		params.Set("redirect_uri", "https://app.example/other")
		_, err := v.Validate(ctx, params, &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("inactive subject fails", func(t *testing.T) {
		code := newCode("code-inactive")
		code.Subject = "subject-2"
		seedAuthorizationCode(t, st, code)

		_, err := v.Validate(ctx, form("code-inactive"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("non code-flow client is unauthorized", func(t *testing.T) {
		cc := codeClient()
		cc.Flow = domain.FlowClientCredentials

		_, err := v.Validate(ctx, form("whatever"), &cc)
		require.ErrorIs(t, err, ErrUnauthorizedClient)
	})
}

func TestValidateCodeVerifierPKCE(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, st := newTokenValidator(t)

	verifier := strings.Repeat("v", 50)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	pkceClient := codeClient()
	pkceClient.ID = "native-app"
	pkceClient.Flow = domain.FlowAuthorizationCodeWithProofKey

	newCode := func(raw string) domain.AuthorizationCode {
		return domain.AuthorizationCode{
			CodeHash:            cryptox.FingerprintToken(raw),
			ClientID:            pkceClient.ID,
			Subject:             "subject-1",
			RedirectURI:         "https://app.example/callback",
			Scopes:              []string{"openid", "api"},
			IsOpenID:            true,
			CodeChallenge:       challenge,
			CodeChallengeMethod: domain.CodeChallengeMethodS256,
		}
	}

	form := func(code, verifier string) url.Values {
		params := url.Values{
			"grant_type":   {domain.GrantTypeAuthorizationCode},
			"code":         {code},
			"redirect_uri": {"https://app.example/callback"},
		}
		if verifier != "" {
			params.Set("code_verifier", verifier)
		}
		return params
	}

	t.Run("matching verifier passes", func(t *testing.T) {
		seedAuthorizationCode(t, st, newCode("pkce-ok"))

		_, err := v.Validate(ctx, form("pkce-ok", verifier), &pkceClient)
		require.NoError(t, err)
	})

	t.Run("wrong verifier fails", func(t *testing.T) {
		seedAuthorizationCode(t, st, newCode("pkce-bad"))

		_, err := v.Validate(ctx, form("pkce-bad", strings.Repeat("w", 50)), &pkceClient)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("missing verifier fails for proof-key client", func(t *testing.T) {
		seedAuthorizationCode(t, st, newCode("pkce-missing"))

		_, err := v.Validate(ctx, form("pkce-missing", ""), &pkceClient)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("stray verifier fails for plain code client", func(t *testing.T) {
		plain := codeClient()
		code := newCode("pkce-stray")
		code.ClientID = plain.ID
		code.CodeChallenge = ""
		code.CodeChallengeMethod = ""
		seedAuthorizationCode(t, st, code)

		_, err := v.Validate(ctx, form("pkce-stray", verifier), &plain)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestValidateClientCredentialsGrant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _ := newTokenValidator(t)

	machine := codeClient()
	machine.ID = "machine"
	machine.Flow = domain.FlowClientCredentials
	machine.AllowedScopes = []string{"api", "reports", "openid", "offline_access"}

	form := func(scope string) url.Values {
		return url.Values{
			"grant_type": {domain.GrantTypeClientCredentials},
			"scope":      {scope},
		}
	}

	t.Run("resource scopes pass", func(t *testing.T) {
		req, err := v.Validate(ctx, form("api reports"), &machine)
		require.NoError(t, err)
		require.Nil(t, req.Subject)
		require.Equal(t, []string{"api", "reports"}, req.Scopes.GrantedScopeNames())
	})

	t.Run("identity scopes are rejected", func(t *testing.T) {
		_, err := v.Validate(ctx, form("openid api"), &machine)
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("offline_access is rejected", func(t *testing.T) {
		_, err := v.Validate(ctx, form("api offline_access"), &machine)
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("wrong flow is unauthorized", func(t *testing.T) {
		web := codeClient()
		_, err := v.Validate(ctx, form("api"), &web)
		require.ErrorIs(t, err, ErrUnauthorizedClient)
	})
}

func TestValidatePasswordGrant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _ := newTokenValidator(t)

	trusted := codeClient()
	trusted.ID = "trusted"
	trusted.Flow = domain.FlowResourceOwner
	trusted.EnableLocalLogin = true

	form := func(username, password string) url.Values {
		return url.Values{
			"grant_type": {domain.GrantTypePassword},
			"scope":      {"openid api"},
			"username":   {username},
			"password":   {password},
		}
	}

	t.Run("valid credentials authenticate the subject", func(t *testing.T) {
		req, err := v.Validate(ctx, form("alice", "correct horse battery staple"), &trusted)
		require.NoError(t, err)
		require.NotNil(t, req.Subject)
		require.Equal(t, "subject-1", req.Subject.ID)
		require.Equal(t, domain.AuthenticationMethodPassword, req.Subject.AuthenticationMethod)
		require.True(t, req.IsOpenIDRequest)
	})

	t.Run("wrong password is invalid_grant", func(t *testing.T) {
		_, err := v.Validate(ctx, form("alice", "wrong"), &trusted)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("inactive account is invalid_grant", func(t *testing.T) {
		_, err := v.Validate(ctx, form("bob", "hunter2hunter2"), &trusted)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("acr_values hints are extracted", func(t *testing.T) {
		params := form("alice", "correct horse battery staple")
		params.Set("acr_values", "idp:google tenant:acme level2")

		req, err := v.Validate(ctx, params, &trusted)
		require.NoError(t, err)
		require.Equal(t, "google", req.HomeRealm)
		require.Equal(t, "acme", req.Tenant)
		require.Equal(t, "level2", req.ACR)
		require.Equal(t, "level2", req.Subject.ACR)
	})

	t.Run("client without local login is unauthorized", func(t *testing.T) {
		noLogin := trusted
		noLogin.EnableLocalLogin = false
		_, err := v.Validate(ctx, form("alice", "correct horse battery staple"), &noLogin)
		require.ErrorIs(t, err, ErrUnauthorizedClient)
	})

	t.Run("global switch overrides the client", func(t *testing.T) {
		v2, _ := newTokenValidator(t)
		v2.EnableLocalLogin = false
		_, err := v2.Validate(ctx, form("alice", "correct horse battery staple"), &trusted)
		require.ErrorIs(t, err, ErrUnauthorizedClient)
	})
}

func TestValidateRefreshTokenGrant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, st := newTokenValidator(t)

	client := codeClient()

	seed := func(t *testing.T, handle string, mutate func(*domain.RefreshToken)) {
		t.Helper()
		rt := domain.RefreshToken{
			ID:        idx.New().String(),
			TokenHash: cryptox.FingerprintToken(handle),
			ClientID:  client.ID,
			Subject:   "subject-1",
			Scopes:    []string{"openid", "api", "offline_access"},
			CreatedAt: time.Now().UTC(),
			Lifetime:  time.Hour,
		}
		if mutate != nil {
			mutate(&rt)
		}
		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, rt))
	}

	form := func(handle string) url.Values {
		return url.Values{
			"grant_type":    {domain.GrantTypeRefreshToken},
			"refresh_token": {handle},
		}
	}

	t.Run("valid refresh token resolves scopes and subject", func(t *testing.T) {
		seed(t, "rt-valid", nil)

		req, err := v.Validate(ctx, form("rt-valid"), &client)
		require.NoError(t, err)
		require.NotNil(t, req.RefreshToken)
		require.Equal(t, "rt-valid", req.RefreshTokenHandle)
		require.Equal(t, "subject-1", req.Subject.ID)
		require.True(t, req.IsOpenIDRequest)
	})

	t.Run("unknown handle is invalid_grant", func(t *testing.T) {
		_, err := v.Validate(ctx, form("rt-unknown"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("expired token is invalid_grant", func(t *testing.T) {
		seed(t, "rt-expired", func(rt *domain.RefreshToken) {
			rt.CreatedAt = time.Now().Add(-2 * time.Hour)
		})

		_, err := v.Validate(ctx, form("rt-expired"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("token bound to another client is invalid_grant", func(t *testing.T) {
		seed(t, "rt-other", func(rt *domain.RefreshToken) {
			rt.ClientID = "someone-else"
		})

		_, err := v.Validate(ctx, form("rt-other"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("client stripped of offline_access loses the token", func(t *testing.T) {
		seed(t, "rt-stripped", nil)

		restricted := client
		restricted.AllowedScopes = []string{"openid", "api"}
		_, err := v.Validate(ctx, form("rt-stripped"), &restricted)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("granted scope revoked from client loses the token", func(t *testing.T) {
		seed(t, "rt-revoked-scope", nil)

		restricted := client
		restricted.AllowedScopes = []string{"openid", "offline_access"}
		_, err := v.Validate(ctx, form("rt-revoked-scope"), &restricted)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("inactive subject loses the token", func(t *testing.T) {
		seed(t, "rt-inactive", func(rt *domain.RefreshToken) {
			rt.Subject = "subject-2"
		})

		_, err := v.Validate(ctx, form("rt-inactive"), &client)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestValidateCustomGrant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _ := newTokenValidator(t)

	const grantType = "urn:example:delegation"

	custom := codeClient()
	custom.ID = "delegator"
	custom.Flow = domain.FlowCustom
	custom.AllowedCustomGrantTypes = []string{grantType}
	custom.AllowedScopes = []string{"api"}

	form := url.Values{
		"grant_type": {grantType},
		"scope":      {"api"},
	}

	t.Run("unregistered grant type is unsupported", func(t *testing.T) {
		_, err := v.Validate(ctx, form, &custom)
		require.ErrorIs(t, err, ErrUnsupportedGrantType)
	})

	t.Run("registered validator can substitute the subject", func(t *testing.T) {
		v.custom.Register(stubGrantValidator{
			grantType: grantType,
			subject:   &domain.Subject{ID: "delegated-subject"},
		})

		req, err := v.Validate(ctx, form, &custom)
		require.NoError(t, err)
		require.Equal(t, "delegated-subject", req.Subject.ID)
	})

	t.Run("client not allowed the grant type is unauthorized", func(t *testing.T) {
		other := custom
		other.AllowedCustomGrantTypes = []string{"urn:example:other"}
		_, err := v.Validate(ctx, form, &other)
		require.ErrorIs(t, err, ErrUnauthorizedClient)
	})

	t.Run("non custom-flow client is unauthorized", func(t *testing.T) {
		web := codeClient()
		_, err := v.Validate(ctx, form, &web)
		require.ErrorIs(t, err, ErrUnauthorizedClient)
	})
}

func TestValidateRequestedTokenType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _ := newTokenValidator(t)

	machine := codeClient()
	machine.ID = "machine"
	machine.Flow = domain.FlowClientCredentials
	machine.AllowedScopes = []string{"api"}

	popForm := func(mutate func(url.Values)) url.Values {
		jwk := `{"kty":"RSA","n":"0vx7agoebGcQSuuPiLJXZpt","e":"AQAB"}`
		params := url.Values{
			"grant_type": {domain.GrantTypeClientCredentials},
			"scope":      {"api"},
			"token_type": {"pop"},
			"alg":        {"RS256"},
			"key":        {base64.RawURLEncoding.EncodeToString([]byte(jwk))},
		}
		if mutate != nil {
			mutate(params)
		}
		return params
	}

	t.Run("bearer is the default", func(t *testing.T) {
		params := popForm(func(p url.Values) {
			p.Del("token_type")
			p.Del("alg")
			p.Del("key")
		})
		req, err := v.Validate(ctx, params, &machine)
		require.NoError(t, err)
		require.Equal(t, domain.RequestedTokenTypeBearer, req.TokenType)
		require.Nil(t, req.ProofKey)
	})

	t.Run("valid pop request captures the proof key", func(t *testing.T) {
		req, err := v.Validate(ctx, popForm(nil), &machine)
		require.NoError(t, err)
		require.Equal(t, domain.RequestedTokenTypePoP, req.TokenType)
		require.NotNil(t, req.ProofKey)
		require.Equal(t, "RS256", req.ProofKey.Algorithm)
	})

	t.Run("unsupported algorithm is rejected", func(t *testing.T) {
		params := popForm(func(p url.Values) { p.Set("alg", "HS256") })
		_, err := v.Validate(ctx, params, &machine)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("key must be a base64url JWK", func(t *testing.T) {
		params := popForm(func(p url.Values) {
			p.Set("key", base64.RawURLEncoding.EncodeToString([]byte(`{"no_kty":true}`)))
		})
		_, err := v.Validate(ctx, params, &machine)
		require.ErrorIs(t, err, ErrInvalidRequest)

		params = popForm(func(p url.Values) { p.Set("key", "!!not-base64!!") })
		_, err = v.Validate(ctx, params, &machine)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown token_type is rejected", func(t *testing.T) {
		params := popForm(func(p url.Values) { p.Set("token_type", "mac") })
		_, err := v.Validate(ctx, params, &machine)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

type stubGrantValidator struct {
	grantType string
	subject   *domain.Subject
	err       error
}

func (s stubGrantValidator) GrantType() string { return s.grantType }

func (s stubGrantValidator) Validate(context.Context, *ValidatedTokenRequest) (*domain.Subject, error) {
	return s.subject, s.err
}

func TestVerifyCodeVerifier(t *testing.T) {
	t.Parallel()

	t.Run("plain compares directly", func(t *testing.T) {
		require.True(t, VerifyCodeVerifier("abc", "abc", domain.CodeChallengeMethodPlain))
		require.False(t, VerifyCodeVerifier("abc", "xyz", domain.CodeChallengeMethodPlain))
	})

	t.Run("S256 hashes then compares", func(t *testing.T) {
		verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
		sum := sha256.Sum256([]byte(verifier))
		challenge := base64.RawURLEncoding.EncodeToString(sum[:])

		require.True(t, VerifyCodeVerifier(verifier, challenge, domain.CodeChallengeMethodS256))
		require.False(t, VerifyCodeVerifier("other", challenge, domain.CodeChallengeMethodS256))
	})

	t.Run("unknown method never matches", func(t *testing.T) {
		require.False(t, VerifyCodeVerifier("abc", "abc", "S512"))
	})
}
