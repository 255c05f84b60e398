package http

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/secrets"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/users"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
)

const (
	testIssuer  = "https://idp.example.com"
	testVersion = "v0.0.0-test"

	testRedirectURI = "https://app.example/callback"
	testPassword    = "correct horse battery staple"
)

// testEnv is a fully wired router over an in-memory store. Each test builds
// its own so the per-route rate limiters start fresh.
type testEnv struct {
	router *Router
	store  *sqlite.Store
	keys   *jwtx.KeyManager
}

// sharedSecret returns a stored shared secret whose value is the base64
// SHA-256 digest of the plaintext, the way provisioning writes them.
func sharedSecret(plaintext string) domain.Secret {
	sum := sha256.Sum256([]byte(plaintext))
	return domain.Secret{
		Type:  domain.SecretTypeSharedSecret,
		Value: base64.StdEncoding.EncodeToString(sum[:]),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	scopes := []domain.Scope{
		{Name: "openid", Type: domain.ScopeTypeIdentity, Enabled: true, Required: true},
		{Name: "profile", Type: domain.ScopeTypeIdentity, Enabled: true,
			Claims: []domain.ScopeClaim{{Name: "name", AlwaysIncludeInIdentityToken: true}}},
		{Name: "api", Type: domain.ScopeTypeResource, Enabled: true,
			Secrets: []domain.Secret{sharedSecret("api-owner-secret")}},
		{Name: "reports", Type: domain.ScopeTypeResource, Enabled: true,
			Secrets: []domain.Secret{sharedSecret("reports-owner-secret")}},
		{Name: "offline_access", Type: domain.ScopeTypeResource, Enabled: true},
	}
	for _, s := range scopes {
		require.NoError(t, st.Scopes().CreateScope(ctx, s))
	}

	clients := []domain.Client{
		{
			ID: "svc-app", Name: "Service App", Enabled: true,
			Flow:            domain.FlowClientCredentials,
			Secrets:         []domain.Secret{sharedSecret("svc-secret")},
			AllowedScopes:   []string{"api", "reports"},
			AccessTokenType: domain.AccessTokenTypeJWT,
		},
		{
			ID: "ref-app", Name: "Reference App", Enabled: true,
			Flow:            domain.FlowClientCredentials,
			Secrets:         []domain.Secret{sharedSecret("ref-secret")},
			AllowedScopes:   []string{"api"},
			AccessTokenType: domain.AccessTokenTypeReference,
		},
		{
			ID: "cli-app", Name: "CLI App", Enabled: true,
			Flow:             domain.FlowResourceOwner,
			Secrets:          []domain.Secret{sharedSecret("cli-secret")},
			AllowedScopes:    []string{"openid", "profile", "api", "offline_access"},
			AccessTokenType:  domain.AccessTokenTypeJWT,
			EnableLocalLogin: true,
		},
		{
			ID: "web-app", Name: "Web App", Enabled: true,
			Flow:            domain.FlowAuthorizationCode,
			Secrets:         []domain.Secret{sharedSecret("web-secret")},
			RedirectURIs:    []string{testRedirectURI},
			AllowedScopes:   []string{"openid", "profile", "api", "offline_access"},
			AccessTokenType: domain.AccessTokenTypeJWT,
		},
		{
			ID: "spa-app", Name: "SPA", Enabled: true,
			Flow:            domain.FlowImplicit,
			RedirectURIs:    []string{testRedirectURI},
			AllowedScopes:   []string{"openid", "profile"},
			AccessTokenType: domain.AccessTokenTypeJWT,
		},
	}
	for _, c := range clients {
		require.NoError(t, st.Clients().CreateClient(ctx, c))
	}

	userSvc, err := users.NewInMemoryService(users.User{
		SubjectID: "subject-1",
		Username:  "alice",
		Password:  testPassword,
		Name:      "Alice",
		Active:    true,
		Claims: []domain.Claim{
			{Type: "name", Value: "Alice"},
			{Type: "email", Value: "alice@example.com"},
		},
	})
	require.NoError(t, err)

	keys, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmES256,
		Issuer:    testIssuer,
	})
	require.NoError(t, err)

	sink := events.NopSink{}
	parsers := secrets.DefaultParserChain()
	validators := secrets.DefaultValidatorChain(testIssuer+"/connect/token", secrets.NewReplayCache())

	tokenValidator := validation.NewTokenRequestValidator(st, userSvc, sink, validation.NewCustomGrantRegistry())
	claims := service.NewClaimsProvider(userSvc)
	tokens := service.NewTokenService(testIssuer, keys.Signer, claims, st, sink)
	refresh := service.NewRefreshTokenService(st)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(keys.KeySet, keys.Verifier, testIssuer, keys.Algorithm(), testVersion, st, logger)
	router.Users = userSvc
	router.ClientAuth = validation.NewClientAuthenticator(st.Clients(), parsers, validators, sink)
	router.ScopeAuth = validation.NewScopeAuthenticator(st.Scopes(), parsers, validators)
	router.AuthorizeValidator = validation.NewAuthorizeRequestValidator(st.Clients(), st.Scopes(), sink)
	router.TokenValidator = tokenValidator
	router.RevocationValidator = validation.NewRevocationRequestValidator()
	router.IntrospectionValidator = validation.NewIntrospectionRequestValidator()
	router.AuthorizeResponses = service.NewAuthorizeResponseGenerator(tokens, st)
	router.TokenResponses = service.NewTokenResponseGenerator(tokens, refresh)
	router.Revocations = service.NewRevocationService(st, sink)
	router.Introspections = service.NewIntrospectionService(st, sink)
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, keys: keys}
}

// postForm sends a form POST through the router with Basic credentials.
func (env *testEnv) postForm(t *testing.T, path string, form url.Values, id, secret string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if id != "" {
		req.SetBasicAuth(url.QueryEscape(id), url.QueryEscape(secret))
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(t *testing.T, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeTokenResponse(t *testing.T, rec *httptest.ResponseRecorder) oauth2x.TokenResponse {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var resp oauth2x.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// decodeWireError pulls the error code out of an RFC 6749 error body.
func decodeWireError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Code string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Code)
	return body.Code
}

// passwordTokens runs the password grant for cli-app and returns the
// response. One strict-limited token call.
func (env *testEnv) passwordTokens(t *testing.T, scope string) oauth2x.TokenResponse {
	t.Helper()

	rec := env.postForm(t, "/connect/token", url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {testPassword},
		"scope":      {scope},
	}, "cli-app", "cli-secret")
	return decodeTokenResponse(t, rec)
}

// sessionToken signs a short-lived token the authorize endpoint accepts as
// an authenticated browser session.
func (env *testEnv) sessionToken(t *testing.T, subjectID string) string {
	t.Helper()

	now := time.Now().UTC()
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		AMR:      jwt.ClaimStrings{"password"},
		AuthTime: now.Unix(),
		IDP:      domain.LocalIdentityProvider,
	}
	token, err := env.keys.Signer.Sign(claims)
	require.NoError(t, err)
	return token
}

// decodeJWT parses a compact JWT without verifying the signature; signature
// verification is covered in the jwtx tests.
func decodeJWT(t *testing.T, token string) jwt.MapClaims {
	t.Helper()

	require.Equal(t, 3, len(strings.Split(token, ".")), "expected a compact JWT")
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims
}

// locationValues parses the query or fragment parameters off a redirect.
func locationValues(t *testing.T, rec *httptest.ResponseRecorder) (*url.URL, url.Values) {
	t.Helper()

	require.Equal(t, http.StatusFound, rec.Code, "body: %s", rec.Body.String())
	loc := rec.Header().Get("Location")
	require.NotEmpty(t, loc)

	u, err := url.Parse(loc)
	require.NoError(t, err)

	if u.Fragment != "" {
		params, err := url.ParseQuery(u.Fragment)
		require.NoError(t, err)
		return u, params
	}
	return u, u.Query()
}
