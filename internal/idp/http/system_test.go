package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/pkg/idpsdk"
)

func TestLivez(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/livez", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health idpsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, testVersion, health.Version)
	require.NotEmpty(t, health.Uptime)
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health idpsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Signer)
}

func TestJWKSEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/.well-known/jwks.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var jwks idpsdk.JWKSResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, env.keys.Signer.KID(), jwks.Keys[0].Kid)
	require.Equal(t, "EC", jwks.Keys[0].Kty)
	require.Equal(t, "ES256", jwks.Keys[0].Alg)
}

func TestDiscoveryDocument(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/.well-known/openid-configuration", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc idpsdk.DiscoveryDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

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
	require.Contains(t, doc.ResponseTypesSupported, "code id_token token")
	require.ElementsMatch(t, []string{"query", "fragment", "form_post"}, doc.ResponseModesSupported)
	require.Equal(t, []string{"ES256"}, doc.IDTokenSigningAlgValuesSupported)
	require.ElementsMatch(t, []string{"plain", "S256"}, doc.CodeChallengeMethodsSupported)
}

func TestDiscoveryDocumentWithCustomGrants(t *testing.T) {
	t.Parallel()

	handler := DiscoveryHandler(testIssuer, "ES256", []string{"urn:example:delegation"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc idpsdk.DiscoveryDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Contains(t, doc.GrantTypesSupported, "urn:example:delegation")
	require.Contains(t, doc.GrantTypesSupported, "authorization_code")
}

func TestUnknownRouteIs404(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
