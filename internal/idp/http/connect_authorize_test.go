package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// authorizeForm returns a valid code-flow request for web-app. Tests mutate
// it for their failure case.
func authorizeForm() url.Values {
	return url.Values{
		"response_type": {"code"},
		"client_id":     {"web-app"},
		"redirect_uri":  {testRedirectURI},
		"scope":         {"openid profile api offline_access"},
		"state":         {"state-123"},
		"nonce":         {"nonce-456"},
	}
}

func withCredentials(form url.Values) url.Values {
	form.Set("username", "alice")
	form.Set("password", testPassword)
	return form
}

func TestAuthorizeGetRequiresLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/connect/authorize?"+authorizeForm().Encode(), nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "login_required", body["error"])
	require.Equal(t, "web-app", body["client_id"])
	require.Equal(t, testRedirectURI, body["redirect_uri"])
	require.Equal(t, "state-123", body["state"])
}

func TestAuthorizeGetWithSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+env.sessionToken(t, "subject-1"))
	rec := env.get(t, "/connect/authorize?"+authorizeForm().Encode(), header)

	u, params := locationValues(t, rec)
	require.True(t, strings.HasPrefix(u.String(), testRedirectURI))
	require.NotEmpty(t, params.Get("code"))
	require.Equal(t, "state-123", params.Get("state"))
}

func TestAuthorizeGetUnknownClient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := authorizeForm()
	form.Set("client_id", "no-such-app")
	rec := env.get(t, "/connect/authorize?"+form.Encode(), nil)

	// Never a redirect: the redirect_uri is unvalidated at this point.
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized_client", decodeWireError(t, rec))
}

func TestAuthorizeGetUnregisteredRedirectURI(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := authorizeForm()
	form.Set("redirect_uri", "https://evil.example/steal")
	rec := env.get(t, "/connect/authorize?"+form.Encode(), nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeWireError(t, rec))
	require.Empty(t, rec.Header().Get("Location"))
}

func TestAuthorizeGetInvalidScopeRedirectsError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := authorizeForm()
	form.Set("scope", "openid no-such-scope")
	rec := env.get(t, "/connect/authorize?"+form.Encode(), nil)

	// Client and redirect_uri validated, so the error travels back to the
	// client with the state echoed.
	u, params := locationValues(t, rec)
	require.True(t, strings.HasPrefix(u.String(), testRedirectURI))
	require.Equal(t, "invalid_scope", params.Get("error"))
	require.Equal(t, "state-123", params.Get("state"))
}

func TestAuthorizePostLocalLoginIssuesCode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.postForm(t, "/connect/authorize", withCredentials(authorizeForm()), "", "")

	u, params := locationValues(t, rec)
	require.True(t, strings.HasPrefix(u.String(), testRedirectURI))
	code := params.Get("code")
	require.NotEmpty(t, code)
	require.Equal(t, "state-123", params.Get("state"))

	// Redeem the code the way the client would.
	tokenRec := env.postForm(t, "/connect/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {testRedirectURI},
	}, "web-app", "web-secret")

	resp := decodeTokenResponse(t, tokenRec)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.IdentityToken)
	require.NotEmpty(t, resp.RefreshToken)

	identity := decodeJWT(t, resp.IdentityToken)
	require.Equal(t, "subject-1", identity["sub"])
	require.Equal(t, "nonce-456", identity["nonce"])

	// Codes are single use.
	replay := env.postForm(t, "/connect/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {testRedirectURI},
	}, "web-app", "web-secret")
	require.Equal(t, http.StatusBadRequest, replay.Code)
	require.Equal(t, "invalid_grant", decodeWireError(t, replay))
}

func TestAuthorizePostBadCredentials(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := authorizeForm()
	form.Set("username", "alice")
	form.Set("password", "nope")
	rec := env.postForm(t, "/connect/authorize", form, "", "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "access_denied", decodeWireError(t, rec))
}

func TestAuthorizePostImplicitFlowFragment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := url.Values{
		"response_type": {"id_token token"},
		"client_id":     {"spa-app"},
		"redirect_uri":  {testRedirectURI},
		"scope":         {"openid profile"},
		"state":         {"s-imp"},
		"nonce":         {"n-imp"},
	}
	rec := env.postForm(t, "/connect/authorize", withCredentials(form), "", "")

	require.Equal(t, http.StatusFound, rec.Code, "body: %s", rec.Body.String())
	loc := rec.Header().Get("Location")
	require.Contains(t, loc, "#", "implicit responses travel in the fragment")

	_, params := locationValues(t, rec)
	require.NotEmpty(t, params.Get("access_token"))
	require.NotEmpty(t, params.Get("id_token"))
	require.Equal(t, "Bearer", params.Get("token_type"))
	require.Equal(t, "s-imp", params.Get("state"))
	require.Empty(t, params.Get("code"))
}

func TestAuthorizePostFormPostResponseMode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := withCredentials(authorizeForm())
	form.Set("response_mode", "form_post")
	rec := env.postForm(t, "/connect/authorize", form, "", "")

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	require.Contains(t, body, `action="`+testRedirectURI+`"`)
	require.Contains(t, body, `name="code"`)
	require.Contains(t, body, `name="state"`)
}

func TestAuthorizePostImplicitRequiresNonce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := url.Values{
		"response_type": {"id_token token"},
		"client_id":     {"spa-app"},
		"redirect_uri":  {testRedirectURI},
		"scope":         {"openid"},
		"state":         {"s-non"},
	}
	rec := env.postForm(t, "/connect/authorize", withCredentials(form), "", "")

	_, params := locationValues(t, rec)
	require.Equal(t, "invalid_request", params.Get("error"))
	require.Equal(t, "s-non", params.Get("state"))
}
