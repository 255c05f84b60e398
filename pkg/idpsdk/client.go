package idpsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/pkg/oauth2x"
)

// Client is a client for the identity provider's HTTP endpoints.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new identity provider client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// ClientCredentialsGrant requests a token with the client_credentials grant.
func (c *Client) ClientCredentialsGrant(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*TokenResponse, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return c.tokenRequest(ctx, clientID, clientSecret, form)
}

// PasswordGrant requests a token with the resource owner password grant.
func (c *Client) PasswordGrant(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
) (*TokenResponse, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return c.tokenRequest(ctx, clientID, clientSecret, form)
}

// AuthorizationCodeGrant redeems an authorization code for tokens.
func (c *Client) AuthorizationCodeGrant(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}
	return c.tokenRequest(ctx, clientID, clientSecret, form)
}

// RefreshGrant exchanges a refresh token for fresh tokens. Callers must
// switch to the returned refresh token: the old handle may have been
// rotated away.
func (c *Client) RefreshGrant(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
	scopes []string,
) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return c.tokenRequest(ctx, clientID, clientSecret, form)
}

// Revoke revokes an access or refresh token per RFC 7009. A 200 from the
// server means the token is gone or never belonged to this client; the
// endpoint deliberately does not distinguish.
func (c *Client) Revoke(ctx context.Context, clientID, clientSecret, token, tokenTypeHint string) error {
	form := url.Values{"token": {token}}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}

	resp, err := c.postForm(ctx, "/connect/revocation", clientID, clientSecret, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, body)
	}
	return nil
}

// Introspect asks the server about a token per RFC 7662. The caller
// authenticates as a scope owner, not as a client.
func (c *Client) Introspect(ctx context.Context, scopeName, scopeSecret, token string) (*IntrospectionResponse, error) {
	form := url.Values{"token": {token}}

	resp, err := c.postForm(ctx, "/connect/introspect", scopeName, scopeSecret, form)
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// JWKS fetches the server's published JSON Web Key Set.
func (c *Client) JWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.get(ctx, "/.well-known/jwks.json")
	if err != nil {
		return nil, err
	}

	var out JWKSResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Discovery fetches the OpenID Connect discovery document.
func (c *Client) Discovery(ctx context.Context) (*DiscoveryDocument, error) {
	resp, err := c.get(ctx, "/.well-known/openid-configuration")
	if err != nil {
		return nil, err
	}

	var out DiscoveryDocument
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Livez checks the liveness endpoint.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readyz checks the readiness endpoint.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Readyz reports degraded state with a 503 but still carries the body.
	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) tokenRequest(ctx context.Context, clientID, clientSecret string, form url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, "/connect/token", clientID, clientSecret, form)
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// postForm sends a form-encoded POST with HTTP Basic client authentication.
// Credentials are form-encoded inside the Basic header per RFC 6749 2.3.1.
func (c *Client) postForm(ctx context.Context, path, id, secret string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(url.QueryEscape(id), url.QueryEscape(secret))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response into the target.
// Returns a typed *oauth2x.OAuth2Error if the response indicates an error.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse turns an error body into a typed *oauth2x.OAuth2Error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var wire struct {
		Code        string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &wire); err != nil || wire.Code == "" {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &oauth2x.OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        wire.Code,
		Description: wire.Description,
	}
}
