package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// TokenHandler serves POST /connect/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	ClientAuth *validation.ClientAuthenticator
	Validator  *validation.TokenRequestValidator
	Responses  *service.TokenResponseGenerator
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues access, identity and refresh tokens for the supported grant types (authorization_code, client_credentials, password, refresh_token and registered extension grants).
//	@Description	Clients authenticate with HTTP Basic, post-body credentials, or a private_key_jwt assertion.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, client_credentials, password, refresh_token)
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI the code was issued for (authorization_code grant)"
//	@Param			code_verifier	formData	string					false	"Proof-key verifier (required when the code carries a challenge)"
//	@Param			refresh_token	formData	string					false	"Refresh token handle (refresh_token grant)"
//	@Param			username		formData	string					false	"Resource owner username (password grant)"
//	@Param			password		formData	string					false	"Resource owner password (password grant)"
//	@Param			client_id		formData	string					false	"Client identifier (when not using Basic auth)"
//	@Param			client_secret	formData	string					false	"Client secret (when not using Basic auth)"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Param			token_type		formData	string					false	"Requested token type (bearer or pop)"
//	@Success		200				{object}	oauth2x.TokenResponse	"access_token, id_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	oauth2x.OAuth2Error		"error, error_description"
//	@Failure		401				{object}	oauth2x.OAuth2Error		"error, error_description"
//	@Failure		500				{object}	oauth2x.OAuth2Error		"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/connect/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		oauth2x.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		oauth2x.ErrInvalidFormBody.WriteError(w)
		return
	}

	// 3. Authenticate the client before touching any grant material.
	client, err := h.ClientAuth.Authenticate(ctx, r)
	if err != nil {
		writeInvalidClient(w)
		return
	}

	// 4. Run the grant-specific validation pipeline.
	req, err := h.Validator.Validate(ctx, r.PostForm, client)
	if err != nil {
		writeTokenError(w, log, err)
		return
	}

	// 5. Mint the response.
	resp, err := h.Responses.Process(ctx, req)
	if err != nil {
		writeTokenError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// writeInvalidClient writes the 401 for failed client authentication with
// the WWW-Authenticate challenge RFC 6749 5.2 asks for.
func writeInvalidClient(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
	oauth2x.ErrInvalidClient.WriteError(w)
}

// writeTokenError maps validation sentinels onto the RFC 6749 wire errors.
// Anything unmapped is an internal fault and must not leak detail.
func writeTokenError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, validation.ErrInvalidRequest):
		oauth2x.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, validation.ErrInvalidClient):
		writeInvalidClient(w)
	case errors.Is(err, validation.ErrInvalidGrant):
		oauth2x.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, validation.ErrInvalidScope):
		oauth2x.ErrInvalidScope.WriteError(w)
	case errors.Is(err, validation.ErrUnauthorizedClient):
		oauth2x.ErrUnauthorizedClient.WriteError(w)
	case errors.Is(err, validation.ErrUnsupportedGrantType):
		oauth2x.ErrUnsupportedGrantType.WriteError(w)
	default:
		log.Error("token request failed", "error", err)
		oauth2x.ErrServerError.WriteError(w)
	}
}
