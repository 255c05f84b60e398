package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// RevocationHandler serves POST /connect/revocation per RFC 7009.
type RevocationHandler struct {
	ClientAuth  *validation.ClientAuthenticator
	Validator   *validation.RevocationRequestValidator
	Revocations *service.RevocationService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes a reference access token or refresh token per RFC 7009. Revoking a refresh
//	@Description	token also revokes the access tokens issued with it. Unknown tokens and tokens owned
//	@Description	by another client return 200 all the same, so the endpoint cannot be used to probe.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string				true	"The token handle to revoke"
//	@Param			token_type_hint	formData	string				false	"Where to look first"	Enums(access_token, refresh_token)
//	@Success		200				{string}	string				"Token revoked (or was never visible to this client)"
//	@Failure		400				{object}	oauth2x.OAuth2Error	"error, error_description"
//	@Failure		401				{object}	oauth2x.OAuth2Error	"error, error_description"
//	@Router			/connect/revocation [post].
func (h *RevocationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		oauth2x.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		oauth2x.ErrInvalidFormBody.WriteError(w)
		return
	}

	client, err := h.ClientAuth.Authenticate(ctx, r)
	if err != nil {
		writeInvalidClient(w)
		return
	}

	req, err := h.Validator.Validate(ctx, r.PostForm, client)
	if err != nil {
		writeTokenError(w, log, err)
		return
	}

	if err := h.Revocations.Revoke(ctx, req); err != nil {
		log.Error("revocation failed", "error", err)
		oauth2x.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
}
