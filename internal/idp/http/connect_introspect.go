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

// IntrospectionHandler serves POST /connect/introspect per RFC 7662.
// Callers authenticate as scope owners, not clients: an API introspects the
// tokens presented to it using its own scope secret.
type IntrospectionHandler struct {
	ScopeAuth      *validation.ScopeAuthenticator
	Validator      *validation.IntrospectionRequestValidator
	Introspections *service.IntrospectionService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Reports whether a reference token is active and, if so, its claims. A token is only
//	@Description	active for callers whose scope actually appears on it; everything else gets a bare
//	@Description	{"active": false} so the endpoint leaks nothing about foreign tokens.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token	formData	string							true	"The token handle to introspect"
//	@Success		200		{object}	oauth2x.IntrospectionResponse	"active plus the token claims when visible"
//	@Failure		400		{object}	oauth2x.OAuth2Error				"error, error_description"
//	@Failure		401		{object}	oauth2x.OAuth2Error				"error, error_description"
//	@Router			/connect/introspect [post].
func (h *IntrospectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	scope, err := h.ScopeAuth.Authenticate(ctx, r)
	if err != nil {
		writeInvalidClient(w)
		return
	}

	req, err := h.Validator.Validate(ctx, r.PostForm, scope)
	if err != nil {
		writeTokenError(w, log, err)
		return
	}

	resp, err := h.Introspections.Introspect(ctx, req)
	if err != nil {
		log.Error("introspection failed", "error", err)
		oauth2x.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
