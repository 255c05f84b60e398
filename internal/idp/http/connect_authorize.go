package http

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/users"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// AuthorizeHandler serves the OIDC authorize endpoint. GET begins the flow
// for an already authenticated browser; POST additionally accepts local
// username/password credentials.
type AuthorizeHandler struct {
	Validator *validation.AuthorizeRequestValidator
	Responses *service.AuthorizeResponseGenerator
	Users     users.Service
	Verifier  jwtx.Verifier
}

// HandleGet godoc
//
//	@Summary		OIDC Authorization Endpoint (GET)
//	@Description	Begins an authorization flow via browser redirect. If the request carries a valid
//	@Description	session (Bearer token), the response artifacts are issued immediately and delivered
//	@Description	to the redirect_uri per the negotiated response_mode. Without a session the endpoint
//	@Description	returns 401 with login_required and echoes the request so a login UI can resubmit it.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string	true	"Response type"	Enums(code, token, id_token, "id_token token", "code id_token", "code token", "code id_token token")
//	@Param			client_id				query		string	true	"Client identifier"
//	@Param			redirect_uri			query		string	true	"Callback URI (must match a registered redirect URI)"
//	@Param			scope					query		string	true	"Space-delimited list of scopes"	example("openid profile api")
//	@Param			response_mode			query		string	false	"Response delivery mechanism"		Enums(query, fragment, form_post)
//	@Param			state					query		string	false	"Opaque value echoed back to the client"
//	@Param			nonce					query		string	false	"OIDC nonce, bound into the id_token"
//	@Param			code_challenge			query		string	false	"Proof-key challenge (required for proof-key clients)"
//	@Param			code_challenge_method	query		string	false	"Proof-key method"	Enums(S256, plain)
//	@Param			login_hint				query		string	false	"Hint for the login UI"
//	@Param			acr_values				query		string	false	"Requested authentication context references"
//	@Param			max_age					query		int		false	"Maximum authentication age in seconds"
//	@Success		302						{string}	string	"Redirect to redirect_uri with the response artifacts"
//	@Failure		400						{object}	oauth2x.OAuth2Error
//	@Failure		401						{object}	map[string]interface{}	"login_required with the echoed request"
//	@Router			/connect/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, r.URL.Query(), h.resolveSubject(r))
}

// HandlePost godoc
//
//	@Summary		OIDC Authorization Endpoint (POST)
//	@Description	Same as GET but accepts the request as a form body, optionally together with local
//	@Description	username/password credentials. A login UI posts back here after collecting them.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			response_type	formData	string	true	"Response type"
//	@Param			client_id		formData	string	true	"Client identifier"
//	@Param			redirect_uri	formData	string	true	"Callback URI"
//	@Param			scope			formData	string	true	"Space-delimited list of scopes"
//	@Param			state			formData	string	false	"Opaque value echoed back to the client"
//	@Param			nonce			formData	string	false	"OIDC nonce"
//	@Param			username		formData	string	false	"Username for local login"
//	@Param			password		formData	string	false	"Password for local login"
//	@Success		302				{string}	string	"Redirect to redirect_uri with the response artifacts"
//	@Failure		400				{object}	oauth2x.OAuth2Error
//	@Failure		401				{object}	map[string]interface{}	"login_required or access_denied"
//	@Router			/connect/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
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

	subject := h.resolveSubject(r)

	// Local login: credentials posted alongside the protocol parameters.
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if subject == nil && username != "" {
		authenticated, err := h.Users.AuthenticateLocal(ctx, username, password)
		if err != nil {
			log.Warn("local login failed", "username", username)
			oauth2x.NewOAuth2Error(
				http.StatusUnauthorized,
				oauth2x.ErrorCodeAccessDenied,
				"invalid username or password",
			).WriteError(w)
			return
		}
		subject = authenticated
	}

	// r.Form merges the query string and the body; credentials never make
	// it into the validated request because the validator only reads the
	// protocol parameters.
	h.process(w, r, r.Form, subject)
}

func (h *AuthorizeHandler) process(w http.ResponseWriter, r *http.Request, params url.Values, subject *domain.Subject) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, aerr := h.Validator.Validate(ctx, params, subject)
	if aerr != nil {
		h.writeAuthorizeError(w, r, aerr)
		return
	}

	resp, err := h.Responses.Process(ctx, req)
	if err != nil {
		if errors.Is(err, validation.ErrLoginRequired) {
			writeLoginRequired(w, params)
			return
		}
		log.Error("authorize response generation failed", "error", err)
		oauth2x.ErrServerError.WriteError(w)
		return
	}

	h.deliver(w, r, resp)
}

// deliver sends the response artifacts to the redirect URI using the
// negotiated response mode.
func (h *AuthorizeHandler) deliver(w http.ResponseWriter, r *http.Request, resp *oauth2x.AuthorizeResponse) {
	params := url.Values{}
	if resp.Code != "" {
		params.Set("code", resp.Code)
	}
	if resp.AccessToken != "" {
		params.Set("access_token", resp.AccessToken)
		params.Set("token_type", resp.TokenType)
		params.Set("expires_in", strconv.FormatInt(resp.ExpiresIn, 10))
	}
	if resp.IdentityToken != "" {
		params.Set("id_token", resp.IdentityToken)
	}
	if resp.Scope != "" {
		params.Set("scope", resp.Scope)
	}
	if resp.State != "" {
		params.Set("state", resp.State)
	}
	if resp.SessionState != "" {
		params.Set("session_state", resp.SessionState)
	}

	sendResponseParams(w, r, resp.RedirectURI, resp.ResponseMode, params)
}

func (h *AuthorizeHandler) writeAuthorizeError(w http.ResponseWriter, r *http.Request, aerr *validation.AuthorizeError) {
	log := slogx.FromContext(r.Context())

	if aerr.Target == validation.ErrorTargetClient && aerr.RedirectURI != "" {
		params := url.Values{}
		params.Set("error", aerr.Code)
		if aerr.Description != "" {
			params.Set("error_description", aerr.Description)
		}
		if aerr.State != "" {
			params.Set("state", aerr.State)
		}
		sendResponseParams(w, r, aerr.RedirectURI, aerr.ResponseMode, params)
		log.Debug("authorize error redirected to client", "error_code", aerr.Code)
		return
	}

	// User-facing: never redirect. RFC 6749 3.1.2.4 forbids bouncing the
	// user agent to an unvalidated redirect URI.
	oauth2x.NewOAuth2Error(statusForAuthorizeError(aerr.Code), aerr.Code, aerr.Description).WriteError(w)
	log.Debug("authorize error returned to user", "error_code", aerr.Code)
}

func statusForAuthorizeError(code string) int {
	switch code {
	case oauth2x.ErrorCodeUnauthorizedClient:
		return http.StatusUnauthorized
	case oauth2x.ErrorCodeServerError:
		return http.StatusInternalServerError
	case oauth2x.ErrorCodeLoginRequired:
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// writeLoginRequired returns the request back to the caller so a login UI
// can collect credentials and resubmit. The echoed redirect_uri has been
// validated by this point.
func writeLoginRequired(w http.ResponseWriter, params url.Values) {
	payload := map[string]any{
		"error":             oauth2x.ErrorCodeLoginRequired,
		"error_description": "user authentication required",
		"response_type":     params.Get("response_type"),
		"client_id":         params.Get("client_id"),
		"redirect_uri":      params.Get("redirect_uri"),
	}
	if scope := params.Get("scope"); scope != "" {
		payload["scope"] = scope
	}
	if state := params.Get("state"); state != "" {
		payload["state"] = state
	}
	httpx.WriteJSON(w, http.StatusUnauthorized, payload)
}

// sendResponseParams delivers params to the redirect URI in the given
// response mode: query and fragment are 302 redirects, form_post renders an
// auto-submitting HTML form.
func sendResponseParams(w http.ResponseWriter, r *http.Request, redirectURI, mode string, params url.Values) {
	if mode == domain.ResponseModeFormPost {
		writeFormPostPage(w, redirectURI, params)
		return
	}

	u, err := url.Parse(redirectURI)
	if err != nil {
		oauth2x.ErrServerError.WriteError(w)
		return
	}

	switch mode {
	case domain.ResponseModeFragment:
		u.Fragment = ""
		u.RawFragment = ""
		target := u.String() + "#" + params.Encode()
		http.Redirect(w, r, target, http.StatusFound)
	default:
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Set(key, v)
			}
		}
		u.RawQuery = q.Encode()
		http.Redirect(w, r, u.String(), http.StatusFound)
	}
}

// formPostPage auto-submits the response parameters to the client per the
// OAuth2 Form Post Response Mode draft.
var formPostPage = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html>
<head><title>Submit this form</title></head>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{- range $name, $values := .Params}}{{range $values}}
<input type="hidden" name="{{$name}}" value="{{.}}"/>
{{- end}}{{end}}
<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

func writeFormPostPage(w http.ResponseWriter, action string, params url.Values) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = formPostPage.Execute(w, struct {
		Action string
		Params url.Values
	}{Action: action, Params: params})
}

// resolveSubject turns a Bearer token into the authenticated subject, when
// one is present and verifies.
func (h *AuthorizeHandler) resolveSubject(r *http.Request) *domain.Subject {
	token := extractBearerToken(r)
	if token == "" {
		return nil
	}

	claims, err := h.Verifier.Verify(token)
	if err != nil {
		slogx.FromContext(r.Context()).Debug("failed to verify session token", "error", err)
		return nil
	}
	if claims.Subject == "" {
		return nil
	}

	subject := &domain.Subject{
		ID:               claims.Subject,
		SessionID:        claims.SID,
		IdentityProvider: claims.IDP,
		ACR:              claims.ACR,
	}
	if len(claims.AMR) > 0 {
		subject.AuthenticationMethod = claims.AMR[0]
	}
	if claims.AuthTime != 0 {
		subject.AuthenticationTime = time.Unix(claims.AuthTime, 0).UTC()
	}
	return subject
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}
