package validation

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// ErrorTarget says where an authorize failure must surface: on an error
// page shown to the user, or back to the client via redirect. The split is
// load-bearing: redirecting before the redirect_uri is validated would turn
// the endpoint into an open redirector.
type ErrorTarget int

const (
	ErrorTargetUser ErrorTarget = iota
	ErrorTargetClient
)

// AuthorizeError is a classified authorize-endpoint failure.
type AuthorizeError struct {
	Target      ErrorTarget
	Code        string
	Description string

	// Set for client-targeted errors so the response generator can build
	// the redirect.
	RedirectURI  string
	ResponseMode string
	State        string
}

func (e *AuthorizeError) Error() string {
	return e.Code + ": " + e.Description
}

// ValidatedAuthorizeRequest accumulates the outcome of the authorize
// pipeline. Request-scoped, never shared.
type ValidatedAuthorizeRequest struct {
	Raw url.Values

	Client  *domain.Client
	Subject *domain.Subject

	RedirectURI  string
	ResponseType string
	ResponseMode string
	Flow         domain.Flow
	State        string
	Nonce        string
	LoginHint    string
	ACRValues    []string
	MaxAge       *int

	CodeChallenge       string
	CodeChallengeMethod string

	IsOpenIDRequest bool
	SessionID       string

	Scopes *ScopeValidator
}

// AuthorizeRequestValidator runs the staged authorize pipeline: client and
// redirect_uri, core protocol params, scopes, optional params, then the
// custom hook.
type AuthorizeRequestValidator struct {
	clients store.Clients
	scopes  store.Scopes
	events  events.Sink

	// Hook may reject an otherwise valid request. Optional.
	Hook AuthorizeRequestHook

	// EnableSessionManagement makes the validator capture a session id for
	// authenticated users, for the check-session iframe.
	EnableSessionManagement bool
}

func NewAuthorizeRequestValidator(clients store.Clients, scopes store.Scopes, sink events.Sink) *AuthorizeRequestValidator {
	return &AuthorizeRequestValidator{clients: clients, scopes: scopes, events: sink}
}

// Validate runs all stages in order. The returned error is classified; a
// nil error means the request is fully valid and ready for consent/issuance.
func (v *AuthorizeRequestValidator) Validate(ctx context.Context, params url.Values, subject *domain.Subject) (*ValidatedAuthorizeRequest, *AuthorizeError) {
	req := &ValidatedAuthorizeRequest{
		Raw:     params,
		Subject: subject,
		Scopes:  NewScopeValidator(v.scopes),
	}

	stages := []func(context.Context, *ValidatedAuthorizeRequest) *AuthorizeError{
		v.validateClient,
		v.validateCoreParams,
		v.validateScopes,
		v.validateOptionalParams,
	}
	for _, stage := range stages {
		if aerr := stage(ctx, req); aerr != nil {
			v.raiseFailure(ctx, req, aerr)
			return nil, aerr
		}
	}

	if v.Hook != nil {
		if aerr := v.Hook.ValidateAuthorizeRequest(ctx, req); aerr != nil {
			v.raiseFailure(ctx, req, aerr)
			return nil, aerr
		}
	}

	return req, nil
}

// validateClient resolves client_id and redirect_uri. Everything here fails
// user-facing: there is no validated redirect target yet.
func (v *AuthorizeRequestValidator) validateClient(ctx context.Context, req *ValidatedAuthorizeRequest) *AuthorizeError {
	log := slogx.FromContext(ctx)

	clientID := req.Raw.Get("client_id")
	if clientID == "" || len(clientID) > domain.MaxClientIDLength {
		return userError(oauth2x.ErrorCodeInvalidRequest, "client_id is missing or too long")
	}

	client, err := v.clients.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("authorize request for unknown client", "client_id", clientID)
			return userError(oauth2x.ErrorCodeUnauthorizedClient, "unknown client")
		}
		log.Error("client store lookup failed", "error", err)
		return userError(oauth2x.ErrorCodeServerError, "")
	}
	if !client.Enabled {
		log.Warn("authorize request for disabled client", "client_id", clientID)
		return userError(oauth2x.ErrorCodeUnauthorizedClient, "client is disabled")
	}

	redirectURI := req.Raw.Get("redirect_uri")
	if redirectURI == "" || len(redirectURI) > domain.MaxRedirectURILength {
		return userError(oauth2x.ErrorCodeInvalidRequest, "redirect_uri is missing or too long")
	}
	parsed, err := url.Parse(redirectURI)
	if err != nil || !parsed.IsAbs() {
		return userError(oauth2x.ErrorCodeInvalidRequest, "redirect_uri must be an absolute URI")
	}
	if !client.HasRedirectURI(redirectURI) {
		log.Warn("redirect_uri not registered for client",
			"client_id", clientID, "redirect_uri", redirectURI)
		return userError(oauth2x.ErrorCodeInvalidRequest, "redirect_uri not registered")
	}

	req.Client = &client
	req.RedirectURI = redirectURI
	return nil
}

// validateCoreParams handles state, response_type, flow and response_mode.
// From here on protocol errors can be returned to the client via redirect.
func (v *AuthorizeRequestValidator) validateCoreParams(ctx context.Context, req *ValidatedAuthorizeRequest) *AuthorizeError {
	log := slogx.FromContext(ctx)

	state := req.Raw.Get("state")
	if len(state) > domain.MaxStateLength {
		return userError(oauth2x.ErrorCodeInvalidRequest, "state is too long")
	}
	req.State = state

	responseType := req.Raw.Get("response_type")
	flow, ok := flowForResponseType(responseType)
	if !ok {
		log.Warn("unsupported response_type", "response_type", responseType)
		return req.clientError(oauth2x.ErrorCodeUnsupportedResponseType, "response type not supported")
	}
	req.ResponseType = responseType

	if !flowMatchesClient(flow, req.Client.Flow) {
		log.Warn("response_type does not match client flow",
			"client_id", req.Client.ID, "response_type", responseType,
			"client_flow", req.Client.Flow)
		// Flow mismatch stays user-facing: the client asked for a grant it
		// was never registered for.
		return userError(oauth2x.ErrorCodeUnauthorizedClient, "client is not allowed this response type")
	}
	// Carry the client's flow so proof-key variants survive to redemption.
	req.Flow = req.Client.Flow

	mode := req.Raw.Get("response_mode")
	if mode == "" {
		mode = defaultResponseMode(flow)
	} else if !responseModeAllowed(mode, flow) {
		log.Warn("response_mode not allowed for flow", "response_mode", mode, "flow", flow)
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "response mode not allowed")
	}
	req.ResponseMode = mode

	return nil
}

func (v *AuthorizeRequestValidator) validateScopes(ctx context.Context, req *ValidatedAuthorizeRequest) *AuthorizeError {
	log := slogx.FromContext(ctx)

	rawScope := req.Raw.Get("scope")
	if rawScope == "" || len(rawScope) > domain.MaxScopeLength {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "scope is missing or too long")
	}

	requested := ParseScopeParam(rawScope)
	req.IsOpenIDRequest = slices.Contains(requested, domain.ScopeOpenID)

	// Plausibility before any store access: an id_token cannot be issued
	// without the openid scope.
	if responseTypeBearsIdentityToken(req.ResponseType) && !req.IsOpenIDRequest {
		log.Warn("identity token response type without openid scope",
			"response_type", req.ResponseType)
		return req.clientError(oauth2x.ErrorCodeInvalidScope, "openid scope is required")
	}

	valid, err := req.Scopes.AreScopesValid(ctx, requested)
	if err != nil {
		log.Error("scope store lookup failed", "error", err)
		return userError(oauth2x.ErrorCodeServerError, "")
	}
	if !valid {
		return req.clientError(oauth2x.ErrorCodeInvalidScope, "one or more scopes are invalid")
	}

	if !req.Scopes.AreScopesAllowed(ctx, req.Client, requested) {
		return req.clientError(oauth2x.ErrorCodeInvalidScope, "scope not allowed for client")
	}

	if !req.Scopes.IsResponseTypeValid(ctx, req.ResponseType) {
		return req.clientError(oauth2x.ErrorCodeInvalidScope, "scopes do not match response type")
	}

	return nil
}

func (v *AuthorizeRequestValidator) validateOptionalParams(ctx context.Context, req *ValidatedAuthorizeRequest) *AuthorizeError {
	log := slogx.FromContext(ctx)

	nonce := req.Raw.Get("nonce")
	if len(nonce) > domain.MaxNonceLength {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "nonce is too long")
	}
	flowNeedsNonce := req.Flow == domain.FlowImplicit ||
		req.Flow == domain.FlowHybrid || req.Flow == domain.FlowHybridWithProofKey
	if nonce == "" && flowNeedsNonce && req.IsOpenIDRequest {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "nonce is required for this flow")
	}
	req.Nonce = nonce

	if prompt := req.Raw.Get("prompt"); prompt != "" && !knownPrompt(prompt) {
		log.Info("ignoring unsupported prompt value", "prompt", prompt)
	}
	if display := req.Raw.Get("display"); display != "" && !knownDisplay(display) {
		log.Info("ignoring unsupported display value", "display", display)
	}

	if rawMaxAge := req.Raw.Get("max_age"); rawMaxAge != "" {
		maxAge, err := strconv.Atoi(rawMaxAge)
		if err != nil || maxAge < 0 {
			return req.clientError(oauth2x.ErrorCodeInvalidRequest, "max_age must be a non-negative integer")
		}
		req.MaxAge = &maxAge
	}

	loginHint := req.Raw.Get("login_hint")
	if len(loginHint) > domain.MaxLoginHintLength {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "login_hint is too long")
	}
	req.LoginHint = loginHint

	acrValues := req.Raw.Get("acr_values")
	if len(acrValues) > domain.MaxAcrValuesLength {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "acr_values is too long")
	}
	req.ACRValues = ParseScopeParam(acrValues)

	if aerr := v.validateProofKey(ctx, req); aerr != nil {
		return aerr
	}

	if v.EnableSessionManagement && req.Subject != nil {
		req.SessionID = req.Subject.SessionID
		if req.SessionID == "" {
			// Session management wants an id here. Deliberately non-fatal.
			log.Warn("no session id for authenticated subject",
				"subject", req.Subject.ID)
		}
	}

	return nil
}

// validateProofKey checks code_challenge for clients on a proof-key flow.
func (v *AuthorizeRequestValidator) validateProofKey(ctx context.Context, req *ValidatedAuthorizeRequest) *AuthorizeError {
	log := slogx.FromContext(ctx)

	challenge := req.Raw.Get("code_challenge")
	method := req.Raw.Get("code_challenge_method")

	if !req.Flow.UsesProofKey() {
		if challenge != "" {
			log.Info("ignoring code_challenge for non proof-key client",
				"client_id", req.Client.ID)
		}
		return nil
	}

	if challenge == "" {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "code_challenge is required")
	}
	if len(challenge) < domain.MinCodeVerifierLength || len(challenge) > domain.MaxCodeVerifierLength {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "code_challenge length is invalid")
	}

	if method == "" {
		method = domain.CodeChallengeMethodPlain
	}
	if method != domain.CodeChallengeMethodPlain && method != domain.CodeChallengeMethodS256 {
		return req.clientError(oauth2x.ErrorCodeInvalidRequest, "code_challenge_method not supported")
	}

	req.CodeChallenge = challenge
	req.CodeChallengeMethod = method
	return nil
}

func (v *AuthorizeRequestValidator) raiseFailure(ctx context.Context, req *ValidatedAuthorizeRequest, aerr *AuthorizeError) {
	clientID := ""
	if req.Client != nil {
		clientID = req.Client.ID
	}
	v.events.Raise(ctx, events.Event{
		Name:     events.AuthorizeFailed,
		Success:  false,
		ClientID: clientID,
		Details: map[string]any{
			"error":       aerr.Code,
			"description": aerr.Description,
		},
	})
}

func userError(code, description string) *AuthorizeError {
	return &AuthorizeError{Target: ErrorTargetUser, Code: code, Description: description}
}

// clientError builds a redirectable error. Only callable once client and
// redirect_uri have been validated.
func (r *ValidatedAuthorizeRequest) clientError(code, description string) *AuthorizeError {
	mode := r.ResponseMode
	if mode == "" {
		mode = domain.ResponseModeQuery
	}
	return &AuthorizeError{
		Target:       ErrorTargetClient,
		Code:         code,
		Description:  description,
		RedirectURI:  r.RedirectURI,
		ResponseMode: mode,
		State:        r.State,
	}
}

// flowForResponseType maps a response_type to its base flow.
func flowForResponseType(responseType string) (domain.Flow, bool) {
	switch responseType {
	case domain.ResponseTypeCode:
		return domain.FlowAuthorizationCode, true
	case domain.ResponseTypeToken, domain.ResponseTypeIDToken, domain.ResponseTypeIDTokenToken:
		return domain.FlowImplicit, true
	case domain.ResponseTypeCodeIDToken, domain.ResponseTypeCodeToken, domain.ResponseTypeCodeIDTokenToken:
		return domain.FlowHybrid, true
	}
	return "", false
}

// flowMatchesClient compares a resolved base flow against the client's
// registered flow, treating proof-key variants as their base flow.
func flowMatchesClient(resolved, registered domain.Flow) bool {
	switch resolved {
	case domain.FlowAuthorizationCode:
		return registered == domain.FlowAuthorizationCode ||
			registered == domain.FlowAuthorizationCodeWithProofKey
	case domain.FlowImplicit:
		return registered == domain.FlowImplicit
	case domain.FlowHybrid:
		return registered == domain.FlowHybrid ||
			registered == domain.FlowHybridWithProofKey
	}
	return false
}

func defaultResponseMode(flow domain.Flow) string {
	if flow == domain.FlowAuthorizationCode {
		return domain.ResponseModeQuery
	}
	return domain.ResponseModeFragment
}

// responseModeAllowed rejects query for token-bearing flows: tokens must
// never travel in a query string.
func responseModeAllowed(mode string, flow domain.Flow) bool {
	switch mode {
	case domain.ResponseModeQuery:
		return flow == domain.FlowAuthorizationCode
	case domain.ResponseModeFragment, domain.ResponseModeFormPost:
		return true
	}
	return false
}

func knownPrompt(prompt string) bool {
	switch prompt {
	case "none", "login", "consent", "select_account":
		return true
	}
	return false
}

func knownDisplay(display string) bool {
	switch display {
	case "page", "popup", "touch", "wap":
		return true
	}
	return false
}
