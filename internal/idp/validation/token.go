package validation

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/users"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// ProofKey is a validated proof-of-possession request: the algorithm and
// the base64url JWK envelope the client wants bound to the token.
type ProofKey struct {
	Algorithm string
	Key       string
}

// ValidatedTokenRequest accumulates the outcome of the token pipeline.
type ValidatedTokenRequest struct {
	Raw url.Values

	GrantType string
	Client    *domain.Client
	Subject   *domain.Subject

	Scopes *ScopeValidator

	AuthorizationCode  *domain.AuthorizationCode
	RefreshToken       *domain.RefreshToken
	RefreshTokenHandle string

	UserName  string
	ACR       string
	HomeRealm string
	Tenant    string

	Nonce           string
	IsOpenIDRequest bool
	SessionID       string

	TokenType string
	ProofKey  *ProofKey
}

// TokenRequestValidator dispatches on grant_type and runs the
// grant-specific checks, then the proof-of-possession parameters, then the
// custom hook. The client has already been authenticated by the time
// Validate runs.
type TokenRequestValidator struct {
	store  store.Store
	users  users.Service
	events events.Sink
	custom *CustomGrantRegistry

	// Hook may reject an otherwise valid request. Optional.
	Hook TokenRequestHook

	// EnableLocalLogin is the global password-grant switch; the per-client
	// flag is checked on top of it.
	EnableLocalLogin bool
}

func NewTokenRequestValidator(st store.Store, userSvc users.Service, sink events.Sink, custom *CustomGrantRegistry) *TokenRequestValidator {
	return &TokenRequestValidator{
		store:            st,
		users:            userSvc,
		events:           sink,
		custom:           custom,
		EnableLocalLogin: true,
	}
}

// Validate runs the grant-specific pipeline for an authenticated client.
// Errors are the package sentinels, mapped to wire errors at the edge.
func (v *TokenRequestValidator) Validate(ctx context.Context, form url.Values, client *domain.Client) (*ValidatedTokenRequest, error) {
	req := &ValidatedTokenRequest{
		Raw:       form,
		Client:    client,
		Scopes:    NewScopeValidator(v.store.Scopes()),
		TokenType: domain.RequestedTokenTypeBearer,
	}

	grantType := form.Get("grant_type")
	if grantType == "" {
		return nil, v.fail(ctx, req, ErrInvalidRequest)
	}
	if len(grantType) > domain.MaxGrantTypeLength {
		return nil, v.fail(ctx, req, ErrUnsupportedGrantType)
	}
	req.GrantType = grantType

	var err error
	switch grantType {
	case domain.GrantTypeAuthorizationCode:
		err = v.validateAuthorizationCodeGrant(ctx, req)
	case domain.GrantTypeClientCredentials:
		err = v.validateClientCredentialsGrant(ctx, req)
	case domain.GrantTypePassword:
		err = v.validatePasswordGrant(ctx, req)
	case domain.GrantTypeRefreshToken:
		err = v.validateRefreshTokenGrant(ctx, req)
	default:
		err = v.validateCustomGrant(ctx, req)
	}
	if err != nil {
		return nil, v.fail(ctx, req, err)
	}

	if err := v.validateRequestedTokenType(ctx, req); err != nil {
		return nil, v.fail(ctx, req, err)
	}

	if v.Hook != nil {
		if err := v.Hook.ValidateTokenRequest(ctx, req); err != nil {
			return nil, v.fail(ctx, req, err)
		}
	}

	return req, nil
}

// validateAuthorizationCodeGrant redeems an authorization code. The code is
// consumed atomically on lookup, so a racing second redemption never sees
// it; every later check failing still leaves the code burned, which is the
// safe direction.
func (v *TokenRequestValidator) validateAuthorizationCodeGrant(ctx context.Context, req *ValidatedTokenRequest) error {
	log := slogx.FromContext(ctx)

	if !req.Client.Flow.IsCodeFlow() {
		log.Warn("client not registered for code flow", "client_id", req.Client.ID)
		return ErrUnauthorizedClient
	}

	code := req.Raw.Get("code")
	if code == "" {
		return ErrInvalidRequest
	}
	if len(code) > domain.MaxAuthorizationCodeLength {
		return ErrInvalidGrant
	}

	stored, err := v.store.AuthorizationCodes().ConsumeAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("authorization code not found or already used", "client_id", req.Client.ID)
			return ErrInvalidGrant
		}
		return err
	}

	if stored.ClientID != req.Client.ID {
		log.Warn("authorization code bound to different client",
			"client_id", req.Client.ID, "code_client_id", stored.ClientID)
		return ErrInvalidGrant
	}

	if time.Since(stored.CreatedAt) > req.Client.CodeLifetime() {
		log.Warn("authorization code expired", "client_id", req.Client.ID)
		return ErrInvalidGrant
	}

	if err := v.validateCodeVerifier(ctx, req, &stored); err != nil {
		return err
	}

	redirectURI := req.Raw.Get("redirect_uri")
	if redirectURI == "" || redirectURI != stored.RedirectURI {
		log.Warn("redirect_uri does not match authorization request",
			"client_id", req.Client.ID)
		return ErrInvalidGrant
	}

	if len(stored.Scopes) == 0 {
		log.Error("authorization code carries no scopes", "client_id", req.Client.ID)
		return ErrInvalidGrant
	}
	valid, err := req.Scopes.AreScopesValid(ctx, stored.Scopes)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidGrant
	}

	active, err := v.users.IsActive(ctx, stored.Subject)
	if err != nil {
		return err
	}
	if !active {
		log.Warn("subject no longer active", "subject", stored.Subject)
		return ErrInvalidGrant
	}

	req.AuthorizationCode = &stored
	req.Nonce = stored.Nonce
	req.IsOpenIDRequest = stored.IsOpenID
	req.SessionID = stored.SessionID
	req.Subject = &domain.Subject{
		ID:               stored.Subject,
		SessionID:        stored.SessionID,
		IdentityProvider: domain.LocalIdentityProvider,
	}
	return nil
}

// validateCodeVerifier enforces PKCE for proof-key clients and rejects
// stray verifiers for everyone else.
func (v *TokenRequestValidator) validateCodeVerifier(ctx context.Context, req *ValidatedTokenRequest, code *domain.AuthorizationCode) error {
	log := slogx.FromContext(ctx)
	verifier := req.Raw.Get("code_verifier")

	if !req.Client.Flow.UsesProofKey() {
		if verifier != "" {
			log.Warn("code_verifier submitted by non proof-key client",
				"client_id", req.Client.ID)
			return ErrInvalidGrant
		}
		return nil
	}

	if verifier == "" {
		return ErrInvalidGrant
	}
	if len(verifier) < domain.MinCodeVerifierLength || len(verifier) > domain.MaxCodeVerifierLength {
		return ErrInvalidGrant
	}
	if code.CodeChallenge == "" {
		log.Error("proof-key client redeemed code without stored challenge",
			"client_id", req.Client.ID)
		return ErrInvalidGrant
	}

	if !VerifyCodeVerifier(verifier, code.CodeChallenge, code.CodeChallengeMethod) {
		log.Warn("code_verifier does not match challenge", "client_id", req.Client.ID)
		return ErrInvalidGrant
	}
	return nil
}

// validateClientCredentialsGrant issues a client-only token. No user means
// no identity scopes and nothing to refresh on behalf of.
func (v *TokenRequestValidator) validateClientCredentialsGrant(ctx context.Context, req *ValidatedTokenRequest) error {
	log := slogx.FromContext(ctx)

	if req.Client.Flow != domain.FlowClientCredentials {
		log.Warn("client not registered for client_credentials", "client_id", req.Client.ID)
		return ErrUnauthorizedClient
	}

	if err := v.validateRequestedScopes(ctx, req); err != nil {
		return err
	}

	if req.Scopes.ContainsIdentityScopes || req.Scopes.ContainsOfflineAccessScope {
		log.Warn("client_credentials request with identity or offline scopes",
			"client_id", req.Client.ID)
		return ErrInvalidScope
	}

	return nil
}

func (v *TokenRequestValidator) validatePasswordGrant(ctx context.Context, req *ValidatedTokenRequest) error {
	log := slogx.FromContext(ctx)

	if !v.EnableLocalLogin || !req.Client.EnableLocalLogin {
		log.Warn("local login disabled", "client_id", req.Client.ID)
		return ErrUnauthorizedClient
	}
	if req.Client.Flow != domain.FlowResourceOwner {
		log.Warn("client not registered for resource owner flow", "client_id", req.Client.ID)
		return ErrUnauthorizedClient
	}

	if err := v.validateRequestedScopes(ctx, req); err != nil {
		return err
	}

	username := req.Raw.Get("username")
	password := req.Raw.Get("password")
	if username == "" || password == "" {
		return ErrInvalidRequest
	}
	if len(username) > domain.MaxUsernameLength || len(password) > domain.MaxPasswordLength {
		return ErrInvalidRequest
	}
	req.UserName = username

	v.parseACRValues(req)

	subject, err := v.users.AuthenticateLocal(ctx, username, password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrAccountInactive) {
			log.Warn("resource owner authentication failed",
				"client_id", req.Client.ID, "username", username)
			return ErrInvalidGrant
		}
		return err
	}

	subject.ACR = req.ACR
	req.Subject = subject
	return nil
}

// parseACRValues extracts the well-known home-realm and tenant hints from
// acr_values; whatever is left passes through as the acr claim.
func (v *TokenRequestValidator) parseACRValues(req *ValidatedTokenRequest) {
	var rest []string
	for _, value := range ParseScopeParam(req.Raw.Get("acr_values")) {
		switch {
		case strings.HasPrefix(value, domain.ACRHomeRealmPrefix):
			req.HomeRealm = strings.TrimPrefix(value, domain.ACRHomeRealmPrefix)
		case strings.HasPrefix(value, domain.ACRTenantPrefix):
			req.Tenant = strings.TrimPrefix(value, domain.ACRTenantPrefix)
		default:
			rest = append(rest, value)
		}
	}
	req.ACR = strings.Join(rest, " ")
}

// validateRefreshTokenGrant re-checks the refresh token against the
// client's current configuration, not the configuration at issuance time.
// A client that lost a scope since then loses the token with it.
func (v *TokenRequestValidator) validateRefreshTokenGrant(ctx context.Context, req *ValidatedTokenRequest) error {
	log := slogx.FromContext(ctx)

	handle := req.Raw.Get("refresh_token")
	if handle == "" {
		return ErrInvalidRequest
	}
	if len(handle) > domain.MaxRefreshTokenLength {
		return ErrInvalidGrant
	}

	rt, err := v.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(handle))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("unknown refresh token", "client_id", req.Client.ID)
			return ErrInvalidGrant
		}
		return err
	}

	if time.Now().After(rt.ExpiresAt()) {
		log.Warn("refresh token expired", "client_id", req.Client.ID)
		return ErrInvalidGrant
	}

	if rt.ClientID != req.Client.ID {
		log.Warn("refresh token bound to different client",
			"client_id", req.Client.ID, "token_client_id", rt.ClientID)
		return ErrInvalidGrant
	}

	if !req.Client.AllowsScope(domain.ScopeOfflineAccess) {
		log.Warn("client no longer allowed offline_access", "client_id", req.Client.ID)
		return ErrInvalidGrant
	}
	for _, scope := range rt.Scopes {
		if !req.Client.AllowsScope(scope) {
			log.Warn("client no longer allowed granted scope",
				"client_id", req.Client.ID, "scope", scope)
			return ErrInvalidGrant
		}
	}
	valid, err := req.Scopes.AreScopesValid(ctx, rt.Scopes)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidGrant
	}

	active, err := v.users.IsActive(ctx, rt.Subject)
	if err != nil {
		return err
	}
	if !active {
		log.Warn("subject no longer active", "subject", rt.Subject)
		return ErrInvalidGrant
	}

	req.RefreshToken = &rt
	req.RefreshTokenHandle = handle
	req.IsOpenIDRequest = slices.Contains(rt.Scopes, domain.ScopeOpenID)
	req.Subject = &domain.Subject{
		ID:               rt.Subject,
		IdentityProvider: domain.LocalIdentityProvider,
	}
	return nil
}

func (v *TokenRequestValidator) validateCustomGrant(ctx context.Context, req *ValidatedTokenRequest) error {
	log := slogx.FromContext(ctx)

	if req.Client.Flow != domain.FlowCustom {
		log.Warn("client not registered for custom grants", "client_id", req.Client.ID)
		return ErrUnauthorizedClient
	}
	if !req.Client.AllowsCustomGrantType(req.GrantType) {
		log.Warn("custom grant type not allowed for client",
			"client_id", req.Client.ID, "grant_type", req.GrantType)
		return ErrUnauthorizedClient
	}

	validator, ok := v.custom.Get(req.GrantType)
	if !ok {
		log.Warn("no validator registered for grant type", "grant_type", req.GrantType)
		return ErrUnsupportedGrantType
	}

	if err := v.validateRequestedScopes(ctx, req); err != nil {
		return err
	}

	subject, err := validator.Validate(ctx, req)
	if err != nil {
		log.Warn("custom grant validation failed",
			"grant_type", req.GrantType, "error", err)
		return ErrInvalidGrant
	}
	if subject != nil {
		req.Subject = subject
	}
	return nil
}

// validateRequestedScopes parses and validates the scope parameter for the
// grants that carry one directly.
func (v *TokenRequestValidator) validateRequestedScopes(ctx context.Context, req *ValidatedTokenRequest) error {
	rawScope := req.Raw.Get("scope")
	if rawScope == "" || len(rawScope) > domain.MaxScopeLength {
		return ErrInvalidScope
	}

	requested := ParseScopeParam(rawScope)
	req.IsOpenIDRequest = slices.Contains(requested, domain.ScopeOpenID)

	valid, err := req.Scopes.AreScopesValid(ctx, requested)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidScope
	}
	if !req.Scopes.AreScopesAllowed(ctx, req.Client, requested) {
		return ErrInvalidScope
	}
	return nil
}

// validateRequestedTokenType checks the optional token_type=pop parameters.
func (v *TokenRequestValidator) validateRequestedTokenType(ctx context.Context, req *ValidatedTokenRequest) error {
	log := slogx.FromContext(ctx)

	tokenType := req.Raw.Get("token_type")
	switch tokenType {
	case "", domain.RequestedTokenTypeBearer:
		req.TokenType = domain.RequestedTokenTypeBearer
		return nil
	case domain.RequestedTokenTypePoP:
	default:
		return ErrInvalidRequest
	}

	alg := req.Raw.Get("alg")
	if alg == "" || !slices.Contains(domain.AllowedProofKeyAlgorithms, alg) {
		log.Warn("pop request with unsupported algorithm", "alg", alg)
		return ErrInvalidRequest
	}

	key := req.Raw.Get("key")
	if key == "" || len(key) > domain.MaxProofKeyLength {
		return ErrInvalidRequest
	}
	decoded, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return ErrInvalidRequest
	}
	var jwk jwtx.JWK
	if err := json.Unmarshal(decoded, &jwk); err != nil || jwk.Kty == "" {
		log.Warn("pop request key is not a JWK envelope")
		return ErrInvalidRequest
	}

	req.TokenType = domain.RequestedTokenTypePoP
	req.ProofKey = &ProofKey{Algorithm: alg, Key: key}
	return nil
}

func (v *TokenRequestValidator) fail(ctx context.Context, req *ValidatedTokenRequest, err error) error {
	v.events.Raise(ctx, events.Event{
		Name:      events.TokenRequestFailed,
		Success:   false,
		ClientID:  req.Client.ID,
		GrantType: req.GrantType,
		Details:   map[string]any{"error": err.Error()},
	})
	return err
}

// VerifyCodeVerifier applies the PKCE transform and compares against the
// stored challenge in constant time. S256 is base64url(SHA256(verifier)).
func VerifyCodeVerifier(verifier, challenge, method string) bool {
	switch method {
	case domain.CodeChallengeMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	case domain.CodeChallengeMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		derived := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
	}
	return false
}
