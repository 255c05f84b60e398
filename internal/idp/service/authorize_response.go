package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/idx"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// AuthorizeResponseGenerator turns a validated, consented authorize request
// into the artifacts delivered to the redirect URI: an authorization code
// for code flows, tokens for implicit and hybrid.
type AuthorizeResponseGenerator struct {
	tokens *TokenService
	store  store.Store
}

func NewAuthorizeResponseGenerator(tokens *TokenService, st store.Store) *AuthorizeResponseGenerator {
	return &AuthorizeResponseGenerator{tokens: tokens, store: st}
}

// Process requires an authenticated subject; the endpoint layer redirects
// to login before calling this.
func (g *AuthorizeResponseGenerator) Process(ctx context.Context, req *validation.ValidatedAuthorizeRequest) (*oauth2x.AuthorizeResponse, error) {
	if req.Subject == nil {
		return nil, validation.ErrLoginRequired
	}

	resp := &oauth2x.AuthorizeResponse{
		RedirectURI:  req.RedirectURI,
		ResponseMode: req.ResponseMode,
		State:        req.State,
		Scope:        strings.Join(req.Scopes.GrantedScopeNames(), " "),
	}

	parts := strings.Fields(req.ResponseType)
	wantsCode := slices.Contains(parts, "code")
	wantsToken := slices.Contains(parts, "token")
	wantsIDToken := slices.Contains(parts, "id_token")

	var rawCode string
	if wantsCode {
		code, err := g.issueCode(ctx, req)
		if err != nil {
			return nil, err
		}
		rawCode = code
		resp.Code = code
	}

	var accessValue string
	if wantsToken {
		access, err := g.tokens.CreateAccessToken(ctx, AccessTokenRequest{
			Subject: req.Subject,
			Client:  req.Client,
			Scopes:  req.Scopes.GrantedScopes,
		})
		if err != nil {
			return nil, err
		}
		accessValue, err = g.tokens.CreateSecurityToken(ctx, access)
		if err != nil {
			return nil, err
		}
		resp.AccessToken = accessValue
		resp.TokenType = tokenTypeBearer
		resp.ExpiresIn = int64(access.Lifetime / time.Second)
	}

	if wantsIDToken {
		identity, err := g.tokens.CreateIdentityToken(ctx, IdentityTokenRequest{
			Subject:           req.Subject,
			Client:            req.Client,
			Scopes:            req.Scopes.GrantedScopes,
			Nonce:             req.Nonce,
			AccessToken:       accessValue,
			AuthorizationCode: rawCode,
			// With no access token alongside, the id_token is the only
			// carrier the client gets; include the full claim set.
			IncludeAllClaims: !wantsToken && !wantsCode,
		})
		if err != nil {
			return nil, err
		}
		identityValue, err := g.tokens.CreateSecurityToken(ctx, identity)
		if err != nil {
			return nil, err
		}
		resp.IdentityToken = identityValue
	}

	if req.SessionID != "" {
		resp.SessionState = sessionState(req.Client.ID, req.SessionID)
	}

	return resp, nil
}

// issueCode mints a single-use authorization code. Only the fingerprint is
// persisted; the raw handle goes to the client.
func (g *AuthorizeResponseGenerator) issueCode(ctx context.Context, req *validation.ValidatedAuthorizeRequest) (string, error) {
	handle, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	code := domain.AuthorizationCode{
		ID:                  idx.New().String(),
		CodeHash:            cryptox.FingerprintToken(handle),
		ClientID:            req.Client.ID,
		Subject:             req.Subject.ID,
		SessionID:           req.SessionID,
		RedirectURI:         req.RedirectURI,
		Scopes:              req.Scopes.GrantedScopeNames(),
		Nonce:               req.Nonce,
		IsOpenID:            req.IsOpenIDRequest,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		CreatedAt:           time.Now().UTC(),
	}
	if err := g.store.AuthorizationCodes().CreateAuthorizationCode(ctx, code); err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Debug("authorization code issued",
		"client_id", req.Client.ID, "subject", req.Subject.ID)
	return handle, nil
}

// sessionState ties the session id to the client for the check-session
// iframe without exposing the session id itself.
func sessionState(clientID, sessionID string) string {
	return cryptox.FingerprintToken(clientID + "." + sessionID)
}
