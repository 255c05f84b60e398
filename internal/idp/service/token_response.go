package service

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
)

// Wire token_type values.
const (
	tokenTypeBearer = "Bearer"
	tokenTypePoP    = "pop"
)

// TokenResponseGenerator turns a validated token request into the token
// endpoint response body.
type TokenResponseGenerator struct {
	tokens  *TokenService
	refresh *RefreshTokenService
}

func NewTokenResponseGenerator(tokens *TokenService, refresh *RefreshTokenService) *TokenResponseGenerator {
	return &TokenResponseGenerator{tokens: tokens, refresh: refresh}
}

// Process issues the tokens the validated request calls for.
func (g *TokenResponseGenerator) Process(ctx context.Context, req *validation.ValidatedTokenRequest) (*oauth2x.TokenResponse, error) {
	if req.GrantType == domain.GrantTypeRefreshToken {
		return g.processRefresh(ctx, req)
	}

	granted := req.Scopes.GrantedScopes

	access, err := g.tokens.CreateAccessToken(ctx, AccessTokenRequest{
		Subject: req.Subject,
		Client:  req.Client,
		Scopes:  granted,
	})
	if err != nil {
		return nil, err
	}
	accessValue, err := g.tokens.CreateSecurityToken(ctx, access)
	if err != nil {
		return nil, err
	}

	resp := &oauth2x.TokenResponse{
		AccessToken: accessValue,
		TokenType:   responseTokenType(req.TokenType),
		ExpiresIn:   int64(access.Lifetime / time.Second),
		Scope:       strings.Join(req.Scopes.GrantedScopeNames(), " "),
	}

	if req.Scopes.ContainsOfflineAccessScope && req.Subject != nil {
		handle, err := g.refresh.Create(ctx, req.Subject.ID, access, req.Scopes.GrantedScopeNames(), req.Client)
		if err != nil {
			return nil, err
		}
		resp.RefreshToken = handle
	}

	if req.IsOpenIDRequest && req.Subject != nil {
		identity, err := g.tokens.CreateIdentityToken(ctx, IdentityTokenRequest{
			Subject:     req.Subject,
			Client:      req.Client,
			Scopes:      granted,
			Nonce:       req.Nonce,
			AccessToken: accessValue,
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

	return resp, nil
}

// processRefresh re-materializes the wrapped access token with fresh
// timestamps and applies the rotation policy to the refresh token itself.
func (g *TokenResponseGenerator) processRefresh(ctx context.Context, req *validation.ValidatedTokenRequest) (*oauth2x.TokenResponse, error) {
	rt := req.RefreshToken

	access := rt.AccessToken
	access.CreatedAt = time.Now().UTC()
	access.Lifetime = req.Client.AccessLifetime()
	access.Client = req.Client // snapshot does not carry the client

	accessValue, err := g.tokens.CreateSecurityToken(ctx, access)
	if err != nil {
		return nil, err
	}

	handle, err := g.refresh.Update(ctx, req.RefreshTokenHandle, rt, req.Client)
	if err != nil {
		return nil, err
	}

	return &oauth2x.TokenResponse{
		AccessToken:  accessValue,
		RefreshToken: handle,
		TokenType:    responseTokenType(req.TokenType),
		ExpiresIn:    int64(access.Lifetime / time.Second),
		Scope:        strings.Join(rt.Scopes, " "),
	}, nil
}

func responseTokenType(requested string) string {
	if requested == domain.RequestedTokenTypePoP {
		return tokenTypePoP
	}
	return tokenTypeBearer
}
