package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/events"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// TokenService builds identity and access tokens and turns them into their
// wire form: signed JWTs, or random reference handles persisted to the
// token store.
type TokenService struct {
	issuer string
	signer jwtx.Signer
	claims *ClaimsProvider
	store  store.Store
	events events.Sink
}

func NewTokenService(issuer string, signer jwtx.Signer, claims *ClaimsProvider, st store.Store, sink events.Sink) *TokenService {
	return &TokenService{
		issuer: issuer,
		signer: signer,
		claims: claims,
		store:  st,
		events: sink,
	}
}

// IdentityTokenRequest carries everything an id_token needs.
type IdentityTokenRequest struct {
	Subject *domain.Subject
	Client  *domain.Client
	Scopes  []domain.Scope
	Nonce   string

	// AccessToken and AuthorizationCode are the raw sibling artifacts, when
	// present, for the at_hash/c_hash claims.
	AccessToken       string
	AuthorizationCode string

	// IncludeAllClaims requests the full identity claim set, used when no
	// access token accompanies the id_token.
	IncludeAllClaims bool
}

// CreateIdentityToken assembles an identity token. Not yet signed; pass the
// result to CreateSecurityToken.
func (s *TokenService) CreateIdentityToken(ctx context.Context, req IdentityTokenRequest) (domain.Token, error) {
	var claims []domain.Claim

	if req.Nonce != "" {
		claims = append(claims, domain.NewClaim(domain.ClaimNonce, req.Nonce))
	}
	if req.AccessToken != "" {
		claims = append(claims, domain.NewClaim(domain.ClaimAccessTokenHash, LeftmostHash(req.AccessToken)))
	}
	if req.AuthorizationCode != "" {
		claims = append(claims, domain.NewClaim(domain.ClaimAuthorizationCodeHash, LeftmostHash(req.AuthorizationCode)))
	}
	if req.Subject.SessionID != "" {
		claims = append(claims, domain.NewClaim(domain.ClaimSessionID, req.Subject.SessionID))
	}

	profile, err := s.claims.IdentityTokenClaims(ctx, req.Subject, req.Scopes, req.IncludeAllClaims)
	if err != nil {
		return domain.Token{}, err
	}

	return domain.Token{
		Type:      domain.TokenTypeIdentity,
		Issuer:    s.issuer,
		Audience:  req.Client.ID,
		Subject:   req.Subject.ID,
		ClientID:  req.Client.ID,
		Lifetime:  req.Client.IdentityLifetime(),
		Claims:    dedupeClaims(append(claims, profile...)),
		CreatedAt: time.Now().UTC(),
		Client:    req.Client,
	}, nil
}

// AccessTokenRequest carries everything an access token needs. Subject is
// nil for client-only grants.
type AccessTokenRequest struct {
	Subject *domain.Subject
	Client  *domain.Client
	Scopes  []domain.Scope
}

// CreateAccessToken assembles an access token: client id, optional client
// claims, one scope claim per granted scope, subject claims when a user is
// present, and a jti when the client asks for one.
func (s *TokenService) CreateAccessToken(ctx context.Context, req AccessTokenRequest) (domain.Token, error) {
	claims := []domain.Claim{domain.NewClaim(domain.ClaimClientID, req.Client.ID)}

	for _, c := range req.Client.Claims {
		claimType := c.Type
		if req.Client.PrefixClientClaims {
			claimType = "client_" + claimType
		}
		claims = append(claims, domain.NewClaim(claimType, c.Value))
	}

	for _, scope := range req.Scopes {
		claims = append(claims, domain.NewClaim(domain.ClaimScope, scope.Name))
	}

	subjectID := ""
	if req.Subject != nil {
		subjectID = req.Subject.ID
		profile, err := s.claims.AccessTokenClaims(ctx, req.Subject, req.Scopes)
		if err != nil {
			return domain.Token{}, err
		}
		claims = append(claims, profile...)
	}

	if req.Client.IncludeJwtID {
		claims = append(claims, domain.NewClaim(domain.ClaimJwtID, jwtx.NewJTI()))
	}

	return domain.Token{
		Type:      domain.TokenTypeAccess,
		Issuer:    s.issuer,
		Audience:  s.issuer + "/resources",
		Subject:   subjectID,
		ClientID:  req.Client.ID,
		Lifetime:  req.Client.AccessLifetime(),
		Claims:    dedupeClaims(claims),
		CreatedAt: time.Now().UTC(),
		Client:    req.Client,
	}, nil
}

// CreateSecurityToken materializes a token: identity tokens are always
// signed JWTs; access tokens are signed or stored as reference handles per
// client configuration.
func (s *TokenService) CreateSecurityToken(ctx context.Context, t domain.Token) (string, error) {
	var (
		value string
		err   error
	)

	switch t.Type {
	case domain.TokenTypeIdentity:
		value, err = s.sign(t)
	case domain.TokenTypeAccess:
		if t.Client != nil && t.Client.AccessTokenType == domain.AccessTokenTypeReference {
			value, err = s.createReferenceToken(ctx, t)
		} else {
			value, err = s.sign(t)
		}
	default:
		// Validation upstream makes this unreachable; failing loudly beats
		// issuing a token of an unknown kind.
		err = fmt.Errorf("service: invalid token type %q", t.Type)
	}
	if err != nil {
		return "", err
	}

	s.events.Raise(ctx, events.Event{
		Name:     events.TokenIssued,
		Success:  true,
		ClientID: t.ClientID,
		Subject:  t.Subject,
		Details: map[string]any{
			"token_type": t.Type,
			"token":      events.ObfuscateToken(value),
			"lifetime":   t.Lifetime.Seconds(),
			"scopes":     t.Scopes(),
		},
	})

	return value, nil
}

func (s *TokenService) sign(t domain.Token) (string, error) {
	return s.signer.Sign(claimsToMap(t))
}

// createReferenceToken persists the token keyed by the fingerprint of a
// fresh random handle and hands the raw handle back.
func (s *TokenService) createReferenceToken(ctx context.Context, t domain.Token) (string, error) {
	handle, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	if err := s.store.Tokens().CreateToken(ctx, cryptox.FingerprintToken(handle), t); err != nil {
		return "", err
	}
	slogx.FromContext(ctx).Debug("reference token stored", "client_id", t.ClientID)
	return handle, nil
}

// claimsToMap flattens a token into JWT claims. Repeated claim types fold
// into arrays, which is how multiple scope and amr claims serialize.
func claimsToMap(t domain.Token) jwt.MapClaims {
	now := t.CreatedAt
	mc := jwt.MapClaims{
		domain.ClaimIssuer:     t.Issuer,
		domain.ClaimAudience:   t.Audience,
		domain.ClaimIssuedAt:   now.Unix(),
		domain.ClaimNotBefore:  now.Unix(),
		domain.ClaimExpiration: t.ExpiresAt().Unix(),
	}
	if t.Subject != "" {
		mc[domain.ClaimSubject] = t.Subject
	}

	for _, c := range t.Claims {
		if c.Type == domain.ClaimSubject {
			continue
		}

		var value any = c.Value
		if c.Type == domain.ClaimAuthenticationTime {
			if n, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
				value = n
			}
		}

		existing, ok := mc[c.Type]
		if !ok {
			mc[c.Type] = value
			continue
		}
		if arr, isArr := existing.([]any); isArr {
			mc[c.Type] = append(arr, value)
		} else {
			mc[c.Type] = []any{existing, value}
		}
	}

	return mc
}

// LeftmostHash is the at_hash/c_hash construction: base64url of the left
// 128 bits of SHA-256 over the ASCII token.
func LeftmostHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

// dedupeClaims removes exact type/value duplicates, keeping first-seen
// order.
func dedupeClaims(claims []domain.Claim) []domain.Claim {
	seen := make(map[domain.Claim]struct{}, len(claims))
	out := make([]domain.Claim, 0, len(claims))
	for _, c := range claims {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
