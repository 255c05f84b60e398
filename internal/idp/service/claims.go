// Package service turns validated requests into tokens: claim assembly,
// signing, refresh rotation, revocation, introspection, and the response
// generators the endpoints call.
package service

import (
	"context"
	"slices"
	"strconv"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/users"
)

// ClaimsProvider assembles token claim sets from the subject, the granted
// scopes, and the external user profile.
type ClaimsProvider struct {
	users users.Service
}

func NewClaimsProvider(userSvc users.Service) *ClaimsProvider {
	return &ClaimsProvider{users: userSvc}
}

// SubjectClaims are the standard claims every user-bound token carries.
func (p *ClaimsProvider) SubjectClaims(subject *domain.Subject) []domain.Claim {
	claims := []domain.Claim{domain.NewClaim(domain.ClaimSubject, subject.ID)}

	if subject.AuthenticationMethod != "" {
		claims = append(claims, domain.NewClaim(domain.ClaimAuthenticationMethod, subject.AuthenticationMethod))
	}
	if !subject.AuthenticationTime.IsZero() {
		claims = append(claims, domain.NewClaim(domain.ClaimAuthenticationTime,
			strconv.FormatInt(subject.AuthenticationTime.Unix(), 10)))
	}
	if subject.IdentityProvider != "" {
		claims = append(claims, domain.NewClaim(domain.ClaimIdentityProvider, subject.IdentityProvider))
	}
	if subject.ACR != "" {
		claims = append(claims, domain.NewClaim(domain.ClaimAuthenticationContext, subject.ACR))
	}

	return claims
}

// IdentityTokenClaims builds the profile claim set for an identity token.
// Only claims flagged always-include travel in the token itself unless
// includeAllClaims is requested (no access token to defer to); a scope
// flagged include-all fetches the full profile unfiltered.
func (p *ClaimsProvider) IdentityTokenClaims(ctx context.Context, subject *domain.Subject, scopes []domain.Scope, includeAllClaims bool) ([]domain.Claim, error) {
	claims := p.SubjectClaims(subject)

	includeAll := false
	var requested []string
	for _, s := range scopes {
		if s.Type != domain.ScopeTypeIdentity {
			continue
		}
		if s.IncludeAllClaimsForUser {
			includeAll = true
		}
		for _, c := range s.Claims {
			if includeAllClaims || c.AlwaysIncludeInIdentityToken {
				requested = append(requested, c.Name)
			}
		}
	}

	if !includeAll && len(requested) == 0 {
		return claims, nil
	}

	profile, err := p.users.GetProfileClaims(ctx, subject.ID, requested, includeAll)
	if err != nil {
		return nil, err
	}
	return append(claims, FilterProtocolClaims(profile)...), nil
}

// AccessTokenClaims builds the profile claim set for a user-bound access
// token: every claim name declared on the granted scopes.
func (p *ClaimsProvider) AccessTokenClaims(ctx context.Context, subject *domain.Subject, scopes []domain.Scope) ([]domain.Claim, error) {
	claims := p.SubjectClaims(subject)

	includeAll := false
	var requested []string
	for _, s := range scopes {
		if s.IncludeAllClaimsForUser {
			includeAll = true
		}
		requested = append(requested, s.ClaimNames()...)
	}

	if !includeAll && len(requested) == 0 {
		return claims, nil
	}

	profile, err := p.users.GetProfileClaims(ctx, subject.ID, requested, includeAll)
	if err != nil {
		return nil, err
	}
	return append(claims, FilterProtocolClaims(profile)...), nil
}

// FilterProtocolClaims strips claim types owned by the token pipeline from
// profile-sourced claims. A user store never gets to set amr or nonce.
func FilterProtocolClaims(claims []domain.Claim) []domain.Claim {
	out := make([]domain.Claim, 0, len(claims))
	for _, c := range claims {
		if slices.Contains(domain.ProtocolClaims, c.Type) || c.Type == domain.ClaimSubject {
			continue
		}
		out = append(out, c)
	}
	return out
}
