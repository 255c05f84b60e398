package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type clientsRepo struct {
	q queryer
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	secrets, err := marshalJSON(c.Secrets)
	if err != nil {
		return err
	}
	claims, err := marshalJSON(c.Claims)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO clients (
			id, name, enabled, flow, secrets,
			redirect_uris, post_logout_redirect_uris,
			allowed_scopes, allow_all_scopes,
			allowed_custom_grant_types, allow_all_custom_grant_types,
			identity_token_lifetime, access_token_lifetime,
			authorization_code_lifetime,
			absolute_refresh_token_lifetime, sliding_refresh_token_lifetime,
			refresh_token_usage, refresh_token_expiration, access_token_type,
			enable_local_login, claims, prefix_client_claims, include_jwt_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, boolToInt(c.Enabled), string(c.Flow), secrets,
		joinList(c.RedirectURIs), joinList(c.PostLogoutRedirectURIs),
		joinList(c.AllowedScopes), boolToInt(c.AllowAccessToAllScopes),
		joinList(c.AllowedCustomGrantTypes), boolToInt(c.AllowAccessToAllCustomGrantTypes),
		int64(c.IdentityTokenLifetime.Seconds()), int64(c.AccessTokenLifetime.Seconds()),
		int64(c.AuthorizationCodeLifetime.Seconds()),
		int64(c.AbsoluteRefreshTokenLifetime.Seconds()), int64(c.SlidingRefreshTokenLifetime.Seconds()),
		string(c.RefreshTokenUsage), string(c.RefreshTokenExpiration), string(c.AccessTokenType),
		boolToInt(c.EnableLocalLogin), claims, boolToInt(c.PrefixClientClaims), boolToInt(c.IncludeJwtID),
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, enabled, flow, secrets,
		       redirect_uris, post_logout_redirect_uris,
		       allowed_scopes, allow_all_scopes,
		       allowed_custom_grant_types, allow_all_custom_grant_types,
		       identity_token_lifetime, access_token_lifetime,
		       authorization_code_lifetime,
		       absolute_refresh_token_lifetime, sliding_refresh_token_lifetime,
		       refresh_token_usage, refresh_token_expiration, access_token_type,
		       enable_local_login, claims, prefix_client_claims, include_jwt_id,
		       created_at, updated_at
		FROM clients WHERE id = ?`, id)

	var (
		c                                            domain.Client
		enabled, allowAllScopes, allowAllGrants      int64
		enableLocalLogin, prefixClaims, includeJwtID int64
		flow, usage, expiration, tokenType           string
		secrets, claims                              string
		redirectURIs, postLogoutURIs                 string
		allowedScopes, allowedGrants                 string
		idTTL, atTTL, codeTTL, absTTL, slideTTL      int64
	)

	err := row.Scan(
		&c.ID, &c.Name, &enabled, &flow, &secrets,
		&redirectURIs, &postLogoutURIs,
		&allowedScopes, &allowAllScopes,
		&allowedGrants, &allowAllGrants,
		&idTTL, &atTTL, &codeTTL, &absTTL, &slideTTL,
		&usage, &expiration, &tokenType,
		&enableLocalLogin, &claims, &prefixClaims, &includeJwtID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	if err := unmarshalJSON(secrets, &c.Secrets); err != nil {
		return domain.Client{}, err
	}
	if err := unmarshalJSON(claims, &c.Claims); err != nil {
		return domain.Client{}, err
	}

	c.Enabled = enabled != 0
	c.Flow = domain.Flow(flow)
	c.RedirectURIs = splitList(redirectURIs)
	c.PostLogoutRedirectURIs = splitList(postLogoutURIs)
	c.AllowedScopes = splitList(allowedScopes)
	c.AllowAccessToAllScopes = allowAllScopes != 0
	c.AllowedCustomGrantTypes = splitList(allowedGrants)
	c.AllowAccessToAllCustomGrantTypes = allowAllGrants != 0
	c.IdentityTokenLifetime = time.Duration(idTTL) * time.Second
	c.AccessTokenLifetime = time.Duration(atTTL) * time.Second
	c.AuthorizationCodeLifetime = time.Duration(codeTTL) * time.Second
	c.AbsoluteRefreshTokenLifetime = time.Duration(absTTL) * time.Second
	c.SlidingRefreshTokenLifetime = time.Duration(slideTTL) * time.Second
	c.RefreshTokenUsage = domain.RefreshTokenUsage(usage)
	c.RefreshTokenExpiration = domain.RefreshTokenExpiration(expiration)
	c.AccessTokenType = domain.AccessTokenType(tokenType)
	c.EnableLocalLogin = enableLocalLogin != 0
	c.PrefixClientClaims = prefixClaims != 0
	c.IncludeJwtID = includeJwtID != 0

	return c, nil
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	return err
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
