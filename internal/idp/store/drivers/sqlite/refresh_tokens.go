package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type refreshTokensRepo struct {
	q queryer
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	snapshot, err := marshalJSON(t.AccessToken)
	if err != nil {
		return err
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (
			id, token_hash, client_id, subject, scopes,
			access_token, created_at, lifetime_seconds, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TokenHash, t.ClientID, t.Subject, joinList(t.Scopes),
		snapshot, t.CreatedAt, int64(t.Lifetime.Seconds()), t.ExpiresAt().UTC(),
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, token_hash, client_id, subject, scopes, access_token, created_at, lifetime_seconds
		FROM refresh_tokens WHERE token_hash = ?`, hash)

	var (
		t               domain.RefreshToken
		scopes          string
		snapshot        string
		lifetimeSeconds int64
	)

	err := row.Scan(&t.ID, &t.TokenHash, &t.ClientID, &t.Subject, &scopes, &snapshot, &t.CreatedAt, &lifetimeSeconds)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	if err := unmarshalJSON(snapshot, &t.AccessToken); err != nil {
		return domain.RefreshToken{}, err
	}

	t.Scopes = splitList(scopes)
	t.Lifetime = time.Duration(lifetimeSeconds) * time.Second

	return t, nil
}

func (r *refreshTokensRepo) UpdateRefreshTokenLifetime(ctx context.Context, id string, lifetime time.Duration) error {
	var createdAt time.Time
	err := r.q.QueryRowContext(ctx,
		`SELECT created_at FROM refresh_tokens WHERE id = ?`, id).Scan(&createdAt)
	if err != nil {
		return mapNotFound(err)
	}

	_, err = r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET lifetime_seconds = ?, expires_at = ? WHERE id = ?`,
		int64(lifetime.Seconds()), createdAt.Add(lifetime).UTC(), id,
	)
	return err
}

func (r *refreshTokensRepo) DeleteRefreshTokenByHash(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, hash)
	return err
}

func (r *refreshTokensRepo) DeleteRefreshTokensBySubjectAndClient(ctx context.Context, subject, clientID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE subject = ? AND client_id = ?`, subject, clientID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
