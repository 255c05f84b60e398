package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type tokensRepo struct {
	q queryer
}

func (r *tokensRepo) CreateToken(ctx context.Context, handleHash string, t domain.Token) error {
	snapshot, err := marshalJSON(t)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO tokens (handle_hash, subject, client_id, token, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		handleHash, t.SubjectID(), t.ClientID, snapshot, t.ExpiresAt().UTC(),
	)
	return err
}

func (r *tokensRepo) GetTokenByHash(ctx context.Context, handleHash string) (domain.Token, error) {
	var snapshot string
	err := r.q.QueryRowContext(ctx,
		`SELECT token FROM tokens WHERE handle_hash = ?`, handleHash).Scan(&snapshot)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}

	var t domain.Token
	if err := unmarshalJSON(snapshot, &t); err != nil {
		return domain.Token{}, err
	}
	return t, nil
}

func (r *tokensRepo) DeleteTokenByHash(ctx context.Context, handleHash string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM tokens WHERE handle_hash = ?`, handleHash)
	return err
}

func (r *tokensRepo) DeleteTokensBySubjectAndClient(ctx context.Context, subject, clientID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM tokens WHERE subject = ? AND client_id = ?`, subject, clientID)
	return err
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
