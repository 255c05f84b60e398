package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type authorizationCodesRepo struct {
	q queryer
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO authorization_codes (
			id, code_hash, client_id, subject, session_id, redirect_uri,
			scopes, nonce, is_openid, code_challenge, code_challenge_method, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.ID, code.CodeHash, code.ClientID, code.Subject, code.SessionID, code.RedirectURI,
		joinList(code.Scopes), code.Nonce, boolToInt(code.IsOpenID),
		code.CodeChallenge, code.CodeChallengeMethod, code.CreatedAt,
	)
	return err
}

// ConsumeAuthorizationCodeByHash deletes the row and returns it in a single
// statement. DELETE ... RETURNING makes redemption exactly-once even for
// racing requests: only one of them gets the row back.
func (r *authorizationCodesRepo) ConsumeAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row := r.q.QueryRowContext(ctx, `
		DELETE FROM authorization_codes WHERE code_hash = ?
		RETURNING id, code_hash, client_id, subject, session_id, redirect_uri,
		          scopes, nonce, is_openid, code_challenge, code_challenge_method, created_at`,
		hash)

	var (
		code     domain.AuthorizationCode
		scopes   string
		isOpenID int64
	)

	err := row.Scan(
		&code.ID, &code.CodeHash, &code.ClientID, &code.Subject, &code.SessionID, &code.RedirectURI,
		&scopes, &code.Nonce, &isOpenID,
		&code.CodeChallenge, &code.CodeChallengeMethod, &code.CreatedAt,
	)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	code.Scopes = splitList(scopes)
	code.IsOpenID = isOpenID != 0

	return code, nil
}

func (r *authorizationCodesRepo) DeleteAuthorizationCodesCreatedBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM authorization_codes WHERE created_at < ?`, cutoff)
	return err
}
