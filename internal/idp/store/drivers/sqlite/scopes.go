package sqlite

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

type scopesRepo struct {
	q queryer
}

const scopeColumns = `name, display_name, description, type, enabled, required, emphasize, claims, include_all_claims, secrets`

func (r *scopesRepo) CreateScope(ctx context.Context, s domain.Scope) error {
	claims, err := marshalJSON(s.Claims)
	if err != nil {
		return err
	}
	secrets, err := marshalJSON(s.Secrets)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO scopes (`+scopeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.DisplayName, s.Description, string(s.Type),
		boolToInt(s.Enabled), boolToInt(s.Required), boolToInt(s.Emphasize),
		claims, boolToInt(s.IncludeAllClaimsForUser), secrets,
	)
	return err
}

func (r *scopesRepo) GetScopeByName(ctx context.Context, name string) (domain.Scope, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+scopeColumns+` FROM scopes WHERE name = ?`, name)
	return scanScope(row)
}

func (r *scopesRepo) GetScopesByNames(ctx context.Context, names []string) ([]domain.Scope, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	args := make([]any, 0, len(names))
	for _, n := range names {
		args = append(args, n)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+scopeColumns+` FROM scopes WHERE name IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Scope
	for rows.Next() {
		s, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *scopesRepo) DeleteScope(ctx context.Context, name string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM scopes WHERE name = ?`, name)
	return err
}

func (r *scopesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM scopes`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScope(row rowScanner) (domain.Scope, error) {
	var (
		s                            domain.Scope
		scopeType                    string
		enabled, required, emphasize int64
		includeAll                   int64
		claims, secrets              string
	)

	err := row.Scan(
		&s.Name, &s.DisplayName, &s.Description, &scopeType,
		&enabled, &required, &emphasize,
		&claims, &includeAll, &secrets,
	)
	if err != nil {
		return domain.Scope{}, mapNotFound(err)
	}

	if err := unmarshalJSON(claims, &s.Claims); err != nil {
		return domain.Scope{}, err
	}
	if err := unmarshalJSON(secrets, &s.Secrets); err != nil {
		return domain.Scope{}, err
	}

	s.Type = domain.ScopeType(scopeType)
	s.Enabled = enabled != 0
	s.Required = required != 0
	s.Emphasize = emphasize != 0
	s.IncludeAllClaimsForUser = includeAll != 0

	return s, nil
}
