package pg

import (
	"context"
	"errors"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/store"
	"github.com/jackc/pgx/v5"
)

// UpsertGrant usa ON CONFLICT sobre la unique (database_id, user_id):
// el último write gana a nivel de fila, sin lost updates intermedios.
func (s *Store) UpsertGrant(ctx context.Context, g *domain.Grant) error {
	const q = `
		INSERT INTO database_permissions (database_id, user_id, permission_level, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (database_id, user_id)
		DO UPDATE SET permission_level = EXCLUDED.permission_level,
		              granted_by       = EXCLUDED.granted_by,
		              granted_at       = now()
		RETURNING granted_at`
	return s.pool.QueryRow(ctx, q, g.DatabaseID, g.UserID, g.Level, g.GrantedBy).
		Scan(&g.GrantedAt)
}

func (s *Store) DeleteGrant(ctx context.Context, databaseID, userID string) error {
	const q = `DELETE FROM database_permissions WHERE database_id = $1 AND user_id = $2`
	_, err := s.pool.Exec(ctx, q, databaseID, userID)
	return err
}

func (s *Store) GetGrant(ctx context.Context, databaseID, userID string) (*domain.Grant, error) {
	const q = `
		SELECT database_id, user_id, permission_level, granted_by, granted_at
		FROM database_permissions
		WHERE database_id = $1 AND user_id = $2`
	var g domain.Grant
	err := s.pool.QueryRow(ctx, q, databaseID, userID).
		Scan(&g.DatabaseID, &g.UserID, &g.Level, &g.GrantedBy, &g.GrantedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGrants(ctx context.Context, databaseID string) ([]domain.Collaborator, error) {
	const q = `
		SELECT dp.user_id, u.username, u.email, dp.permission_level, dp.granted_at
		FROM database_permissions dp
		JOIN users u ON u.id = dp.user_id
		WHERE dp.database_id = $1
		ORDER BY dp.granted_at`
	rows, err := s.pool.Query(ctx, q, databaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Collaborator
	for rows.Next() {
		var c domain.Collaborator
		if err := rows.Scan(&c.UserID, &c.Username, &c.Email, &c.Level, &c.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
