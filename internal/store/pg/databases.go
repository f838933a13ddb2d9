package pg

import (
	"context"
	"errors"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/store"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateDatabase(ctx context.Context, d *domain.Database) error {
	const q = `
		INSERT INTO databases (id, name, original_filename, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	return s.pool.QueryRow(ctx, q, d.ID, d.Name, d.OriginalFilename, d.OwnerID).
		Scan(&d.CreatedAt)
}

func (s *Store) GetDatabase(ctx context.Context, id string) (*domain.Database, error) {
	const q = `
		SELECT id, name, original_filename, owner_id, created_at
		FROM databases WHERE id = $1`
	var d domain.Database
	err := s.pool.QueryRow(ctx, q, id).
		Scan(&d.ID, &d.Name, &d.OriginalFilename, &d.OwnerID, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDatabasesByOwner(ctx context.Context, ownerID string) ([]domain.Database, error) {
	const q = `
		SELECT id, name, original_filename, owner_id, created_at
		FROM databases WHERE owner_id = $1
		ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Database
	for rows.Next() {
		var d domain.Database
		if err := rows.Scan(&d.ID, &d.Name, &d.OriginalFilename, &d.OwnerID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ResolveOwner(ctx context.Context, databaseID string) (string, error) {
	const q = `SELECT owner_id FROM databases WHERE id = $1`
	var owner string
	err := s.pool.QueryRow(ctx, q, databaseID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return owner, nil
}
