package pg

import (
	"context"
	"errors"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	const q = `
		INSERT INTO users (id, email, username, password_hash, status)
		VALUES ($1, LOWER($2), $3, $4, $5)
		RETURNING created_at`
	err := s.pool.QueryRow(ctx, q, u.ID, u.Email, u.Username, u.PasswordHash, u.Status).
		Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
		SELECT id, email, username, password_hash, status, created_at
		FROM users WHERE LOWER(email) = LOWER($1)`
	return s.scanUser(s.pool.QueryRow(ctx, q, email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `
		SELECT id, email, username, password_hash, status, created_at
		FROM users WHERE id = $1`
	return s.scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) UpdateUserStatus(ctx context.Context, id, status string) error {
	const q = `UPDATE users SET status = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Status, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
