// Package store define los contratos de persistencia del core colaborativo.
// Las implementaciones viven en subpaquetes: pg (producción) y memory
// (desarrollo/tests). Cada método retorna ErrNotFound / ErrConflict de
// este paquete cuando aplica; fallos de infraestructura se envuelven y
// el caller decide si son ErrUnavailable.
package store

import (
	"context"

	"github.com/dropDatabas3/collabsql/internal/domain"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// UpdateUserStatus cambia el estado de la cuenta ("active",
	// "suspended"). Un estado != active invalida los tokens vigentes.
	UpdateUserStatus(ctx context.Context, id, status string) error
}

type DatabaseStore interface {
	CreateDatabase(ctx context.Context, d *domain.Database) error
	GetDatabase(ctx context.Context, id string) (*domain.Database, error)
	ListDatabasesByOwner(ctx context.Context, ownerID string) ([]domain.Database, error)

	// ResolveOwner devuelve el identity-id del owner de la database.
	ResolveOwner(ctx context.Context, databaseID string) (string, error)
}

type GrantStore interface {
	// UpsertGrant crea o reemplaza el grant del par (database, user).
	// Serializado por clave para que dos admins concurrentes no pierdan updates.
	UpsertGrant(ctx context.Context, g *domain.Grant) error
	DeleteGrant(ctx context.Context, databaseID, userID string) error
	GetGrant(ctx context.Context, databaseID, userID string) (*domain.Grant, error)
	ListGrants(ctx context.Context, databaseID string) ([]domain.Collaborator, error)
}

type CommitStore interface {
	// AppendCommit persiste el registro y completa ID (monótono por
	// database) y Timestamp. Append-only: no existe update ni delete.
	AppendCommit(ctx context.Context, c *domain.CommitRecord) error
	ListCommits(ctx context.Context, databaseID string, limit, offset int) ([]domain.CommitRecord, error)
	CommitStats(ctx context.Context, databaseID string) (*domain.CommitStats, error)
}

// Store agrega todos los contratos más el ciclo de vida de la conexión.
type Store interface {
	UserStore
	DatabaseStore
	GrantStore
	CommitStore

	Ping(ctx context.Context) error
	Close()
}
