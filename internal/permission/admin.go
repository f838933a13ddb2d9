package permission

import (
	"context"
	"errors"
	"sync"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/store"
)

// Errores administrativos.
var (
	ErrOwnershipFixed = errors.New("ownership never transfers")
	ErrUserNotFound   = errors.New("target user not found")
	ErrGrantNotFound  = errors.New("grant not found")
)

// Notifier avisa al usuario que recibió un grant. Best-effort: un fallo
// de notificación nunca voltea la operación.
type Notifier interface {
	GrantCreated(ctx context.Context, toEmail, databaseName string, level domain.Level)
}

// Admin cubre las operaciones grant/revoke, gateadas a nivel owner.
// Los writes se serializan por clave (database, user) para que dos
// admins editando el mismo grant no se pisen.
type Admin struct {
	grants    store.GrantStore
	users     store.UserStore
	databases store.DatabaseStore
	gate      *Gate
	notifier  Notifier

	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func NewAdmin(grants store.GrantStore, users store.UserStore, databases store.DatabaseStore, gate *Gate, notifier Notifier) *Admin {
	return &Admin{
		grants:    grants,
		users:     users,
		databases: databases,
		gate:      gate,
		notifier:  notifier,
		keys:      map[string]*sync.Mutex{},
	}
}

func (a *Admin) keyLock(databaseID, userID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := databaseID + "/" + userID
	m, ok := a.keys[k]
	if !ok {
		m = &sync.Mutex{}
		a.keys[k] = m
	}
	return m
}

// Grant crea o reemplaza el grant del user identificado por email.
// Requiere caller = owner. El nivel owner no se otorga: el ownership se
// fija en la creación del recurso y nunca se transfiere.
func (a *Admin) Grant(ctx context.Context, caller domain.Identity, databaseID, targetEmail string, level domain.Level) (*domain.Grant, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("permission.admin"),
		logger.Op("Grant"),
		logger.DatabaseID(databaseID),
	)

	if _, err := a.gate.Authorize(ctx, caller, databaseID, domain.LevelOwner); err != nil {
		return nil, err
	}
	if level == domain.LevelOwner || !level.Valid() {
		return nil, ErrOwnershipFixed
	}

	target, err := a.users.GetUserByEmail(ctx, targetEmail)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if target.ID == caller.ID {
		// el owner ya tiene nivel implícito máximo
		return nil, ErrOwnershipFixed
	}

	lock := a.keyLock(databaseID, target.ID)
	lock.Lock()
	defer lock.Unlock()

	g := &domain.Grant{
		DatabaseID: databaseID,
		UserID:     target.ID,
		Level:      level,
		GrantedBy:  caller.ID,
	}
	if err := a.grants.UpsertGrant(ctx, g); err != nil {
		return nil, err
	}
	a.gate.Invalidate(databaseID, target.ID)

	if a.notifier != nil {
		dbName := databaseID
		if db, err := a.databases.GetDatabase(ctx, databaseID); err == nil {
			dbName = db.Name
		}
		a.notifier.GrantCreated(ctx, target.Email, dbName, level)
	}

	log.Info("grant upserted", logger.UserID(target.ID), logger.Any("level", level))
	return g, nil
}

// Revoke elimina el grant del par. Requiere caller = owner.
func (a *Admin) Revoke(ctx context.Context, caller domain.Identity, databaseID, targetUserID string) error {
	if _, err := a.gate.Authorize(ctx, caller, databaseID, domain.LevelOwner); err != nil {
		return err
	}

	lock := a.keyLock(databaseID, targetUserID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := a.grants.GetGrant(ctx, databaseID, targetUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrGrantNotFound
		}
		return err
	}
	if err := a.grants.DeleteGrant(ctx, databaseID, targetUserID); err != nil {
		return err
	}
	a.gate.Invalidate(databaseID, targetUserID)

	logger.From(ctx).Info("grant revoked",
		logger.Component("permission.admin"),
		logger.DatabaseID(databaseID),
		logger.UserID(targetUserID),
	)
	return nil
}

// Collaborators lista los grants de la database enriquecidos con los
// datos del usuario. Requiere al menos nivel viewer.
func (a *Admin) Collaborators(ctx context.Context, caller domain.Identity, databaseID string) ([]domain.Collaborator, error) {
	if _, err := a.gate.Authorize(ctx, caller, databaseID, domain.LevelViewer); err != nil {
		return nil, err
	}
	return a.grants.ListGrants(ctx, databaseID)
}
