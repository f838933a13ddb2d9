// Package permission implementa el gate de autorización por recurso.
// Modelo de tres niveles con orden total owner > editor > viewer; una
// operación que requiere nivel L pasa sii el nivel efectivo del caller
// es >= L. El grant de owner es implícito vía el ownership del recurso.
package permission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/collabsql/internal/cache"
	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/store"
)

// ErrNotFound: no existe grant para el par (database, user) y el user
// tampoco es owner del recurso.
var ErrNotFound = errors.New("no grant for user on database")

// ForbiddenError: existe un grant pero su nivel no alcanza. Carga
// requerido vs actual para que el caller arme la respuesta.
type ForbiddenError struct {
	Required domain.Level
	Actual   domain.Level
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: requires %s, has %s", e.Required, e.Actual)
}

// Gate responde allow/deny contra el grant store. Las lecturas son
// side-effect-free y pueden correr sin sincronizar contra un snapshot;
// un cache in-process corto amortigua la consulta por join/mutación.
type Gate struct {
	grants    store.GrantStore
	databases store.DatabaseStore
	cache     cache.Cache
	cacheTTL  time.Duration
}

func NewGate(grants store.GrantStore, databases store.DatabaseStore, c cache.Cache, ttl time.Duration) *Gate {
	return &Gate{grants: grants, databases: databases, cache: c, cacheTTL: ttl}
}

// Authorize resuelve el nivel efectivo y lo compara con el requerido.
// En éxito devuelve el nivel real del caller (el caller lo usa para
// ajustar la respuesta, p.ej. avisarle a un viewer que no puede escribir).
func (g *Gate) Authorize(ctx context.Context, id domain.Identity, databaseID string, required domain.Level) (domain.Level, error) {
	actual, err := g.Level(ctx, id.ID, databaseID)
	if err != nil {
		return "", err
	}
	if !actual.AtLeast(required) {
		return "", &ForbiddenError{Required: required, Actual: actual}
	}
	return actual, nil
}

// Level resuelve el nivel efectivo del user sobre la database:
// owner implícito primero, después la fila de grant.
func (g *Gate) Level(ctx context.Context, userID, databaseID string) (domain.Level, error) {
	key := levelKey(databaseID, userID)
	if g.cache != nil {
		if b, ok := g.cache.Get(key); ok {
			lvl := domain.Level(b)
			if !lvl.Valid() {
				return "", ErrNotFound
			}
			return lvl, nil
		}
	}

	lvl, err := g.resolve(ctx, userID, databaseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) && g.cache != nil {
			// cachear el miss: un user sin grant martillando joins no
			// debe traducirse en una consulta por intento
			g.cache.Set(key, []byte("none"), g.cacheTTL)
		}
		return "", err
	}
	if g.cache != nil {
		g.cache.Set(key, []byte(lvl), g.cacheTTL)
	}
	return lvl, nil
}

func (g *Gate) resolve(ctx context.Context, userID, databaseID string) (domain.Level, error) {
	owner, err := g.databases.ResolveOwner(ctx, databaseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if owner == userID {
		return domain.LevelOwner, nil
	}

	grant, err := g.grants.GetGrant(ctx, databaseID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !grant.Level.Valid() {
		// nivel desconocido rankea 0: nunca autoriza
		return "", &ForbiddenError{Required: domain.LevelViewer, Actual: grant.Level}
	}
	return grant.Level, nil
}

// Invalidate descarta el nivel cacheado del par; lo llama el admin
// service después de cada grant/revoke.
func (g *Gate) Invalidate(databaseID, userID string) {
	if g.cache != nil {
		g.cache.Delete(levelKey(databaseID, userID))
	}
}

func levelKey(databaseID, userID string) string {
	return "perm:" + databaseID + ":" + userID
}
