package collab

import (
	"sync"
	"time"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
)

// Session es el estado de una conexión dentro de una sala. Una conexión
// pertenece a lo sumo a una sala; la misma identidad puede tener varias
// sesiones (multi-device) y se trackean por separado.
type Session struct {
	ConnID       string
	Identity     domain.Identity
	DatabaseID   string
	JoinedAt     time.Time
	LastActivity time.Time
}

// Registry es la única fuente de verdad de qué conexión está en qué
// sala. Todas las operaciones se serializan con un mutex; ninguna hace
// I/O adentro de la sección crítica.
type Registry struct {
	mu     sync.Mutex
	byConn map[string]*Session
	byRoom map[string][]string // connIDs en orden de inserción
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: map[string]*Session{},
		byRoom: map[string][]string{},
		now:    time.Now,
	}
}

// Register ata la conexión a la sala. Si la conexión ya estaba en otra
// sala, esa sesión previa se remueve primero, en el mismo paso atómico.
// Devuelve la sesión nueva y, si hubo, la sala que quedó atrás (para
// que el caller emita el user-left correspondiente).
func (r *Registry) Register(connID string, identity domain.Identity, databaseID string) (Session, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previousRoom := ""
	if prior, ok := r.byConn[connID]; ok {
		if prior.DatabaseID == databaseID {
			// re-join a la misma sala: refresca actividad y listo
			prior.LastActivity = r.now()
			return *prior, ""
		}
		previousRoom = prior.DatabaseID
		r.dropLocked(connID, prior.DatabaseID)
	}

	now := r.now()
	s := &Session{
		ConnID:       connID,
		Identity:     identity,
		DatabaseID:   databaseID,
		JoinedAt:     now,
		LastActivity: now,
	}
	r.byConn[connID] = s
	r.byRoom[databaseID] = append(r.byRoom[databaseID], connID)
	return *s, previousRoom
}

// Remove saca la sesión de la conexión. Idempotente: remover algo que
// no existe no es un error. Devuelve la sesión removida y si existía.
func (r *Registry) Remove(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	r.dropLocked(connID, s.DatabaseID)
	return *s, true
}

func (r *Registry) dropLocked(connID, databaseID string) {
	delete(r.byConn, connID)
	room := r.byRoom[databaseID]
	for i, id := range room {
		if id == connID {
			r.byRoom[databaseID] = append(room[:i], room[i+1:]...)
			break
		}
	}
	if len(r.byRoom[databaseID]) == 0 {
		delete(r.byRoom, databaseID)
	}
}

// Touch refresca last-activity. Falla en silencio si la conexión no
// tiene sesión: un heartbeat tardío después de una evicción no debe
// tumbar nada.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		logger.L().Debug("touch on unknown connection",
			logger.Component("collab.registry"),
			logger.ConnID(connID),
		)
		return
	}
	s.LastActivity = r.now()
}

// Get devuelve la sesión de la conexión, si existe.
func (r *Registry) Get(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ListByDatabase devuelve las sesiones de la sala en orden de
// inserción. Copia defensiva: el caller puede iterar sin lock.
func (r *Registry) ListByDatabase(databaseID string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byRoom[databaseID]
	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.byConn[id]; ok {
			out = append(out, *s)
		}
	}
	return out
}

// Stale devuelve las sesiones cuya última actividad quedó más atrás
// que el umbral. El supervisor decide qué hacer con ellas.
func (r *Registry) Stale(threshold time.Duration) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-threshold)
	var out []Session
	for _, s := range r.byConn {
		if s.LastActivity.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out
}

// Count devuelve el total de sesiones activas.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
