package collab

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/ledger"
	"github.com/dropDatabas3/collabsql/internal/metrics"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/permission"
)

// Hub orquesta el protocolo de colaboración: resuelve permisos, mueve
// el registro de sesiones y dispara los fan-outs. La identidad llega ya
// verificada del handshake; acá no se re-autentica por mensaje.
type Hub struct {
	registry    *Registry
	broadcaster *Broadcaster
	gate        *permission.Gate
	ledger      *ledger.Ledger
}

func NewHub(registry *Registry, broadcaster *Broadcaster, gate *permission.Gate, lg *ledger.Ledger) *Hub {
	return &Hub{
		registry:    registry,
		broadcaster: broadcaster,
		gate:        gate,
		ledger:      lg,
	}
}

// Registry expone el registro para el supervisor de liveness.
func (h *Hub) Registry() *Registry { return h.registry }

// Broadcaster expone el fan-out para el supervisor de liveness.
func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// ===== HANDLERS DE EVENTOS =====

// HandleJoin mete la conexión en la sala de la database, previo chequeo
// de permisos. Emite primero el ack privado joined-database (con la
// presencia actual y el nivel resuelto) y recién después el user-joined
// al resto de la sala: el cliente que entra tiene que ver su ack antes
// que cualquier broadcast disparado por su propio join.
func (h *Hub) HandleJoin(ctx context.Context, connID string, identity domain.Identity, p JoinPayload) {
	log := logger.From(ctx).With(
		logger.Component("collab.hub"),
		logger.ConnID(connID),
		logger.UserID(identity.ID),
		logger.DatabaseID(p.DatabaseID),
	)

	level, err := h.gate.Authorize(ctx, identity, p.DatabaseID, domain.LevelViewer)
	if err != nil {
		h.denyJoin(connID, err, log)
		return
	}

	// Paso 1: presencia previa al join, para el ack
	present := h.registry.ListByDatabase(p.DatabaseID)

	// Paso 2: registrar; si la conexión estaba en otra sala, esa sala
	// recibe su user-left
	sess, previousRoom := h.registry.Register(connID, identity, p.DatabaseID)
	metrics.ActiveSessions.Set(float64(h.registry.Count()))
	if previousRoom != "" {
		h.broadcaster.Publish(previousRoom, EvUserLeft, PeerPayload{
			DatabaseID: previousRoom,
			UserID:     identity.ID,
			Username:   identity.Username,
			Timestamp:  time.Now().UTC(),
		}, connID)
	}

	// Paso 3: ack privado, antes del broadcast de sala
	active := make([]PresenceEntry, 0, len(present))
	for _, s := range present {
		active = append(active, PresenceEntry{
			UserID:      s.Identity.ID,
			Username:    s.Identity.Username,
			ConnectedAt: s.JoinedAt,
		})
	}
	h.broadcaster.Unicast(connID, EvJoined, JoinedPayload{
		DatabaseID:      p.DatabaseID,
		PermissionLevel: level,
		ActiveUsers:     active,
	})

	// Paso 4: avisar a la sala
	h.broadcaster.Publish(p.DatabaseID, EvUserJoined, PeerPayload{
		DatabaseID: p.DatabaseID,
		UserID:     identity.ID,
		Username:   identity.Username,
		Timestamp:  sess.JoinedAt,
	}, connID)

	log.Info("joined room", logger.Any("level", level))
}

func (h *Hub) denyJoin(connID string, err error, log *zap.Logger) {
	var forbidden *permission.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		h.unicastError(connID, "FORBIDDEN", "insufficient permission level", forbidden.Error())
	case errors.Is(err, permission.ErrNotFound):
		h.unicastError(connID, "NOT_FOUND", "database not found or no access", "")
	default:
		h.unicastError(connID, "INTERNAL", "authorization failed", "")
	}
	log.Warn("join denied", logger.Err(err))
}

// HandleLeave saca la conexión de su sala actual. Idempotente frente a
// un disconnect que llegue pisándole los talones.
func (h *Hub) HandleLeave(ctx context.Context, connID string) {
	sess, ok := h.registry.Remove(connID)
	if !ok {
		return
	}
	metrics.ActiveSessions.Set(float64(h.registry.Count()))
	h.broadcaster.Publish(sess.DatabaseID, EvUserLeft, PeerPayload{
		DatabaseID: sess.DatabaseID,
		UserID:     sess.Identity.ID,
		Username:   sess.Identity.Username,
		Timestamp:  time.Now().UTC(),
	}, connID)

	logger.From(ctx).Info("left room",
		logger.Component("collab.hub"),
		logger.ConnID(connID),
		logger.DatabaseID(sess.DatabaseID),
	)
}

// HandleTyping propaga el indicador de tipeo a la sala, sin eco.
func (h *Hub) HandleTyping(ctx context.Context, connID string, stop bool) {
	sess, ok := h.registry.Get(connID)
	if !ok {
		return
	}
	h.registry.Touch(connID)

	event := EvUserTyping
	if stop {
		event = EvUserStopTyping
	}
	h.broadcaster.Publish(sess.DatabaseID, event, PeerPayload{
		DatabaseID: sess.DatabaseID,
		UserID:     sess.Identity.ID,
		Username:   sess.Identity.Username,
		Timestamp:  time.Now().UTC(),
	}, connID)
}

// HandleCursor propaga la posición del cursor a la sala, sin eco.
func (h *Hub) HandleCursor(ctx context.Context, connID string, p CursorPayload) {
	sess, ok := h.registry.Get(connID)
	if !ok {
		return
	}
	h.registry.Touch(connID)

	h.broadcaster.Publish(sess.DatabaseID, EvUserCursor, PeerCursorPayload{
		DatabaseID: sess.DatabaseID,
		UserID:     sess.Identity.ID,
		Username:   sess.Identity.Username,
		Position:   p.Position,
	}, connID)
}

// HandleQueryExecuted audita una mutación ya aplicada y la difunde a la
// sala. Requiere nivel editor, revalidado en el momento (un revoke
// posterior al join corta acá). Si el asiento de auditoría falla, la
// mutación ya corrió: se le avisa fuerte al originador y el broadcast
// sale igual para que el resto de la sala no quede desincronizado.
func (h *Hub) HandleQueryExecuted(ctx context.Context, connID string, p QueryExecutedPayload) {
	sess, ok := h.registry.Get(connID)
	if !ok || sess.DatabaseID != p.DatabaseID {
		h.unicastError(connID, "NOT_IN_ROOM", "join the database before notifying mutations", "")
		return
	}
	h.registry.Touch(connID)

	if _, err := h.gate.Authorize(ctx, sess.Identity, p.DatabaseID, domain.LevelEditor); err != nil {
		var forbidden *permission.ForbiddenError
		if errors.As(err, &forbidden) {
			h.unicastError(connID, "FORBIDDEN", "editor level required to mutate", forbidden.Error())
		} else {
			h.unicastError(connID, "NOT_FOUND", "database not found or no access", "")
		}
		return
	}

	rec := &domain.CommitRecord{
		DatabaseID:     p.DatabaseID,
		UserID:         sess.Identity.ID,
		Username:       sess.Identity.Username,
		Message:        p.CommitMessage,
		Operation:      p.Query,
		AffectedTables: p.AffectedTables,
		RowsAffected:   p.RowsAffected,
		Kind:           domain.CommitKind(p.OperationType),
	}
	if err := h.ledger.Append(ctx, rec); err != nil {
		// aplicada pero sin auditar: se reporta una sola vez, sin retry
		h.unicastError(connID, "STORAGE_UNAVAILABLE", "mutation applied but audit record was lost", "")
	} else {
		metrics.CommitsTotal.WithLabelValues(string(rec.Kind)).Inc()
	}

	h.broadcaster.Publish(p.DatabaseID, EvDatabaseUpdated, DatabaseUpdatedPayload{
		DatabaseID:     p.DatabaseID,
		UserID:         sess.Identity.ID,
		Username:       sess.Identity.Username,
		OperationType:  string(rec.Kind),
		AffectedTables: p.AffectedTables,
		RowsAffected:   p.RowsAffected,
		CommitID:       rec.ID,
		Timestamp:      rec.Timestamp,
	}, connID)
}

// HandleHeartbeat refresca la actividad de la sesión. Silencioso si la
// sesión ya no existe.
func (h *Hub) HandleHeartbeat(connID string) {
	h.registry.Touch(connID)
}

// Disconnect limpia todo rastro de la conexión. Su efecto es idéntico a
// un leave explícito e idempotente si ambos llegan casi juntos.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	h.HandleLeave(ctx, connID)
	h.broadcaster.Detach(connID)
}

func (h *Hub) unicastError(connID, code, message, detail string) {
	h.broadcaster.Unicast(connID, EvError, ErrorPayload{
		Code:    code,
		Message: message,
		Detail:  detail,
	})
}
