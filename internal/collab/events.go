// Package collab implementa el núcleo de colaboración en vivo: registro
// de sesiones por sala, fan-out de presencia y supervisión de liveness
// sobre conexiones WebSocket.
package collab

import (
	"encoding/json"
	"time"

	"github.com/dropDatabas3/collabsql/internal/domain"
)

// ===== EVENTOS DEL PROTOCOLO =====

// Nombres de evento entrantes (cliente -> servidor).
const (
	EvJoin       = "join-database"
	EvLeave      = "leave-database"
	EvTyping     = "typing"
	EvStopTyping = "stop-typing"
	EvCursor     = "cursor-update"
	EvQueryExec  = "query-executed"
	EvHeartbeat  = "heartbeat"
)

// Nombres de evento salientes (servidor -> cliente).
const (
	EvJoined          = "joined-database"
	EvUserJoined      = "user-joined"
	EvUserLeft        = "user-left"
	EvUserTyping      = "user-typing"
	EvUserStopTyping  = "user-stop-typing"
	EvUserCursor      = "user-cursor"
	EvDatabaseUpdated = "database-updated"
	EvError           = "error"
)

// Frame es el sobre de todo mensaje del protocolo: nombre de evento y
// payload opaco. El hub decodifica Data según Event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame serializa el payload y lo envuelve. Los payloads son structs
// propios, así que un fallo de marshal es un bug de programación.
func NewFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// ===== PAYLOADS ENTRANTES =====

// JoinPayload pide entrar a la sala de una database.
type JoinPayload struct {
	DatabaseID string `json:"database_id"`
}

// LeavePayload sale explícitamente de la sala.
type LeavePayload struct {
	DatabaseID string `json:"database_id"`
}

// TypingPayload marca actividad de tipeo del usuario.
type TypingPayload struct {
	DatabaseID string `json:"database_id"`
}

// CursorPayload comunica la posición del cursor en el editor.
type CursorPayload struct {
	DatabaseID string          `json:"database_id"`
	Position   json.RawMessage `json:"position"`
}

// QueryExecutedPayload notifica una mutación ya aplicada por el caller
// sobre la database. El server la audita y la propaga a la sala.
type QueryExecutedPayload struct {
	DatabaseID     string   `json:"database_id"`
	Query          string   `json:"query"`
	CommitMessage  *string  `json:"commit_message,omitempty"`
	AffectedTables []string `json:"affected_tables"`
	RowsAffected   int      `json:"rows_affected"`
	OperationType  string   `json:"operation_type"`
}

// ===== PAYLOADS SALIENTES =====

// PresenceEntry es un miembro de la lista de presencia.
type PresenceEntry struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
}

// JoinedPayload es el ack privado al que acaba de entrar: su nivel
// resuelto y quiénes ya están en la sala.
type JoinedPayload struct {
	DatabaseID      string          `json:"database_id"`
	PermissionLevel domain.Level    `json:"permission_level"`
	ActiveUsers     []PresenceEntry `json:"active_users"`
}

// PeerPayload acompaña user-joined / user-left / user-typing /
// user-stop-typing.
type PeerPayload struct {
	DatabaseID string    `json:"database_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Timestamp  time.Time `json:"timestamp"`
}

// PeerCursorPayload acompaña user-cursor.
type PeerCursorPayload struct {
	DatabaseID string          `json:"database_id"`
	UserID     string          `json:"user_id"`
	Username   string          `json:"username"`
	Position   json.RawMessage `json:"position"`
}

// DatabaseUpdatedPayload acompaña database-updated hacia el resto de la
// sala (el originador nunca recibe su propio eco).
type DatabaseUpdatedPayload struct {
	DatabaseID     string    `json:"database_id"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	OperationType  string    `json:"operation_type"`
	AffectedTables []string  `json:"affected_tables"`
	RowsAffected   int       `json:"rows_affected"`
	CommitID       int64     `json:"commit_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// ErrorPayload es la respuesta de rechazo unicast (auth, permisos,
// payload inválido). Nunca se difunde a la sala.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
