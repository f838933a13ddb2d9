package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - COLABORACIÓN
// =================================================================================

// ConnID crea un campo para el ID de la conexión WebSocket.
func ConnID(v string) zap.Field { return zap.String("conn_id", v) }

// DatabaseID crea un campo para el ID de la database (room).
func DatabaseID(v string) zap.Field { return zap.String("database_id", v) }

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Event crea un campo para el tipo de evento de presencia.
func Event(v string) zap.Field { return zap.String("event", v) }

// CommitSeq crea un campo para el seq del commit en el ledger.
func CommitSeq(v int64) zap.Field { return zap.Int64("commit_seq", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - GENERALES
// =================================================================================

// Layer identifica la capa (http | service | store | collab).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Component identifica el componente dentro de la capa.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op identifica la operación.
func Op(v string) zap.Field { return zap.String("op", v) }

// Err crea un campo para un error.
func Err(e error) zap.Field { return zap.Error(e) }

// Int crea un campo entero genérico.
func Int(k string, v int) zap.Field { return zap.Int(k, v) }

// Any crea un campo genérico.
func Any(k string, v any) zap.Field { return zap.Any(k, v) }
