package collab

import (
	"sync"

	"github.com/dropDatabas3/collabsql/internal/metrics"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
)

// Sender es el extremo de salida de una conexión. Enqueue encola el
// frame en el buffer de envío y devuelve false si el buffer está lleno
// (consumidor lento); el broadcaster nunca bloquea esperando a un
// cliente.
type Sender interface {
	Enqueue(f Frame) bool
}

// Broadcaster hace el fan-out de eventos a las conexiones de una sala.
// El lock se sostiene durante todo el loop de encolado: así dos publish
// concurrentes a la misma sala no intercalan frames y cada miembro ve
// los eventos en el orden en que se emitieron.
type Broadcaster struct {
	registry *Registry

	mu      sync.Mutex
	senders map[string]Sender
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		senders:  map[string]Sender{},
	}
}

// Attach registra el extremo de salida de una conexión. Se llama al
// abrir el WebSocket, antes de cualquier join.
func (b *Broadcaster) Attach(connID string, s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.senders[connID] = s
}

// Detach olvida la conexión. Idempotente.
func (b *Broadcaster) Detach(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.senders, connID)
}

// Publish encola el evento para cada miembro actual de la sala, en
// orden de inserción, saltando al originador (excludeConn puede venir
// vacío para incluir a todos).
func (b *Broadcaster) Publish(databaseID, event string, data any, excludeConn string) {
	frame, err := NewFrame(event, data)
	if err != nil {
		logger.L().Error("unmarshalable broadcast payload",
			logger.Component("collab.broadcaster"),
			logger.Event(event),
			logger.Err(err),
		)
		return
	}

	members := b.registry.ListByDatabase(databaseID)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range members {
		if m.ConnID == excludeConn {
			continue
		}
		s, ok := b.senders[m.ConnID]
		if !ok {
			continue
		}
		if !s.Enqueue(frame) {
			metrics.DroppedFramesTotal.Inc()
			logger.L().Warn("send buffer full, frame dropped",
				logger.Component("collab.broadcaster"),
				logger.ConnID(m.ConnID),
				logger.Event(event),
			)
		}
	}
	metrics.BroadcastsTotal.WithLabelValues(event).Inc()
}

// Unicast encola el evento solo para la conexión dada. Se usa para los
// acks privados (joined-database) y los rechazos (error).
func (b *Broadcaster) Unicast(connID, event string, data any) {
	frame, err := NewFrame(event, data)
	if err != nil {
		logger.L().Error("unmarshalable unicast payload",
			logger.Component("collab.broadcaster"),
			logger.Event(event),
			logger.Err(err),
		)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.senders[connID]
	if !ok {
		return
	}
	if !s.Enqueue(frame) {
		metrics.DroppedFramesTotal.Inc()
	}
}
