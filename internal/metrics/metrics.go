// Package metrics concentra los collectors Prometheus del servicio.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ===== COLLECTORS =====

var (
	// ActiveSessions es la cantidad de sesiones vivas en el registro.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "collabsql",
		Subsystem: "collab",
		Name:      "active_sessions",
		Help:      "Sesiones actualmente registradas en alguna sala.",
	})

	// BroadcastsTotal cuenta los eventos difundidos a salas, por tipo.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collabsql",
		Subsystem: "collab",
		Name:      "broadcasts_total",
		Help:      "Eventos publicados a salas, por tipo de evento.",
	}, []string{"event"})

	// DroppedFramesTotal cuenta frames descartados por consumidores lentos.
	DroppedFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "collabsql",
		Subsystem: "collab",
		Name:      "dropped_frames_total",
		Help:      "Frames descartados porque el buffer de envío estaba lleno.",
	})

	// EvictionsTotal cuenta las sesiones evictadas por el supervisor.
	EvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "collabsql",
		Subsystem: "collab",
		Name:      "evictions_total",
		Help:      "Sesiones removidas por superar el umbral de staleness.",
	})

	// CommitsTotal cuenta los asientos de auditoría registrados, por tipo.
	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collabsql",
		Subsystem: "ledger",
		Name:      "commits_total",
		Help:      "Asientos de auditoría registrados, por tipo de operación.",
	}, []string{"kind"})

	// HTTPRequestsTotal cuenta requests HTTP por método, ruta y status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collabsql",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Requests HTTP atendidas, por método, ruta y status.",
	}, []string{"method", "route", "status"})
)

// Handler expone el endpoint /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
