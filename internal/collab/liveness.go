package collab

import (
	"context"
	"time"

	"github.com/dropDatabas3/collabsql/internal/metrics"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
)

// Supervisor barre el registro a intervalo fijo y evicta las sesiones
// cuya última actividad superó el umbral de staleness. La evicción
// emite el mismo user-left que un leave explícito, así la presencia de
// la sala refleja la realidad aun con desconexiones abruptas.
//
// La configuración exige tick ≪ umbral (relación 1:5 como mínimo, ver
// config.Validate) para que la latencia de evicción quede acotada.
type Supervisor struct {
	registry    *Registry
	broadcaster *Broadcaster
	threshold   time.Duration
	interval    time.Duration
}

func NewSupervisor(registry *Registry, broadcaster *Broadcaster, threshold, interval time.Duration) *Supervisor {
	return &Supervisor{
		registry:    registry,
		broadcaster: broadcaster,
		threshold:   threshold,
		interval:    interval,
	}
}

// Run ejecuta el loop de barrido hasta que el contexto se cancele.
// Pensado para correr en su propia goroutine bajo el errgroup del
// proceso.
func (s *Supervisor) Run(ctx context.Context) error {
	log := logger.Named("collab.liveness").With(
		logger.Any("threshold", s.threshold.String()),
		logger.Any("interval", s.interval.String()),
	)
	log.Info("liveness supervisor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("liveness supervisor stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep evicta todas las sesiones stale en este instante. Una evicción
// que falle se loguea y se traga: un cadáver no bloquea el barrido del
// resto. Idempotente frente a un remove concurrente de la misma sesión
// (Remove reporta si la sesión seguía viva).
func (s *Supervisor) Sweep() int {
	stale := s.registry.Stale(s.threshold)
	evicted := 0
	for _, sess := range stale {
		evicted += s.evict(sess)
	}
	if evicted > 0 {
		metrics.ActiveSessions.Set(float64(s.registry.Count()))
	}
	return evicted
}

func (s *Supervisor) evict(sess Session) int {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("eviction panicked",
				logger.Component("collab.liveness"),
				logger.ConnID(sess.ConnID),
				logger.Any("panic", r),
			)
		}
	}()

	removed, ok := s.registry.Remove(sess.ConnID)
	if !ok {
		// ya la removió un leave o un disconnect explícito
		return 0
	}

	s.broadcaster.Publish(removed.DatabaseID, EvUserLeft, PeerPayload{
		DatabaseID: removed.DatabaseID,
		UserID:     removed.Identity.ID,
		Username:   removed.Identity.Username,
		Timestamp:  time.Now().UTC(),
	}, removed.ConnID)

	metrics.EvictionsTotal.Inc()
	logger.L().Warn("stale session evicted",
		logger.Component("collab.liveness"),
		logger.ConnID(removed.ConnID),
		logger.UserID(removed.Identity.ID),
		logger.DatabaseID(removed.DatabaseID),
	)
	return 1
}
