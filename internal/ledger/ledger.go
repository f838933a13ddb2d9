// Package ledger implementa el registro de auditoría append-only de
// operaciones ejecutadas sobre cada database compartida.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/permission"
	"github.com/dropDatabas3/collabsql/internal/store"
)

// ErrAuditUnavailable indica que la operación de datos ya se aplicó
// pero el asiento de auditoría no pudo persistirse. El caller decide
// cómo reportarlo; el ledger nunca reintenta por su cuenta.
var ErrAuditUnavailable = errors.New("audit storage unavailable")

// ErrBadPage indica un número de página fuera de rango (las páginas
// empiezan en 1).
var ErrBadPage = errors.New("page must be >= 1")

// Ledger serializa los appends para que los ids por recurso salgan
// estrictamente crecientes aun con varios writers concurrentes.
type Ledger struct {
	commits  store.CommitStore
	gate     *permission.Gate
	pageSize int

	mu sync.Mutex
}

func New(commits store.CommitStore, gate *permission.Gate, pageSize int) *Ledger {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Ledger{commits: commits, gate: gate, pageSize: pageSize}
}

// PageSize expone el tamaño de página configurado.
func (l *Ledger) PageSize() int { return l.pageSize }

// Append registra un asiento. El record entra sin ID ni Timestamp; el
// store los asigna. Si Kind viene vacío se clasifica a partir de la
// operación. Un fallo de storage se reporta como ErrAuditUnavailable:
// a esta altura la operación de datos ya corrió, así que el fallo se
// loguea fuerte y se propaga sin reintentos.
func (l *Ledger) Append(ctx context.Context, rec *domain.CommitRecord) error {
	if rec.Kind == "" {
		rec.Kind = domain.KindFromOperation(rec.Operation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.commits.AppendCommit(ctx, rec); err != nil {
		logger.From(ctx).Error("operation applied but unaudited",
			logger.Layer("service"),
			logger.Component("ledger"),
			logger.Op("Append"),
			logger.DatabaseID(rec.DatabaseID),
			logger.UserID(rec.UserID),
			logger.Err(err),
		)
		return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}

	logger.From(ctx).Info("commit recorded",
		logger.Component("ledger"),
		logger.DatabaseID(rec.DatabaseID),
		logger.UserID(rec.UserID),
		logger.CommitSeq(rec.ID),
		logger.Any("kind", rec.Kind),
	)
	return nil
}

// History devuelve la página pedida del historial, del asiento más
// reciente al más viejo. Las páginas son 1-based y de tamaño fijo.
// Requiere al menos nivel viewer sobre la database.
func (l *Ledger) History(ctx context.Context, caller domain.Identity, databaseID string, page int) ([]domain.CommitRecord, error) {
	if _, err := l.gate.Authorize(ctx, caller, databaseID, domain.LevelViewer); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, ErrBadPage
	}
	offset := (page - 1) * l.pageSize
	recs, err := l.commits.ListCommits(ctx, databaseID, l.pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}
	return recs, nil
}

// Stats agrega el total de asientos y el desglose por tipo de
// operación. Requiere al menos nivel viewer.
func (l *Ledger) Stats(ctx context.Context, caller domain.Identity, databaseID string) (*domain.CommitStats, error) {
	if _, err := l.gate.Authorize(ctx, caller, databaseID, domain.LevelViewer); err != nil {
		return nil, err
	}
	stats, err := l.commits.CommitStats(ctx, databaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}
	return stats, nil
}
