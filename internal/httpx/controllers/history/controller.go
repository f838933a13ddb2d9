// Package history expone la lectura del ledger de auditoría.
package history

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/httpx/controllers/databases"
	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
	"github.com/dropDatabas3/collabsql/internal/httpx/helpers"
	"github.com/dropDatabas3/collabsql/internal/httpx/middlewares"
	"github.com/dropDatabas3/collabsql/internal/ledger"
)

// Controller maneja los endpoints de historial y estadísticas.
type Controller struct {
	ledger *ledger.Ledger
}

func NewController(lg *ledger.Ledger) *Controller {
	return &Controller{ledger: lg}
}

// ===== DTOs =====

type commitPayload struct {
	ID             int64             `json:"id"`
	DatabaseID     string            `json:"database_id"`
	UserID         string            `json:"user_id"`
	Username       string            `json:"username"`
	CommitMessage  *string           `json:"commit_message,omitempty"`
	Query          string            `json:"query"`
	AffectedTables []string          `json:"affected_tables"`
	RowsAffected   int               `json:"rows_affected"`
	OperationType  domain.CommitKind `json:"operation_type"`
	Timestamp      time.Time         `json:"timestamp"`
}

// ===== HANDLERS =====

// History maneja GET /v1/databases/{databaseID}/history?page=N.
// Páginas 1-based de tamaño fijo, del commit más nuevo al más viejo.
func (c *Controller) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)
	databaseID := chi.URLParam(r, "databaseID")

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("page must be an integer"))
			return
		}
		page = p
	}

	recs, err := c.ledger.History(ctx, identity, databaseID, page)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	out := make([]commitPayload, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		out = append(out, commitPayload{
			ID:             rec.ID,
			DatabaseID:     rec.DatabaseID,
			UserID:         rec.UserID,
			Username:       rec.Username,
			CommitMessage:  rec.Message,
			Query:          rec.Operation,
			AffectedTables: rec.AffectedTables,
			RowsAffected:   rec.RowsAffected,
			OperationType:  rec.Kind,
			Timestamp:      rec.Timestamp,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"commits":   out,
		"page":      page,
		"page_size": c.ledger.PageSize(),
	})
}

// Stats maneja GET /v1/databases/{databaseID}/stats.
func (c *Controller) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)
	databaseID := chi.URLParam(r, "databaseID")

	stats, err := c.ledger.Stats(ctx, identity, databaseID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"total":         stats.Total,
		"count_by_kind": stats.CountByKind,
	})
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrBadPage):
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("page must be >= 1"))
	case errors.Is(err, ledger.ErrAuditUnavailable):
		httperrors.WriteError(w, httperrors.ErrStorageUnavailable)
	default:
		databases.WriteGateError(w, err)
	}
}
