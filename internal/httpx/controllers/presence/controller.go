// Package presence expone la foto de usuarios activos de una database.
package presence

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/collabsql/internal/collab"
	"github.com/dropDatabas3/collabsql/internal/domain"
	dbctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/databases"
	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
	"github.com/dropDatabas3/collabsql/internal/httpx/helpers"
	"github.com/dropDatabas3/collabsql/internal/httpx/middlewares"
	"github.com/dropDatabas3/collabsql/internal/permission"
)

// Controller lee el registry en vivo; no toca storage.
type Controller struct {
	registry *collab.Registry
	gate     *permission.Gate
}

func NewController(registry *collab.Registry, gate *permission.Gate) *Controller {
	return &Controller{registry: registry, gate: gate}
}

type activeUserPayload struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Active maneja GET /v1/databases/{databaseID}/active (requiere RequireAuth antes).
// Cualquier nivel con acceso de lectura puede consultar la presencia.
func (c *Controller) Active(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := middlewares.IdentityFrom(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthenticated)
		return
	}
	databaseID := chi.URLParam(r, "databaseID")

	if _, err := c.gate.Authorize(ctx, identity, databaseID, domain.LevelViewer); err != nil {
		dbctrl.WriteGateError(w, err)
		return
	}

	sessions := c.registry.ListByDatabase(databaseID)
	out := make([]activeUserPayload, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, activeUserPayload{
			UserID:       s.Identity.ID,
			Username:     s.Identity.Username,
			ConnectedAt:  s.JoinedAt,
			LastActivity: s.LastActivity,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"active_users": out,
		"count":        len(out),
	})
}
