// Package health expone el endpoint de liveness del proceso.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/collabsql/internal/httpx/helpers"
	"github.com/dropDatabas3/collabsql/internal/store"
)

// Controller responde /healthz con el estado del storage.
type Controller struct {
	store store.Store
}

func NewController(s store.Store) *Controller {
	return &Controller{store: s}
}

// Healthz maneja GET /healthz. El ping al storage tiene timeout corto:
// un storage caído degrada, no cuelga.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	overall, storage := "ok", "ok"
	status := http.StatusOK
	if err := c.store.Ping(ctx); err != nil {
		overall, storage = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}

	helpers.WriteJSON(w, status, map[string]string{
		"status":  overall,
		"storage": storage,
	})
}
