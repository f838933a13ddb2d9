// Package databases expone el CRUD mínimo de databases compartidas.
package databases

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/collabsql/internal/domain"
	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
	"github.com/dropDatabas3/collabsql/internal/httpx/helpers"
	"github.com/dropDatabas3/collabsql/internal/httpx/middlewares"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/permission"
	"github.com/dropDatabas3/collabsql/internal/store"
)

// Controller maneja los endpoints de databases.
type Controller struct {
	databases store.DatabaseStore
	gate      *permission.Gate
}

func NewController(databases store.DatabaseStore, gate *permission.Gate) *Controller {
	return &Controller{databases: databases, gate: gate}
}

// ===== DTOs =====

type createRequest struct {
	Name             string `json:"name"`
	OriginalFilename string `json:"original_filename"`
}

type databasePayload struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	OriginalFilename string       `json:"original_filename,omitempty"`
	OwnerID          string       `json:"owner_id"`
	CreatedAt        time.Time    `json:"created_at"`
	PermissionLevel  domain.Level `json:"permission_level,omitempty"`
}

func toPayload(db *domain.Database, level domain.Level) databasePayload {
	return databasePayload{
		ID:               db.ID,
		Name:             db.Name,
		OriginalFilename: db.OriginalFilename,
		OwnerID:          db.OwnerID,
		CreatedAt:        db.CreatedAt,
		PermissionLevel:  level,
	}
}

// ===== HANDLERS =====

// Create maneja POST /v1/databases. El caller queda como owner; el
// ownership se fija acá y no se transfiere nunca.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Databases.Create"))

	var req createRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("name is required"))
		return
	}

	db := &domain.Database{
		ID:               uuid.NewString(),
		Name:             req.Name,
		OriginalFilename: req.OriginalFilename,
		OwnerID:          identity.ID,
	}
	if err := c.databases.CreateDatabase(ctx, db); err != nil {
		log.Error("database create failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrStorageUnavailable)
		return
	}

	log.Info("database created", logger.DatabaseID(db.ID))
	helpers.WriteJSON(w, http.StatusCreated, toPayload(db, domain.LevelOwner))
}

// List maneja GET /v1/databases: las databases del caller.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)

	dbs, err := c.databases.ListDatabasesByOwner(ctx, identity.ID)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrStorageUnavailable)
		return
	}

	out := make([]databasePayload, 0, len(dbs))
	for i := range dbs {
		out = append(out, toPayload(&dbs[i], domain.LevelOwner))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"databases": out})
}

// Get maneja GET /v1/databases/{databaseID}. Requiere al menos viewer;
// la respuesta incluye el nivel resuelto del caller.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)
	databaseID := chi.URLParam(r, "databaseID")

	level, err := c.gate.Authorize(ctx, identity, databaseID, domain.LevelViewer)
	if err != nil {
		WriteGateError(w, err)
		return
	}

	db, err := c.databases.GetDatabase(ctx, databaseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperrors.WriteError(w, httperrors.ErrDatabaseNotFound)
		} else {
			httperrors.WriteError(w, httperrors.ErrStorageUnavailable)
		}
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toPayload(db, level))
}

// WriteGateError traduce los errores del PermissionGate a HTTP. El
// Forbidden lleva el nivel requerido y el actual en el detail.
func WriteGateError(w http.ResponseWriter, err error) {
	var forbidden *permission.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail(forbidden.Error()))
	case errors.Is(err, permission.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrDatabaseNotFound)
	case errors.Is(err, store.ErrUnavailable):
		httperrors.WriteError(w, httperrors.ErrStorageUnavailable)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
