// Package grants expone la administración de colaboradores por database.
package grants

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/httpx/controllers/databases"
	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
	"github.com/dropDatabas3/collabsql/internal/httpx/helpers"
	"github.com/dropDatabas3/collabsql/internal/httpx/middlewares"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/permission"
)

// Controller maneja los endpoints de grants.
type Controller struct {
	admin *permission.Admin
}

func NewController(admin *permission.Admin) *Controller {
	return &Controller{admin: admin}
}

// ===== DTOs =====

type grantRequest struct {
	Email           string       `json:"email"`
	PermissionLevel domain.Level `json:"permission_level"`
}

type grantPayload struct {
	DatabaseID      string       `json:"database_id"`
	UserID          string       `json:"user_id"`
	PermissionLevel domain.Level `json:"permission_level"`
	GrantedBy       string       `json:"granted_by"`
	GrantedAt       time.Time    `json:"granted_at"`
}

type collaboratorPayload struct {
	UserID          string       `json:"user_id"`
	Username        string       `json:"username"`
	Email           string       `json:"email"`
	PermissionLevel domain.Level `json:"permission_level"`
	GrantedAt       time.Time    `json:"granted_at"`
}

// ===== HANDLERS =====

// Upsert maneja PUT /v1/databases/{databaseID}/collaborators.
// Solo el owner puede otorgar; el nivel owner no se otorga.
func (c *Controller) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)
	databaseID := chi.URLParam(r, "databaseID")
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Grants.Upsert"), logger.DatabaseID(databaseID))

	var req grantRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.PermissionLevel == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email and permission_level are required"))
		return
	}

	g, err := c.admin.Grant(ctx, identity, databaseID, req.Email, req.PermissionLevel)
	if err != nil {
		writeAdminError(w, err)
		log.Warn("grant rejected", logger.Err(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, grantPayload{
		DatabaseID:      g.DatabaseID,
		UserID:          g.UserID,
		PermissionLevel: g.Level,
		GrantedBy:       g.GrantedBy,
		GrantedAt:       g.GrantedAt,
	})
}

// Revoke maneja DELETE /v1/databases/{databaseID}/collaborators/{userID}.
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)
	databaseID := chi.URLParam(r, "databaseID")
	userID := chi.URLParam(r, "userID")

	if err := c.admin.Revoke(ctx, identity, databaseID, userID); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List maneja GET /v1/databases/{databaseID}/collaborators.
// Cualquier miembro (viewer o más) puede ver la lista.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := middlewares.IdentityFrom(ctx)
	databaseID := chi.URLParam(r, "databaseID")

	collabs, err := c.admin.Collaborators(ctx, identity, databaseID)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	out := make([]collaboratorPayload, 0, len(collabs))
	for _, co := range collabs {
		out = append(out, collaboratorPayload{
			UserID:          co.UserID,
			Username:        co.Username,
			Email:           co.Email,
			PermissionLevel: co.Level,
			GrantedAt:       co.GrantedAt,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"collaborators": out})
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, permission.ErrOwnershipFixed):
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("owner level cannot be granted"))
	case errors.Is(err, permission.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrUserNotFound)
	case errors.Is(err, permission.ErrGrantNotFound):
		httperrors.WriteError(w, httperrors.ErrGrantNotFound)
	default:
		databases.WriteGateError(w, err)
	}
}
