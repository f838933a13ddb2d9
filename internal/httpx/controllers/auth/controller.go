// Package auth expone los endpoints de registro, login y perfil.
package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	authsvc "github.com/dropDatabas3/collabsql/internal/auth"
	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
	"github.com/dropDatabas3/collabsql/internal/httpx/helpers"
	"github.com/dropDatabas3/collabsql/internal/httpx/middlewares"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/store"
)

// Controller maneja los endpoints de autenticación.
type Controller struct {
	service *authsvc.Service
}

func NewController(service *authsvc.Service) *Controller {
	return &Controller{service: service}
}

// ===== DTOs =====

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func toResponse(res *authsvc.Result) authResponse {
	return authResponse{
		Token: res.Token,
		User: userPayload{
			ID:       res.Identity.ID,
			Email:    res.Identity.Email,
			Username: res.Identity.Username,
		},
	}
}

// ===== HANDLERS =====

// Register maneja POST /v1/auth/register
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Register"))

	var req registerRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.service.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		writeAuthError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, toResponse(res))
}

// Login maneja POST /v1/auth/login
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Login"))

	var req loginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toResponse(res))
}

// Me maneja GET /v1/auth/me (requiere RequireAuth antes)
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.IdentityFrom(r.Context())
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthenticated)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, userPayload{
		ID:       identity.ID,
		Email:    identity.Email,
		Username: identity.Username,
	})
}

// Verify maneja GET /v1/auth/verify (requiere RequireAuth antes).
// Si el token pasó el middleware, la respuesta confirma validez y devuelve
// el usuario asociado. Pensado para que el frontend valide tokens guardados.
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.IdentityFrom(r.Context())
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthenticated)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": userPayload{
			ID:       identity.ID,
			Email:    identity.Email,
			Username: identity.Username,
		},
	})
}

func writeAuthError(w http.ResponseWriter, err error, log *zap.Logger) {
	log.Warn("auth request rejected", logger.Err(err))
	switch {
	case errors.Is(err, authsvc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, authsvc.ErrEmailTaken):
		httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse)
	case errors.Is(err, store.ErrUnavailable):
		httperrors.WriteError(w, httperrors.ErrStorageUnavailable)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
