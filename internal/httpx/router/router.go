// Package router define las rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/collabsql/internal/auth"
	"github.com/dropDatabas3/collabsql/internal/collab"
	authctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/auth"
	dbctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/databases"
	grantctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/grants"
	healthctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/health"
	histctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/history"
	presencectrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/presence"
	mw "github.com/dropDatabas3/collabsql/internal/httpx/middlewares"
	"github.com/dropDatabas3/collabsql/internal/metrics"
	"github.com/dropDatabas3/collabsql/internal/rate"
)

// Deps contiene las dependencias del router principal.
type Deps struct {
	Verifier  auth.Verifier
	Auth      *authctrl.Controller
	Databases *dbctrl.Controller
	Grants    *grantctrl.Controller
	History   *histctrl.Controller
	Presence  *presencectrl.Controller
	Health    *healthctrl.Controller
	WS        *collab.WSHandler

	CORSAllowedOrigins []string
	LoginLimiter       rate.Limiter
	RegisterLimiter    rate.Limiter
}

// New arma el router completo. Los middlewares globales van por fuera
// (request id -> logging -> recover -> cors); el auth se aplica por
// grupo de rutas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// ─── Infra ───
	r.Get("/healthz", d.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// ─── Auth (público, con rate limit) ───
	r.Route("/v1/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/register",
			mw.ChainFunc(d.Auth.Register, mw.WithRateLimit(d.RegisterLimiter)))
		r.Method(http.MethodPost, "/login",
			mw.ChainFunc(d.Auth.Login, mw.WithRateLimit(d.LoginLimiter)))
		r.Method(http.MethodGet, "/me",
			mw.ChainFunc(d.Auth.Me, mw.RequireAuth(d.Verifier)))
		r.Method(http.MethodGet, "/verify",
			mw.ChainFunc(d.Auth.Verify, mw.RequireAuth(d.Verifier)))
	})

	// ─── Databases (requiere auth) ───
	r.Route("/v1/databases", func(r chi.Router) {
		r.Use(mw.RequireAuth(d.Verifier))

		r.Post("/", d.Databases.Create)
		r.Get("/", d.Databases.List)
		r.Get("/{databaseID}", d.Databases.Get)

		r.Get("/{databaseID}/history", d.History.History)
		r.Get("/{databaseID}/stats", d.History.Stats)
		r.Get("/{databaseID}/active", d.Presence.Active)

		r.Put("/{databaseID}/collaborators", d.Grants.Upsert)
		r.Get("/{databaseID}/collaborators", d.Grants.List)
		r.Delete("/{databaseID}/collaborators/{userID}", d.Grants.Revoke)
	})

	// ─── WebSocket de colaboración (auth en el handshake) ───
	r.Method(http.MethodGet, "/ws", d.WS)

	return mw.Chain(r,
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithCORS(d.CORSAllowedOrigins),
	)
}
