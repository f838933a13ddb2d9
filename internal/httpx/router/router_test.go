package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/collabsql/internal/auth"
	memcache "github.com/dropDatabas3/collabsql/internal/cache/memory"
	"github.com/dropDatabas3/collabsql/internal/collab"
	authctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/auth"
	dbctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/databases"
	grantctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/grants"
	healthctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/health"
	histctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/history"
	presencectrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/presence"
	"github.com/dropDatabas3/collabsql/internal/ledger"
	"github.com/dropDatabas3/collabsql/internal/permission"
	memstore "github.com/dropDatabas3/collabsql/internal/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := memstore.New()
	tokens := auth.NewTokenService("secreto-de-test", "collabsql", time.Hour, st)
	gate := permission.NewGate(st, st, memcache.New(time.Minute), 30*time.Second)
	admin := permission.NewAdmin(st, st, st, gate, nil)
	lg := ledger.New(st, gate, 50)

	registry := collab.NewRegistry()
	broadcaster := collab.NewBroadcaster(registry)
	hub := collab.NewHub(registry, broadcaster, gate, lg)

	h := New(Deps{
		Verifier:           tokens,
		Auth:               authctrl.NewController(auth.NewService(st, tokens)),
		Databases:          dbctrl.NewController(st, gate),
		Grants:             grantctrl.NewController(admin),
		History:            histctrl.NewController(lg),
		Presence:           presencectrl.NewController(registry, gate),
		Health:             healthctrl.NewController(st),
		WS:                 collab.NewWSHandler(hub, tokens, []string{"*"}, 64),
		CORSAllowedOrigins: []string{"*"},
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func registerUser(t *testing.T, base, email, username string) string {
	t.Helper()
	resp, out := doJSON(t, http.MethodPost, base+"/v1/auth/register", "", map[string]string{
		"email": email, "username": username, "password": "contraseña123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d (%v)", email, resp.StatusCode, out)
	}
	tok, _ := out["token"].(string)
	if tok == "" {
		t.Fatalf("register %s: sin token en la respuesta", email)
	}
	return tok
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, out := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("healthz: %d %v", resp.StatusCode, out)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	tok := registerUser(t, srv.URL, "ana@example.com", "ana")

	// me con token
	resp, out := doJSON(t, http.MethodGet, srv.URL+"/v1/auth/me", tok, nil)
	if resp.StatusCode != http.StatusOK || out["username"] != "ana" {
		t.Fatalf("me: %d %v", resp.StatusCode, out)
	}

	// me sin token: 401
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me sin token: quería 401, vino %d", resp.StatusCode)
	}

	// login con la misma contraseña
	resp, out = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "contraseña123",
	})
	if resp.StatusCode != http.StatusOK || out["token"] == "" {
		t.Fatalf("login: %d %v", resp.StatusCode, out)
	}
}

func TestDatabaseGrantHistoryFlow(t *testing.T) {
	srv := newTestServer(t)
	anaTok := registerUser(t, srv.URL, "ana@example.com", "ana")
	betoTok := registerUser(t, srv.URL, "beto@example.com", "beto")

	// ana crea una database
	resp, out := doJSON(t, http.MethodPost, srv.URL+"/v1/databases", anaTok, map[string]string{
		"name": "ventas",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create db: %d %v", resp.StatusCode, out)
	}
	dbID, _ := out["id"].(string)
	if dbID == "" {
		t.Fatal("create db: sin id")
	}
	base := fmt.Sprintf("%s/v1/databases/%s", srv.URL, dbID)

	// beto todavía no tiene acceso
	resp, _ = doJSON(t, http.MethodGet, base, betoTok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("sin grant: quería 404, vino %d", resp.StatusCode)
	}

	// ana lo invita como viewer
	resp, out = doJSON(t, http.MethodPut, base+"/collaborators", anaTok, map[string]string{
		"email": "beto@example.com", "permission_level": "viewer",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("grant: %d %v", resp.StatusCode, out)
	}

	// ahora sí puede leer, y la respuesta trae su nivel real
	resp, out = doJSON(t, http.MethodGet, base, betoTok, nil)
	if resp.StatusCode != http.StatusOK || out["permission_level"] != "viewer" {
		t.Fatalf("get con grant: %d %v", resp.StatusCode, out)
	}

	// beto no puede otorgar (no es owner)
	resp, _ = doJSON(t, http.MethodPut, base+"/collaborators", betoTok, map[string]string{
		"email": "ana@example.com", "permission_level": "editor",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("grant de no-owner: quería 403, vino %d", resp.StatusCode)
	}

	// historial vacío, página 1
	resp, out = doJSON(t, http.MethodGet, base+"/history", betoTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: %d %v", resp.StatusCode, out)
	}
	if page, _ := out["page"].(float64); page != 1 {
		t.Fatalf("page por defecto: %v", out["page"])
	}

	// stats vacíos
	resp, out = doJSON(t, http.MethodGet, base+"/stats", betoTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: %d %v", resp.StatusCode, out)
	}
	if total, _ := out["total"].(float64); total != 0 {
		t.Fatalf("stats total: %v", out["total"])
	}

	// presencia: nadie conectado por ws todavía
	resp, out = doJSON(t, http.MethodGet, base+"/active", betoTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("active: %d %v", resp.StatusCode, out)
	}
	if count, _ := out["count"].(float64); count != 0 {
		t.Fatalf("active count: %v", out["count"])
	}

	// ana revoca y beto pierde acceso
	// (el id de beto sale de la lista de colaboradores)
	resp, out = doJSON(t, http.MethodGet, base+"/collaborators", anaTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("collaborators: %d %v", resp.StatusCode, out)
	}
	list, _ := out["collaborators"].([]any)
	if len(list) != 1 {
		t.Fatalf("quería 1 colaborador, vino %v", out)
	}
	betoID, _ := list[0].(map[string]any)["user_id"].(string)

	resp, _ = doJSON(t, http.MethodDelete, base+"/collaborators/"+betoID, anaTok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke: quería 204, vino %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, base, betoTok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("post-revoke: quería 404, vino %d", resp.StatusCode)
	}
}
