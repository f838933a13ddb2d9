package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/collabsql/internal/auth"
	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
)

// RequireAuth valida Authorization: Bearer <JWT>, resuelve la identidad
// y la deja en el contexto. Responde 401 si falta o no valida.
func RequireAuth(verifier auth.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			identity, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					httperrors.WriteError(w, httperrors.ErrTokenExpired)
				case errors.Is(err, auth.ErrUserDisabled):
					httperrors.WriteError(w, httperrors.ErrAccountSuspended)
				default:
					httperrors.WriteError(w, httperrors.ErrTokenInvalid)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(setIdentity(r.Context(), identity)))
		})
	}
}
