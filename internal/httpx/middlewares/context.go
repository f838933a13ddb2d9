package middlewares

import (
	"context"

	"github.com/dropDatabas3/collabsql/internal/domain"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyIdentity
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID devuelve el request id del contexto, o "" si no hay.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func setIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFrom devuelve la identidad autenticada del contexto. El
// segundo valor es false si el request no pasó por RequireAuth.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity).(domain.Identity)
	return v, ok
}
