package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dropDatabas3/collabsql/internal/metrics"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
)

// WithLogging registra cada request con campos estructurados y deja un
// logger scoped (request_id, method, path) en el contexto para los
// handlers. También alimenta el contador de requests HTTP.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := w.Header().Get("X-Request-ID")
			if requestID == "" {
				requestID = GetRequestID(r.Context())
			}

			reqLog := logger.L().With(
				logger.RequestID(requestID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			ctx := logger.ToContext(r.Context(), reqLog)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Inc()

			reqLog.Info("request completed",
				logger.Status(status),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration(time.Since(start)),
				logger.ClientIP(r.RemoteAddr),
			)
		})
	}
}
