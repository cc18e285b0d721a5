package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tg-otp-relay/backend/internal/telemetry"
)

// Telemetry returns middleware that emits an http_request event after each call.
// Best-effort and asynchronous. If emitter is nil the middleware is a pass-through.
func Telemetry(emitter telemetry.EventEmitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			result := "success"
			if status >= http.StatusBadRequest {
				result = "failure"
			}
			meta := map[string]any{
				"route":       route,
				"method":      r.Method,
				"status_code": status,
				"duration_ms": time.Since(start).Milliseconds(),
				"client_ip":   ClientIPFromContext(r.Context()),
			}
			if code := ErrorCode(r.Context()); code != "" {
				meta["error_code"] = code
			}
			telemetry.EmitAsync(emitter, telemetry.NewEvent(telemetry.EventHTTPRequest, telemetry.SourceHTTP,
				tenantIDFrom(r.Context()), "", result, meta))
		})
	}
}
