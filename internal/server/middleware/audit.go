package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"tg-otp-relay/backend/internal/audit"
	auditdomain "tg-otp-relay/backend/internal/audit/domain"
)

// Audit returns middleware that records one audit entry per call after the handler returns.
// Mount it outside Auth so rejected credentials are recorded too. Writes are best-effort.
func Audit(logger audit.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if logger == nil {
				return
			}
			ar := audit.ParseRoute(r.Method, r.URL.Path)
			logger.LogEvent(r.Context(), tenantIDFrom(r.Context()), ar.Action, ar.Resource, outcome(r, ww.Status()))
		})
	}
}

// outcome is "success" for 2xx/3xx, otherwise "failure:<code>" using the recorded error code.
func outcome(r *http.Request, status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	if status < http.StatusBadRequest {
		return auditdomain.OutcomeSuccess
	}
	code := ErrorCode(r.Context())
	if code == "" {
		code = http.StatusText(status)
	}
	return auditdomain.OutcomeFailure + ":" + code
}
