// Package server assembles the tenant HTTP router and the gRPC health server.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tg-otp-relay/backend/internal/api/handler"
	"tg-otp-relay/backend/internal/audit"
	healthhandler "tg-otp-relay/backend/internal/health/handler"
	"tg-otp-relay/backend/internal/server/middleware"
	"tg-otp-relay/backend/internal/telemetry"
)

// requestTimeout bounds a tenant call, including the outbound Telegram send.
const requestTimeout = 30 * time.Second

// Deps holds the collaborators of the HTTP router.
type Deps struct {
	API           *handler.Handler
	Authenticator middleware.Authenticator
	Health        *healthhandler.Checker
	// Audit records tenant calls. May be nil.
	Audit audit.AuditLogger
	// Emitter receives auth failures and per-request events. May be nil.
	Emitter telemetry.EventEmitter
	// TrustedProxies may set the client IP through forwarding headers. Nil trusts nobody.
	TrustedProxies *middleware.TrustedProxies
}

// NewRouter returns the tenant API wrapped in otelhttp.
//
// Routes:
//   - GET  /health, /ready                     (no auth)
//   - POST /api/v1/link/generate_code          (tenant auth)
//   - POST /api/v1/otp/send, /api/v1/otp/verify (tenant auth)
//   - GET  /dev/otp                            (tenant auth, dev delivery only)
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, middleware.Track(deps.TrustedProxies))

	r.Get("/health", deps.Health.Liveness)
	r.Get("/ready", deps.Health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(
			chimw.Timeout(requestTimeout),
			middleware.Telemetry(deps.Emitter),
			middleware.Audit(deps.Audit),
			middleware.Auth(deps.Authenticator, deps.Emitter),
		)
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/link/generate_code", deps.API.GenerateCode)
			r.Post("/otp/send", deps.API.SendOTP)
			r.Post("/otp/verify", deps.API.VerifyOTP)
		})
		if deps.API.DevEnabled() {
			r.Get("/dev/otp", deps.API.DevOTP)
		}
	})

	return otelhttp.NewHandler(r, "tenant-api")
}
