package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	identitysvc "tg-otp-relay/backend/internal/identity/service"
	"tg-otp-relay/backend/internal/telemetry"
	tenantdomain "tg-otp-relay/backend/internal/tenant/domain"
)

// Credential headers sent by tenants on every /api and /dev call.
const (
	HeaderClientID     = "X-Client-ID"
	HeaderClientSecret = "X-Client-Secret"
)

// Error codes written by Auth.
const (
	CodeMissingCredentials = "missing_credentials"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInternal           = "internal"
)

// Authenticator resolves tenant credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, tenantID, secret string) (*tenantdomain.Tenant, error)
}

// Auth returns middleware that authenticates the tenant from the credential headers and
// stores it in the request context. Unknown tenant and bad secret both answer 401
// invalid_credentials; the recorded error code keeps them apart for audit and telemetry.
// emitter may be nil.
func Auth(authn Authenticator, emitter telemetry.EventEmitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := strings.TrimSpace(r.Header.Get(HeaderClientID))
			secret := r.Header.Get(HeaderClientSecret)
			if id == "" || secret == "" {
				emitAuthFailed(emitter, id, CodeMissingCredentials)
				WriteError(w, r, http.StatusUnauthorized, CodeMissingCredentials, "X-Client-ID and X-Client-Secret headers are required")
				return
			}
			t, err := authn.Authenticate(ctx, id, secret)
			switch {
			case errors.Is(err, identitysvc.ErrUnknownTenant):
				SetErrorCode(ctx, "unknown_tenant")
				emitAuthFailed(emitter, "", "unknown_tenant")
				WriteError(w, r, http.StatusUnauthorized, CodeInvalidCredentials, "invalid client credentials")
				return
			case errors.Is(err, identitysvc.ErrBadSecret):
				setAttemptedTenant(ctx, id)
				SetErrorCode(ctx, "bad_secret")
				emitAuthFailed(emitter, id, "bad_secret")
				WriteError(w, r, http.StatusUnauthorized, CodeInvalidCredentials, "invalid client credentials")
				return
			case err != nil:
				log.Printf("auth: authenticate tenant: %v", err)
				WriteError(w, r, http.StatusInternalServerError, CodeInternal, "internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(ctx, t)))
		})
	}
}

func emitAuthFailed(emitter telemetry.EventEmitter, tenantID, reason string) {
	if emitter == nil {
		return
	}
	telemetry.EmitAsync(emitter, telemetry.NewEvent(telemetry.EventAuthFailed, telemetry.SourceHTTP,
		tenantID, "", "failure", map[string]any{"reason": reason}))
}
