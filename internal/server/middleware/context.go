// Package middleware holds the HTTP middleware of the tenant API and the request-scoped
// helpers handlers use: authenticated tenant, client IP, error recording, JSON responses.
package middleware

import (
	"context"
	"sync"

	tenantdomain "tg-otp-relay/backend/internal/tenant/domain"
)

type contextKey struct{ name string }

var (
	tenantKey = contextKey{"tenant"}
	stateKey  = contextKey{"request_state"}
)

// requestState is shared by the middleware chain and the handler of one request.
type requestState struct {
	mu       sync.Mutex
	ip       string
	tenantID string
	errCode  string
}

func withState(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, stateKey, &requestState{ip: ip})
}

func stateFrom(ctx context.Context) *requestState {
	s, _ := ctx.Value(stateKey).(*requestState)
	return s
}

// WithTenant returns a context carrying the authenticated tenant.
func WithTenant(ctx context.Context, t *tenantdomain.Tenant) context.Context {
	if s := stateFrom(ctx); s != nil && t != nil {
		s.mu.Lock()
		s.tenantID = t.ID
		s.mu.Unlock()
	}
	return context.WithValue(ctx, tenantKey, t)
}

// TenantFromContext returns the authenticated tenant and true if set; otherwise nil, false.
func TenantFromContext(ctx context.Context) (*tenantdomain.Tenant, bool) {
	t, ok := ctx.Value(tenantKey).(*tenantdomain.Tenant)
	return t, ok && t != nil
}

// SetErrorCode records why the request failed, for audit and telemetry. The first code wins.
func SetErrorCode(ctx context.Context, code string) {
	s := stateFrom(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.errCode == "" {
		s.errCode = code
	}
	s.mu.Unlock()
}

// ErrorCode returns the code recorded by SetErrorCode, or "".
func ErrorCode(ctx context.Context) string {
	s := stateFrom(ctx)
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errCode
}

// ClientIPFromContext returns the client IP captured by Track, or "unknown".
func ClientIPFromContext(ctx context.Context) string {
	if s := stateFrom(ctx); s != nil && s.ip != "" {
		return s.ip
	}
	return "unknown"
}

// setAttemptedTenant records the claimed tenant of a request that failed authentication.
func setAttemptedTenant(ctx context.Context, tenantID string) {
	if s := stateFrom(ctx); s != nil {
		s.mu.Lock()
		s.tenantID = tenantID
		s.mu.Unlock()
	}
}

func tenantIDFrom(ctx context.Context) string {
	s := stateFrom(ctx)
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenantID
}
