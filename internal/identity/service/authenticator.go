package service

import (
	"context"
	"errors"
	"strings"

	"tg-otp-relay/backend/internal/security"
	tenantdomain "tg-otp-relay/backend/internal/tenant/domain"
)

// Sentinel errors for tenant authentication; the HTTP layer maps both to 401.
var (
	ErrUnknownTenant = errors.New("unknown tenant")
	ErrBadSecret     = errors.New("bad tenant secret")
)

// TenantRepo is the minimal tenant repository needed by the authenticator.
type TenantRepo interface {
	GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error)
}

// SecretComparer checks a presented secret against a stored hash. Burn spends the
// same effort as Compare without a stored hash.
type SecretComparer interface {
	Compare(hash string, secret []byte) error
	Burn(secret []byte)
}

var _ SecretComparer = (*security.Hasher)(nil)

// Authenticator validates tenant credentials before any registry operation.
type Authenticator struct {
	tenants TenantRepo
	hasher  SecretComparer
}

// NewAuthenticator returns an Authenticator with the given dependencies.
func NewAuthenticator(tenants TenantRepo, hasher SecretComparer) *Authenticator {
	return &Authenticator{tenants: tenants, hasher: hasher}
}

// Authenticate returns the tenant for tenantID when secret matches its stored hash.
// An unknown tenant still pays for a full hash comparison so response time does not
// reveal whether the id exists.
func (a *Authenticator) Authenticate(ctx context.Context, tenantID, secret string) (*tenantdomain.Tenant, error) {
	tenantID = strings.TrimSpace(tenantID)
	var t *tenantdomain.Tenant
	if tenantID != "" {
		var err error
		t, err = a.tenants.GetByID(ctx, tenantID)
		if err != nil {
			return nil, err
		}
	}
	if t == nil {
		a.hasher.Burn([]byte(secret))
		return nil, ErrUnknownTenant
	}
	if secret == "" || t.SecretHash == "" {
		a.hasher.Burn([]byte(secret))
		return nil, ErrBadSecret
	}
	if security.IsLegacyDigest(t.SecretHash) {
		// A digest compares in microseconds; pay bcrypt cost so legacy tenants
		// time like everyone else.
		a.hasher.Burn([]byte(secret))
	}
	if err := a.hasher.Compare(t.SecretHash, []byte(secret)); err != nil {
		return nil, ErrBadSecret
	}
	return t, nil
}
