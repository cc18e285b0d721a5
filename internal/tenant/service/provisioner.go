// Package service provisions tenants for cmd/seed and the admin CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-otp-relay/backend/internal/security"
	"tg-otp-relay/backend/internal/tenant/domain"
	"tg-otp-relay/backend/internal/tenant/repository"
)

// Sentinel errors for provisioning.
var (
	ErrTenantExists  = errors.New("tenant already exists")
	ErrInvalidTenant = errors.New("tenant id and display name are required")
)

// Sample tenant for local development, seeded by cmd/seed and by the in-memory server.
const (
	SampleTenantID     = "PHOENIX_SOUL_RISE"
	SampleTenantSecret = "super_secret_key_123"
	SampleTenantName   = "Phoenix Soul Rise"
)

// SecretHasher hashes a new tenant secret for storage.
type SecretHasher interface {
	Hash(secret []byte) (string, error)
}

// Provisioner creates tenants with hashed secrets.
type Provisioner struct {
	repo   repository.Repository
	hasher SecretHasher
	genF   func() string
	nowF   func() time.Time
}

// NewProvisioner returns a Provisioner.
func NewProvisioner(repo repository.Repository, hasher SecretHasher) *Provisioner {
	return &Provisioner{
		repo:   repo,
		hasher: hasher,
		genF:   security.GenerateSecret,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new tenant. An empty secret is generated. The plaintext secret is
// returned once and never stored. Returns ErrTenantExists if id is taken.
func (p *Provisioner) Create(ctx context.Context, id, displayName, secret string) (*domain.Tenant, string, error) {
	id, displayName = strings.TrimSpace(id), strings.TrimSpace(displayName)
	if id == "" || displayName == "" {
		return nil, "", ErrInvalidTenant
	}
	existing, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get tenant: %w", err)
	}
	if existing != nil {
		return nil, "", ErrTenantExists
	}
	if secret == "" {
		secret = p.genF()
	}
	hash, err := p.hasher.Hash([]byte(secret))
	if err != nil {
		return nil, "", fmt.Errorf("hash secret: %w", err)
	}
	t := &domain.Tenant{ID: id, SecretHash: hash, DisplayName: displayName, CreatedAt: p.nowF()}
	if err := p.repo.Upsert(ctx, t); err != nil {
		return nil, "", fmt.Errorf("store tenant: %w", err)
	}
	return t, secret, nil
}

// Ensure creates the tenant unless it exists. Reports whether it was created.
func (p *Provisioner) Ensure(ctx context.Context, id, displayName, secret string) (bool, error) {
	_, _, err := p.Create(ctx, id, displayName, secret)
	if errors.Is(err, ErrTenantExists) {
		return false, nil
	}
	return err == nil, err
}

// Get returns the tenant for id, or nil if not found.
func (p *Provisioner) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	return p.repo.GetByID(ctx, strings.TrimSpace(id))
}

// EnsureSample creates the sample tenant unless it exists.
func (p *Provisioner) EnsureSample(ctx context.Context) (bool, error) {
	return p.Ensure(ctx, SampleTenantID, SampleTenantName, SampleTenantSecret)
}
