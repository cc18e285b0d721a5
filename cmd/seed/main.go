// seed inserts the sample tenant PHOENIX_SOUL_RISE for local testing.
// Idempotent: skips the insert if the tenant already exists.
package main

import (
	"context"
	"log"

	"tg-otp-relay/backend/internal/config"
	"tg-otp-relay/backend/internal/db"
	"tg-otp-relay/backend/internal/security"
	tenantrepo "tg-otp-relay/backend/internal/tenant/repository"
	tenantsvc "tg-otp-relay/backend/internal/tenant/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	p := tenantsvc.NewProvisioner(tenantrepo.NewPostgresRepository(conn), security.NewHasher(cfg.BcryptCost))
	created, err := p.EnsureSample(context.Background())
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if !created {
		log.Printf("Seed already applied (%s exists). Skipping.", tenantsvc.SampleTenantID)
		return
	}
	log.Printf("Seeded tenant %s (%s) with secret %s", tenantsvc.SampleTenantID, tenantsvc.SampleTenantName, tenantsvc.SampleTenantSecret)
}
