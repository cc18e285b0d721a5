// otpctl is the admin CLI: tenant provisioning, expiry purge and migrations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tg-otp-relay/backend/internal/config"
	"tg-otp-relay/backend/internal/security"
	"tg-otp-relay/backend/internal/storage"
)

var Version = "dev"

// app carries the collaborators shared by subcommands. Tests swap the loaders.
type app struct {
	loadConfig func() (*config.Config, error)
	openStores func(ctx context.Context, cfg *config.Config) (*storage.Stores, error)
	migrate    func(dsn, direction string) error
}

func main() {
	if err := newRootCmd(defaultApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "otpctl",
		Short:         "Administer the Telegram OTP relay",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(tenantCmd(a))
	rootCmd.AddCommand(purgeCmd(a))
	rootCmd.AddCommand(migrateCmd(a))
	return rootCmd
}

// withStores loads config, opens storage and runs fn.
func (a *app) withStores(ctx context.Context, fn func(cfg *config.Config, s *storage.Stores) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	s, err := a.openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cfg, s)
}

func (a *app) hasher(cfg *config.Config) *security.Hasher {
	return security.NewHasher(cfg.BcryptCost)
}
