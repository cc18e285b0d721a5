package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tg-otp-relay/backend/internal/config"
	linksvc "tg-otp-relay/backend/internal/link/service"
	otpsvc "tg-otp-relay/backend/internal/otp/service"
	"tg-otp-relay/backend/internal/purge"
	"tg-otp-relay/backend/internal/storage"
)

func purgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired linking codes and OTP records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStores(cmd.Context(), func(cfg *config.Config, s *storage.Stores) error {
				n := purge.Once(cmd.Context(),
					purge.Target{Name: "linking codes", Purger: linksvc.NewRegistry(s.Links, s.Tenants, cfg.LinkCodeLifetime())},
					purge.Target{Name: "otp records", Purger: otpsvc.NewRegistry(s.OTPs, s.Links, cfg.OTPLifetime())},
				)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired records\n", n)
				return nil
			})
		},
	}
}
