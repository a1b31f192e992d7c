package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

var (
	technicianID string
	actorID      string
)

func newDecommissionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decommission",
		Short: "Remove a technician and their work records",
		Long:  `Delete a technician's repair logs, assignments, notifications and profile in one transaction. Open tickets return to PENDING.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required for decommission")
			}

			ctx := contextOrBackground(cmd.Context())
			rt, err := newContainer(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer rt.close()

			admin, err := rt.stores.users.GetByID(ctx, actorID)
			if err != nil {
				return fmt.Errorf("load actor %s: %w", actorID, err)
			}
			report, err := rt.coordinator.DecommissionTechnician(ctx, domain.Actor{UserID: admin.ID, Role: admin.Role}, technicianID)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&technicianID, "technician", "t", "", "Technician user id")
	cmd.Flags().StringVarP(&actorID, "actor", "a", "", "Administrator user id performing the removal")
	_ = cmd.MarkFlagRequired("technician")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}
