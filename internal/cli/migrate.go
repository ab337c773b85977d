package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kiloadmin/internal/infra"
	"kiloadmin/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			db, err := infra.NewDB(ctx, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Apply(ctx, db); err != nil {
				return err
			}
			names, _ := migrations.Names()
			log.Info("migrations applied", zap.Strings("files", names))
			return nil
		},
	}
}
