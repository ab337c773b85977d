// README: Cobra command tree for the admin backend (serve, migrate, admin).
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kiloadmin/internal/config"
	"kiloadmin/internal/infra"
)

var cfgFile string

// NewRootCmd builds the command tree. A fresh tree per call keeps tests isolated.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kiloadmin",
		Short:         "Ride-hailing admin dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml/json/toml); env KILO_* overrides")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newAdminCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// bootstrap loads config and builds the logger shared by every command.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := infra.NewLogger(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
