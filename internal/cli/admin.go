package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kiloadmin/internal/infra"
	"kiloadmin/internal/modules/auth"
)

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage dashboard admin accounts",
	}
	admin.AddCommand(newAdminCreateCmd())
	return admin
}

func newAdminCreateCmd() *cobra.Command {
	var phone, password, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin or staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := auth.Role(role)
			if !r.Valid() {
				return fmt.Errorf("role must be admin or staff, got %q", role)
			}
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

			// Token issuing is unused here; the issuer only satisfies the service.
			svc := auth.NewService(auth.NewStore(db), infra.NewJWTIssuer(cfg.Auth.JWTSecret, time.Hour), log)
			a, err := svc.CreateAdmin(ctx, phone, password, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", a.Role, a.Phone, a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "sign-in phone number")
	cmd.Flags().StringVar(&password, "password", "", "sign-in password (min 6 chars)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStaff), "admin or staff")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
