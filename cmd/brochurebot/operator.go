package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/brochurebot/internal/adapters/driven/postgres"
	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/services"
)

var (
	operatorEmail    string
	operatorPassword string
	operatorName     string
)

func init() {
	operatorCreateCmd.Flags().StringVar(&operatorEmail, "email", "", "operator email, also the tenant identifier")
	operatorCreateCmd.Flags().StringVar(&operatorPassword, "password", "", "operator password")
	operatorCreateCmd.Flags().StringVar(&operatorName, "name", "", "display name shown on the public chat page")
	_ = operatorCreateCmd.MarkFlagRequired("email")
	_ = operatorCreateCmd.MarkFlagRequired("password")

	operatorCmd.AddCommand(operatorCreateCmd)
}

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Manage operator accounts",
}

var operatorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator account",
	Long: `Create an operator account. Each operator owns one tenant: the
lowercased email selects the tenant namespace.

Example:
  brochurebot operator create --email owner@venue.example --password 's3cret-pass' --name "The Venue"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		a, err := openApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		authService := services.NewAuthService(postgres.NewOperatorStore(a.db), a.sessions, a.authAdapter(), cfg.Auth.SessionTTL)
		op, err := authService.CreateOperator(ctx, domain.CreateOperatorRequest{
			Email:    operatorEmail,
			Password: operatorPassword,
			Name:     operatorName,
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("operator %s already exists", operatorEmail)
		}
		if err != nil {
			return err
		}

		tenant, _ := domain.NewTenantID(op.Email)
		fmt.Fprintf(cmd.OutOrStdout(), "created operator %s (%s), namespace %s\n", op.Email, op.ID, tenant.Namespace())
		return nil
	},
}
