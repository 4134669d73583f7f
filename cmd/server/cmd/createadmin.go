package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nariz-encantado/server/internal/config"
	"github.com/nariz-encantado/server/internal/domain/users"
	"github.com/nariz-encantado/server/internal/email"
	"github.com/nariz-encantado/server/internal/storage/postgres"
)

var (
	adminFullName string
	adminEmail    string
	adminCPF      string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Create an administrator account directly in the database.

Examples:
  server create-admin --email admin@narizencantado.org --cpf 52998224725 \
    --full-name "Ana Lima" --password "change-me-soon"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return fmt.Errorf("--email and --password are required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger := config.NewLogger(cfg.Logging)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		repos, err := postgres.NewRepository(pool)
		if err != nil {
			return fmt.Errorf("init repositories: %w", err)
		}

		mailer, err := email.NewService(cfg.Email, logger)
		if err != nil {
			return fmt.Errorf("init email service: %w", err)
		}

		service := users.NewService(repos.Users(), repos.PasswordResets(), mailer, cfg.Server.BaseURL, cfg.Auth.ResetExpiry, logger)

		user, err := service.Bootstrap(ctx, users.RegisterParams{
			FullName: adminFullName,
			CPF:      adminCPF,
			Email:    adminEmail,
			Password: adminPassword,
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "admin created: %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminFullName, "full-name", "Administrator", "admin full name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email address")
	createAdminCmd.Flags().StringVar(&adminCPF, "cpf", "", "admin CPF (11 digits)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")
}
