package main

import (
	"fmt"

	"confectionery/internal/config"
	"confectionery/internal/infra/db"
	gormrepo "confectionery/internal/infra/repository"
	"confectionery/internal/usecase"
	"confectionery/internal/validator"

	"github.com/spf13/cobra"
)

type createAdminOptions struct {
	*rootOptions
	Email    string
	Password string
}

// 管理画面の最初のユーザーを作る（既存ユーザーなら昇格）
func newCreateAdminCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &createAdminOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or promote an admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateAdmin(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "admin password, at least 8 characters (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runCreateAdmin(cmd *cobra.Command, opts *createAdminOptions) error {
	logger := newLogger(opts.rootOptions)
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.EnsureSchema(ctx, gormDB); err != nil {
		return err
	}

	users := gormrepo.NewUserGormRepository(gormDB)
	authUC := usecase.NewAuthUsecase(
		cfg,
		users,
		gormrepo.NewRefreshTokenRepository(gormDB),
		gormrepo.NewAuditLogGormRepository(gormDB),
		validator.NewAuthValidator(users),
		usecase.UUIDv7Generator{},
		usecase.SystemClock{},
	)

	dto, err := authUC.CreateAdmin(ctx, opts.Email, opts.Password)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	logger.Info("admin ready", "user_id", dto.ID, "email", dto.Email)
	return nil
}
