package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"confectionery/internal/config"
	"confectionery/internal/handler"
	"confectionery/internal/infra/db"
	"confectionery/internal/infra/messaging"
	gormrepo "confectionery/internal/infra/repository"
	"confectionery/internal/infra/session"
	"confectionery/internal/infra/storage"
	repo "confectionery/internal/repository"
	"confectionery/internal/server"
	"confectionery/internal/usecase"
	"confectionery/internal/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), newLogger(rootOpts))
		},
	}
}

func runServe(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// DB接続。テーブルが無ければ起動しない（migrate upを先に流す）
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.EnsureSchema(ctx, gormDB); err != nil {
		return err
	}

	redisClient, closeRedis, err := openRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	images, err := openImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	var events usecase.OrderEventPublisher = messaging.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := messaging.NewRabbitPublisher(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer p.Close()
		events = p
	} else {
		logger.Warn("AMQP_URL is empty, order events are not published")
	}

	//Repository（GORM実装）生成
	userRepo := gormrepo.NewUserGormRepository(gormDB)
	rtRepo := gormrepo.NewRefreshTokenRepository(gormDB)
	auditRepo := gormrepo.NewAuditLogGormRepository(gormDB)
	categoryRepo := gormrepo.NewCategoryGormRepository(gormDB)
	productRepo := gormrepo.NewProductGormRepository(gormDB)
	newsRepo := gormrepo.NewNewsGormRepository(gormDB)
	orderRepo := gormrepo.NewOrderGormRepository(gormDB)
	txm := gormrepo.NewTxManagerGorm(gormDB)

	carts := session.NewRedisCartStore(redisClient, cfg.SessionTTL)
	checkouts := session.NewRedisCheckoutStore(redisClient, cfg.SessionTTL)

	ids := usecase.UUIDv7Generator{}
	clock := usecase.SystemClock{}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, auditRepo, validator.NewAuthValidator(userRepo), ids, clock)
	catalogUC := usecase.NewCatalogUsecase(categoryRepo, productRepo, newsRepo)
	cartUC := usecase.NewCartUsecase(carts, productRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txm, orderRepo, carts, checkouts, userRepo, events, ids, clock, logger)
	orderUC := usecase.NewOrderUsecase(txm)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, ids, clock)
	adminCatalogUC := usecase.NewAdminCatalogUsecase(categoryRepo, productRepo, newsRepo, auditRepo, images, ids, clock, logger, cfg.Storage.MaxUploadBytes)

	//Handler生成
	srv := server.New(cfg, logger)
	srv.RegisterRoutes(cfg, userRepo, server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": handler.PingFunc(sqlDB.PingContext),
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		}),
		Catalog:      handler.NewCatalogHandler(catalogUC),
		Cart:         handler.NewCartHandler(cartUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Auth:         handler.NewAuthHandler(authUC, cfg),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminCatalog: handler.NewAdminCatalogHandler(adminCatalogUC),
		AdminUser:    handler.NewAdminUserHandler(authUC),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// REDIS_URLが空なら開発用に組み込みredisを立てる（prodでは不可）
func openRedis(cfg config.Config, logger *slog.Logger) (*redis.Client, func(), error) {
	if cfg.RedisURL == "" {
		if cfg.IsProd() {
			return nil, nil, fmt.Errorf("REDIS_URL is required in prod")
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		logger.Warn("REDIS_URL is empty, using embedded redis (sessions are lost on restart)")
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return client, func() { _ = client.Close(); mr.Close() }, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	return client, func() { _ = client.Close() }, nil
}

func openImageStore(ctx context.Context, cfg config.Config) (repo.ImageStore, error) {
	switch cfg.Storage.Driver {
	case "minio":
		return storage.NewMinioImageStore(ctx, storage.MinioConfig{
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		}, repo.BucketProducts, repo.BucketNews)
	default:
		return storage.NewLocalImageStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	}
}
