package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/crateful-io/crateful/internal/application/billing"
	"github.com/crateful-io/crateful/internal/application/billing/billinggateway"
	"github.com/crateful-io/crateful/internal/application/billing/usecases"
	"github.com/crateful-io/crateful/internal/infrastructure/cache"
	"github.com/crateful-io/crateful/internal/infrastructure/config"
	"github.com/crateful-io/crateful/internal/infrastructure/database"
	"github.com/crateful-io/crateful/internal/infrastructure/email"
	"github.com/crateful-io/crateful/internal/infrastructure/migration"
	"github.com/crateful-io/crateful/internal/infrastructure/repository"
	httpRouter "github.com/crateful-io/crateful/internal/interfaces/http"
	"github.com/crateful-io/crateful/internal/interfaces/http/handlers"
	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/db"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the ops HTTP server",
		Long:  `Start the HTTP server exposing health checks, manual sweep triggers, and the billing audit trail.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, env == "development"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.NewLogger()
	log.Infow("starting ops server", "environment", env, "auto_migrate", autoMigrate)

	if err := biztime.Init(cfg.Timezone.Business); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	gin.SetMode(mapEnvToGinMode(env))
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		log.Errorw("failed to initialize database", "error", err)
		return err
	}
	defer database.Close()

	if autoMigrate {
		if env == "production" {
			log.Warnw("auto-migration is enabled in production environment - this is not recommended!")
		}
		manager := migration.NewManager(env)
		if err := manager.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Errorw("failed to connect to redis", "error", err)
		return err
	}

	// Repositories
	gormDB := database.Get()
	subscriptionRepo := repository.NewSubscriptionRepository(gormDB, log)
	billingEventRepo := repository.NewBillingEventRepository(gormDB, log)
	orderRepo := repository.NewOrderRepository(gormDB, log)
	productRepo := repository.NewProductRepository(gormDB, log)
	userRepo := repository.NewUserRepository(gormDB, log)

	// Billing collaborators
	validator := billing.NewInventoryValidator(productRepo, log)
	gateway := billinggateway.NewHTTPGateway(billinggateway.HTTPGatewayConfig{
		BaseURL:       cfg.Billing.GatewayBaseURL,
		SecretKey:     cfg.Billing.GatewaySecretKey,
		ChargeTimeout: time.Duration(cfg.Billing.ChargeTimeoutSeconds) * time.Second,
	}, log)
	dispatcher := email.NewSMTPDispatcher(email.SMTPConfig{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		Username:    cfg.Email.SMTPUser,
		Password:    cfg.Email.SMTPPassword,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	}, userRepo, log)
	chargeGuard := cache.NewRedisChargeGuard(redisClient, cache.DefaultChargeMarkerTTL)
	txManager := db.NewTransactionManager(gormDB)

	// Use cases
	renewUC := usecases.NewRenewSubscriptionUseCase(
		subscriptionRepo,
		billingEventRepo,
		orderRepo,
		validator,
		gateway,
		dispatcher,
		chargeGuard,
		txManager,
		cfg.Billing.Currency,
		log,
	)
	processDueRenewalsUC := usecases.NewProcessDueRenewalsUseCase(subscriptionRepo, renewUC, log)
	processPaymentRetriesUC := usecases.NewProcessPaymentRetriesUseCase(subscriptionRepo, renewUC, log)
	preparePaymentMethodUC := usecases.NewPreparePaymentMethodUseCase(subscriptionRepo, gateway, userRepo, log)

	billingOps := handlers.NewBillingOpsHandler(
		processDueRenewalsUC,
		processPaymentRetriesUC,
		preparePaymentMethodUC,
		subscriptionRepo,
		billingEventRepo,
		log,
	)

	router := httpRouter.NewRouter(billingOps, gormDB, log)
	router.SetupRoutes()

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "address", cfg.Server.GetAddr())

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
