package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/crateful-io/crateful/internal/application/billing"
	"github.com/crateful-io/crateful/internal/application/billing/billinggateway"
	"github.com/crateful-io/crateful/internal/application/billing/usecases"
	"github.com/crateful-io/crateful/internal/infrastructure/cache"
	"github.com/crateful-io/crateful/internal/infrastructure/config"
	"github.com/crateful-io/crateful/internal/infrastructure/database"
	"github.com/crateful-io/crateful/internal/infrastructure/email"
	"github.com/crateful-io/crateful/internal/infrastructure/repository"
	"github.com/crateful-io/crateful/internal/infrastructure/scheduler"
	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/db"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the billing worker",
		Long:  `Start the billing worker that runs the daily renewal and payment retry sweeps.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

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
	log.Infow("starting billing worker", "environment", env)

	if err := biztime.Init(cfg.Timezone.Business); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		log.Errorw("failed to initialize database", "error", err)
		return err
	}
	defer database.Close()

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
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

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

	// Schedulers
	renewalScheduler := scheduler.NewRenewalScheduler(
		processDueRenewalsUC,
		log,
		time.Duration(cfg.Worker.RenewalSweepIntervalHours)*time.Hour,
	)
	retryScheduler := scheduler.NewRetryScheduler(
		processPaymentRetriesUC,
		log,
		time.Duration(cfg.Worker.RetrySweepIntervalHours)*time.Hour,
		time.Duration(cfg.Worker.RetrySweepOffsetHours)*time.Hour,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renewalScheduler.Start(ctx)
	retryScheduler.Start(ctx)

	log.Infow("billing worker started",
		"renewal_interval_hours", cfg.Worker.RenewalSweepIntervalHours,
		"retry_interval_hours", cfg.Worker.RetrySweepIntervalHours,
		"retry_offset_hours", cfg.Worker.RetrySweepOffsetHours,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Infow("received signal, shutting down", "signal", sig)

	renewalScheduler.Stop()
	retryScheduler.Stop()

	log.Infow("billing worker stopped")
	return nil
}
