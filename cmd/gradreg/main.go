package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"gradreg/cmd/gradreg/config"
	"gradreg/internal/gradreg"
	"gradreg/internal/gradreg/data/database"
	"gradreg/internal/gradreg/data/dbrepository"
	"gradreg/internal/gradreg/gateway"
	"gradreg/internal/gradreg/reconciler"
	"gradreg/internal/gradreg/service"
	"gradreg/pkg/envelope"
	"gradreg/pkg/jwtfactory"
	"gradreg/pkg/logging"
	"gradreg/pkg/pgxstorage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewZapLogger(zapcore.DebugLevel)
	if err != nil {
		log.Fatal(err)
	}

	dbFactory := database.NewPgxDatabaseFactory(cfg.DB)
	storage, err := pgxstorage.New(dbFactory)
	if err != nil {
		log.Fatal(err)
	}
	repository := dbrepository.New(storage, logger)
	transactionManager := pgxstorage.NewTransactionsManager(storage)

	tokenAuth := jwtauth.New(cfg.JWT.Algorithm, []byte(cfg.JWT.Secret), nil)
	tokenFactory := jwtfactory.New(tokenAuth, cfg.JWT.ExpirationTime)

	codec := envelope.NewCodec(
		cfg.GatewaySecrets.SigningSecret,
		cfg.GatewaySecrets.EncryptionSecret,
		cfg.Gateway.ClientID,
		cfg.GatewaySecrets.KeyID,
	)
	gatewayClient := gateway.NewClient(cfg.Gateway, cfg.GatewayStatus, codec, logger)

	registrationService := service.NewRegistration(repository, transactionManager)
	paymentsService := service.NewPayments(
		cfg.Payments,
		cfg.Gateway,
		repository,
		repository,
		transactionManager,
		gatewayClient,
		gateway.NewBillDeskAdapter(),
		logger,
	)
	adminService := service.NewAdmin(cfg.Admin, tokenFactory)

	ordersReconciler := reconciler.New(cfg.Reconciler, repository, paymentsService, logger)

	server := gradreg.NewServer(
		cfg.Server,
		tokenAuth,
		gradreg.Services{
			Registration:  registrationService,
			EmailCheck:    registrationService,
			OrderCreation: paymentsService,
			OrderStatus:   paymentsService,
			Webhook:       paymentsService,
			PaymentReturn: paymentsService,
			AdminLogin:    adminService,
			Registrations: registrationService,
			Sweeper:       ordersReconciler,
		},
		cfg.Reconciler.OlderThan,
		logger,
	)

	rootCtx, cancelCtx := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGABRT,
	)
	defer cancelCtx()

	if !cfg.GatewayStatus.Configured {
		logger.WarnCtx(rootCtx, "gateway credentials incomplete, payment client runs in mock mode",
			zap.Strings("missing", cfg.GatewayStatus.MissingFields))
	}

	if err := run(rootCtx, cfg, server, ordersReconciler, logger); err != nil {
		logger.ErrorCtx(rootCtx, "Server shutdown with error", zap.Error(err))
	} else {
		logger.InfoCtx(rootCtx, "Server shutdown gracefully")
	}
}

func run(
	rootCtx context.Context,
	cfg *config.Config,
	server *gradreg.Server,
	ordersReconciler *reconciler.Reconciler,
	logger *logging.ZapLogger,
) error {
	g, ctx := errgroup.WithContext(rootCtx)

	context.AfterFunc(ctx, func() {
		ctx, cancelCtx := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelCtx()

		<-ctx.Done()
		log.Fatal("failed to gracefully shutdown the server")
	})

	g.Go(func() error {
		if err := server.Run(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ordersReconciler.Run()
		return nil
	})

	g.Go(func() error {
		defer logger.InfoCtx(ctx, "Shutting down server")
		<-ctx.Done()
		ordersReconciler.Stop()
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("goroutine error occured: %w", err)
	}

	return nil
}
