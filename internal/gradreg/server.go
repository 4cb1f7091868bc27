package gradreg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"gradreg/internal/gradreg/handlers"
	"gradreg/internal/gradreg/middleware"
	"gradreg/pkg/logging"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration
}

// Services bundles everything the HTTP surface depends on. The payment
// service backs four routes with different slices of its behaviour, hence
// the per-route interfaces in the handlers package.
type Services struct {
	Registration  handlers.RegistrationService
	EmailCheck    handlers.EmailCheckService
	OrderCreation handlers.OrderCreationService
	OrderStatus   handlers.OrderStatusService
	Webhook       handlers.WebhookService
	PaymentReturn handlers.PaymentReturnService
	AdminLogin    handlers.AdminLoginService
	Registrations handlers.RegistrationsGettingService
	Sweeper       handlers.Sweeper
}

type Server struct {
	logger     *logging.ZapLogger
	httpServer *http.Server
	cfg        Config
}

func NewServer(
	cfg Config,
	tokenAuth *jwtauth.JWTAuth,
	services Services,
	reconcileOlderThan time.Duration,
	logger *logging.ZapLogger,
) *Server {
	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: createMux(tokenAuth, services, reconcileOlderThan, logger),
	}

	return &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: srv,
	}
}

func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server ListenAndServe failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func createMux(
	tokenAuth *jwtauth.JWTAuth,
	services Services,
	reconcileOlderThan time.Duration,
	logger *logging.ZapLogger,
) *chi.Mux {
	registrationHandler := handlers.NewRegistrationHandler(services.Registration, logger)
	emailCheckHandler := handlers.NewEmailCheckHandler(services.EmailCheck, logger)
	orderCreationHandler := handlers.NewOrderCreationHandler(services.OrderCreation, logger)
	orderStatusHandler := handlers.NewOrderStatusHandler(services.OrderStatus, logger)
	webhookHandler := handlers.NewWebhookHandler(services.Webhook, logger)
	paymentReturnHandler := handlers.NewPaymentReturnHandler(services.PaymentReturn, logger)
	adminLoginHandler := handlers.NewAdminLoginHandler(services.AdminLogin, logger)
	registrationsHandler := handlers.NewRegistrationsGettingHandler(services.Registrations, logger)
	reconcileHandler := handlers.NewReconcileHandler(services.Sweeper, reconcileOlderThan, logger)

	loggerContext := middleware.NewLoggerContext()
	panicRecover := middleware.NewPanicRecover(logger)

	router := chi.NewRouter()
	router.Use(loggerContext.CreateHandler)
	router.Use(panicRecover.CreateHandler)

	router.Get("/", handlers.Health)

	router.Route("/api/graduation", func(router chi.Router) {
		router.Post("/register", registrationHandler.ServeHTTP)
		router.Get("/check-email", emailCheckHandler.ServeHTTP)
	})

	router.Route("/api/payment", func(router chi.Router) {
		router.Post("/order", orderCreationHandler.ServeHTTP)
		router.Get("/order/{orderID}", orderStatusHandler.ServeHTTP)
		router.Post("/webhook", webhookHandler.ServeHTTP)
		router.Get("/return", paymentReturnHandler.ServeHTTP)
		router.Post("/return", paymentReturnHandler.ServeHTTP)
	})

	router.Route("/api/admin", func(router chi.Router) {
		router.Post("/login", adminLoginHandler.ServeHTTP)

		router.Group(func(router chi.Router) {
			router.Use(jwtauth.Verifier(tokenAuth))
			router.Use(jwtauth.Authenticator(tokenAuth))
			router.Get("/registrations", registrationsHandler.ServeHTTP)
			router.Post("/reconcile", reconcileHandler.ServeHTTP)
		})
	})

	return router
}
