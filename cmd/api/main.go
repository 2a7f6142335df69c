package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garyaschafer/PathRegister/internal/app"
	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/config"
	"github.com/garyaschafer/PathRegister/internal/notify"
	"github.com/garyaschafer/PathRegister/internal/payment"
	"github.com/garyaschafer/PathRegister/internal/storage/postgres"
	"github.com/garyaschafer/PathRegister/internal/ticketcode"
	transporthttp "github.com/garyaschafer/PathRegister/internal/transport/http"
	"github.com/garyaschafer/PathRegister/migrations"
)

func main() {
	logger := log.Default()
	cfg := config.Load(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	clk := clock.NewSystem()
	codes := ticketcode.New(cfg.PublicBaseURL, clk)

	if cfg.PaymentProviderURL == "" {
		logger.Printf("WARN: PAYMENT_PROVIDER_URL not set, paid registrations will fail")
	}
	provider := payment.NewHTTPProvider(cfg.PaymentProviderURL, cfg.PaymentAPIKey, cfg.PaymentTimeout)

	var sender notify.Sender
	if cfg.SMTPAddr != "" {
		sender = notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	} else {
		logger.Printf("WARN: SMTP_ADDR not set, notifications go to the log")
		sender = notify.NewLogSender(logger)
	}

	ledger := postgres.NewCapacityLedger(pool)
	registrationSvc := app.NewRegistrationService(
		postgres.NewRegistrationRepository(pool), ledger, provider, sender, codes, clk, logger,
	)
	reconciliationSvc := app.NewReconciliationService(
		postgres.NewReconciliationRepository(pool), ledger, provider, sender, codes, clk, logger,
	)
	checkinSvc := app.NewCheckinService(postgres.NewCheckinRepository(pool), clk)
	adminSvc := app.NewAdminService(
		postgres.NewAdminRepository(pool), ledger, provider, sender, clk, logger,
	)
	reminderSvc := app.NewReminderService(postgres.NewReminderRepository(pool), sender, clk, logger)

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Events:        adminSvc,
		Registrar:     registrationSvc,
		Tickets:       checkinSvc,
		Reconciler:    reconciliationSvc,
		Admin:         adminSvc,
		WebhookSecret: cfg.PaymentWebhookSecret,
		AdminToken:    cfg.AdminToken,
		CORSOrigins:   cfg.CORSOrigins,
		Clock:         clk,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go reminderSvc.Run(sweepCtx, cfg.ReminderInterval)

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
