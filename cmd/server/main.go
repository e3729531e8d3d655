package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"starkpay/internal/bankdir"
	"starkpay/internal/config"
	"starkpay/internal/db"
	"starkpay/internal/events"
	"starkpay/internal/handlers"
	"starkpay/internal/idempotency"
	"starkpay/internal/logging"
	"starkpay/internal/notify"
	"starkpay/internal/otp"
	"starkpay/internal/rabbitmq"
	"starkpay/internal/rail"
	"starkpay/internal/ratelimit"
	"starkpay/internal/reconcile"
	"starkpay/internal/reference"
	"starkpay/internal/scheduler"
	"starkpay/internal/services"
	"starkpay/internal/store"
	"starkpay/internal/webhook"
	"starkpay/internal/websocket"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.IsProduction(), cfg.LogLevel)
	loc := cfg.Location()

	database, err := db.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	cache := redis.NewClient(redisOpts)
	defer cache.Close()

	hub := websocket.NewHub()
	ports := []events.NotificationPort{hub}
	publisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.NotificationExchange)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable; logging notifications instead")
		ports = append(ports, notify.LogNotifier{})
	} else {
		defer publisher.Close()
		ports = append(ports, publisher)
	}
	dispatcher := events.NewDispatcher(events.DefaultBuffer, ports...)

	users := store.NewUserStore(database)
	wallets := store.NewWalletStore(database)
	cards := store.NewCardStore(database)
	cardHistory := store.NewCardHistoryStore(database)
	transactions := store.NewTransactionStore(database)
	ledger := store.NewLedgerStore(database)
	stations := store.NewStationStore(database)
	businesses := store.NewBusinessStore(database)
	banks := store.NewBankStore(database)
	audit := store.NewAuditStore(database)
	webhooks := store.NewWebhookStore(database)
	txRunner := db.NewTxRunner(database)

	refs := reference.NewGenerator(cfg.AppEnv)
	railClient := rail.NewClient(cfg.FlutterwaveBaseURL, cfg.FlutterwaveSecretKey, cfg.RailTimeout())
	otpService := otp.NewService(txRunner, store.NewOTPStore(database), dispatcher, cfg.OTPTTL())
	reconciler := reconcile.New(txRunner, transactions, wallets, users, ledger, audit, dispatcher)

	handler := handlers.New(cfg, handlers.Deps{
		Users:       users,
		Collections: services.NewCollectionService(txRunner, wallets, cards, users, stations, transactions, ledger, refs, dispatcher, loc),
		Transfers:   services.NewTransferService(txRunner, wallets, users, transactions, ledger, refs, dispatcher),
		Withdrawals: services.NewWithdrawalService(txRunner, wallets, users, businesses, banks, transactions, ledger, refs, railClient, dispatcher, cfg.RailTimeout()),
		Funding:     services.NewFundingService(txRunner, wallets, users, businesses, transactions, refs, railClient),
		Cards:       services.NewCardService(txRunner, cards, cardHistory, wallets, users, audit, otpService),
		OTP:         otpService,
		Banks:       bankdir.New(banks, cache, cfg.BankCacheTTL()),
		Webhooks:    webhook.NewService(reconciler, railClient, webhooks, cfg.FlutterwaveSecretHash, cfg.PaystackSecretKey),
		Sockets:     websocket.NewHandler(hub, cfg.AllowedOrigins),
		Idempotency: idempotency.NewRedisRepository(cache),
		OTPLimiter:  ratelimit.New(cache, "otp-verify", cfg.OTPVerifyLimitPerMinute, time.Minute),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The dispatcher outlives the signal context so events from in-flight
	// requests are still delivered during shutdown.
	dispatched := make(chan struct{})
	go func() {
		dispatcher.Run(context.Background())
		close(dispatched)
	}()

	jobs := scheduler.New(stations, loc)
	if err := jobs.Start(cfg.StationResetSchedule); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RailTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.AppEnv).Msg("starkpay API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	<-jobs.Stop().Done()
	dispatcher.Close()
	<-dispatched
}
