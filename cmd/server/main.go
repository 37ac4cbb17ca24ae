package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suhailma1ik/KinCashBackend/internal/cache"
	"github.com/suhailma1ik/KinCashBackend/internal/config"
	"github.com/suhailma1ik/KinCashBackend/internal/handler"
	"github.com/suhailma1ik/KinCashBackend/internal/notify"
	"github.com/suhailma1ik/KinCashBackend/internal/repository"
	"github.com/suhailma1ik/KinCashBackend/internal/service"
	"github.com/suhailma1ik/KinCashBackend/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	setupLogging(cfg)

	db, err := initDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize database")
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewTransactionRepository(db)

	locker := cache.NewLoanLocker(redisClient, cfg.Business.LockTTL)
	idempotency := cache.NewIdempotencyStore(redisClient, cfg.Business.IdempotencyTTL)
	notifier := notify.NewRedisNotifier(redisClient, cfg.Business.NotifyChannel, log.Logger)

	loanService := service.NewLoanService(loanRepo, paymentRepo, txnRepo, locker, idempotency, notifier, log.Logger)
	loanHandler := handler.NewLoanHandler(loanService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(loanHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() && cfg.Logging.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanHandler *handler.LoanHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)

	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/accept", loanHandler.AcceptLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/cancel", loanHandler.CancelLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/default", loanHandler.MarkDefaulted).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.RecordPayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/schedule", loanHandler.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/transactions", loanHandler.ListTransactions).Methods(http.MethodGet)

	return router
}
