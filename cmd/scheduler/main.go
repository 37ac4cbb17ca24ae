package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/suhailma1ik/KinCashBackend/internal/cache"
	"github.com/suhailma1ik/KinCashBackend/internal/config"
	"github.com/suhailma1ik/KinCashBackend/internal/notify"
	"github.com/suhailma1ik/KinCashBackend/internal/repository"
	"github.com/suhailma1ik/KinCashBackend/internal/service"
)

// The scheduler daemon runs the periodic jobs the request path deliberately
// does not: the overdue sweep that persists late-fee accrual, and payment
// reminders. The core only exposes the pure accrual policy; this is the
// external scheduled caller.
func main() {
	log.Info().Msg("starting kincash scheduler")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	locker := cache.NewLoanLocker(redisClient, cfg.Business.LockTTL)
	idempotency := cache.NewIdempotencyStore(redisClient, cfg.Business.IdempotencyTTL)
	notifier := notify.NewRedisNotifier(redisClient, cfg.Business.NotifyChannel, log.Logger)

	loanService := service.NewLoanService(loanRepo, paymentRepo, txnRepo, locker, idempotency, notifier, log.Logger)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Scheduler.Timezone).Msg("load scheduler timezone")
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.SweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		swept, err := loanService.SweepOverdue(ctx, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("overdue sweep failed")
			return
		}
		log.Info().Int("loans", swept).Msg("overdue sweep finished")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("schedule overdue sweep")
	}

	_, err = c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		sent, err := loanService.SendReminders(ctx, time.Now(), cfg.Business.ReminderWindow)
		if err != nil {
			log.Error().Err(err).Msg("payment reminders failed")
			return
		}
		log.Info().Int("reminders", sent).Msg("payment reminders sent")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("schedule payment reminders")
	}

	c.Start()
	log.Info().Msg("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down scheduler")
	<-c.Stop().Done()
	log.Info().Msg("scheduler stopped")
}
