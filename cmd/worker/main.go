package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/config"
	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/logger"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/postgres"
	"github.com/ariefcatur/go-restaurant-orders/internal/push"
	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
)

// The worker relays queued dashboard pushes and order events to Redis
// pub/sub, and sweeps abandoned carts on a schedule.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(logger.Options{Service: cfg.ServiceName + "-worker", Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	fanout := push.NewFanout(rdb, cfg.WorkerGroup, log)
	pushes := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, push.Topic, cfg.WorkerConcurrency, log)
	events := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup+"-orders", orders.TopicOrderEvents, cfg.WorkerConcurrency, log)

	carts := cart.NewService(&cart.PGRepo{DB: db}, &cart.RedisCache{RDB: rdb}, log)
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.CartSweepSchedule, func() {
		n, err := carts.SweepAbandoned(ctx, cfg.CartSweepAge)
		if err != nil {
			log.WithError(err).Error("cart sweep failed")
			return
		}
		log.WithField("deleted", n).Info("cart sweep done")
	}); err != nil {
		log.WithError(err).WithField("schedule", cfg.CartSweepSchedule).Fatal("bad cart sweep schedule")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("topic", push.Topic).Info("push consumer started")
		return pushes.Start(gctx, fanout.HandlePush)
	})
	g.Go(func() error {
		log.WithField("topic", orders.TopicOrderEvents).Info("order event consumer started")
		return events.Start(gctx, fanout.HandleOrderEvent)
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		<-sched.Stop().Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("worker stopped with error")
	}
	log.Info("bye")
}
