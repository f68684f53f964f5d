package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/config"
	"github.com/ariefcatur/go-restaurant-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/logger"
	"github.com/ariefcatur/go-restaurant-orders/internal/menu"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
	"github.com/ariefcatur/go-restaurant-orders/internal/notifications"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/postgres"
	"github.com/ariefcatur/go-restaurant-orders/internal/push"
	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
	"github.com/ariefcatur/go-restaurant-orders/internal/restaurants"
	"github.com/ariefcatur/go-restaurant-orders/internal/tables"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("db migrate")
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// producers run on their own context so they can flush after ctx is cancelled
	prodCtx, cancelProd := context.WithCancel(context.Background())
	defer cancelProd()

	pushProd := kafkax.NewProducer(cfg.KafkaBrokers, push.Topic, 1024, log)
	eventProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024, log)
	for _, p := range []*kafkax.Producer{pushProd, eventProd} {
		p.OnError = func(topic string, _ int, _ error) { metrics.PushFailed(topic) }
		p.Start(prodCtx)
	}

	scoper := restaurants.NewScoper(&restaurants.Repo{DB: db})
	relay := notifications.NewRelay(
		&notifications.PGRepo{DB: db},
		scoper,
		push.NewKafkaPublisher(pushProd, cfg.ServiceName),
		log,
	)
	orderSvc := orders.NewService(orders.Deps{
		Repo:     &orders.PGRepo{DB: db},
		Scoper:   scoper,
		Notifier: relay,
		Events:   eventProd,
		Status:   &orders.RedisStatusCache{RDB: rdb},
		Policy:   orders.ParsePolicy(cfg.OrderStatusPolicy),
		Producer: cfg.ServiceName,
		Log:      log,
	})
	log.WithField("policy", orderSvc.Policy()).Info("order status policy")

	hub := push.NewHub(log)
	limiter := httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)

	router := httpx.NewRouter(httpx.Deps{
		Cart:          cart.NewService(&cart.PGRepo{DB: db}, &cart.RedisCache{RDB: rdb}, log),
		Menu:          menu.NewService(&menu.PGRepo{DB: db}, scoper),
		Orders:        orderSvc,
		Notifications: relay,
		Tables:        tables.NewService(&tables.PGRepo{DB: db}, scoper, cfg.OrderBaseURL),
		Scoper:        scoper,
		Hub:           hub,
		Verifier:      auth.NewVerifier(cfg.JWTSecret),
		Limiter:       limiter,
		PaymentSecret: cfg.PaymentWebhookSecret,
		Log:           log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return hub.Listen(gctx, rdb)
	})
	g.Go(func() error {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				limiter.Cleanup(10 * time.Minute)
			}
		}
	})
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("api stopped with error")
	}

	pushProd.Close()
	eventProd.Close()
	cancelProd()
	pushProd.WaitClosed()
	eventProd.WaitClosed()
	log.Info("bye")
}
