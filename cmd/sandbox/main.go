// Command sandbox runs a local PermisConnect backend: the REST API, the
// live slot feed and, when configured, PostgreSQL, Kafka and Stripe.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"permisconnect/internal/config"
	"permisconnect/internal/events"
	"permisconnect/internal/live"
	"permisconnect/internal/sandbox"
	"permisconnect/migrations"
	"permisconnect/pkg/db"
	"permisconnect/pkg/jwt"
	"permisconnect/pkg/kafka"
	"permisconnect/pkg/logger"
)

const devSecret = "permisconnect-dev-secret"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("build logger", zap.Error(err))
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("sandbox stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. JWT secret ──
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		log.Warn("JWT_SECRET not set, using the development secret")
		secret = devSecret
	}
	signer, err := jwt.NewSigner(secret, jwt.DefaultTTL)
	if err != nil {
		return err
	}

	// ── 2. Storage ──
	var store sandbox.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL, 30, log)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.RunMigrations(ctx, migrations.FS); err != nil {
			return err
		}
		store = sandbox.NewPostgresStore(database.Pool)
	} else {
		mem := sandbox.NewMemoryStore()
		sandbox.Seed(mem, time.Now())
		store = mem
		log.Info("using in-memory store with demo data")
	}

	// ── 3. Events + live feed ──
	hub := live.NewHub(log)
	var pub events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kc := kafka.NewClient(cfg.KafkaBrokers, log)
		defer kc.Close()
		if err := kc.EnsureTopics(ctx, 20, kafka.TopicSlotStatusChanged); err != nil {
			return err
		}
		pub = events.NewKafkaPublisher(kc)
		sandbox.NewRelay(kc, hub, log).Start(ctx, "permisconnect-live")
	} else {
		local := events.NewLocal()
		local.Subscribe(hub.Broadcast)
		pub = local
	}

	// ── 4. Payments ──
	var checkout sandbox.Checkout
	if cfg.StripeKey != "" {
		checkout = sandbox.NewStripeCheckout(cfg.StripeKey, cfg.PaymentSuccessURL, cfg.PaymentCancelURL)
	} else {
		checkout = sandbox.FakeCheckout{BaseURL: "http://localhost:" + cfg.Port}
		log.Info("STRIPE_KEY not set, payment sessions are simulated")
	}

	// ── 5. HTTP ──
	svc := sandbox.NewService(store, signer, pub, log)
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: sandbox.NewRouter(sandbox.Server{
			Service:  svc,
			Checkout: checkout,
			Signer:   signer,
			Hub:      hub,
			Log:      log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("sandbox listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ── 6. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		return err
	}
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	err = srv.Shutdown(shutCtx)
	cancel() // stop consumers
	return err
}
