package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Sprinq/cecs378project-sub000/cryptobox"
	"github.com/Sprinq/cecs378project-sub000/internal/authz"
	"github.com/Sprinq/cecs378project-sub000/internal/config"
	"github.com/Sprinq/cecs378project-sub000/internal/convkey"
	"github.com/Sprinq/cecs378project-sub000/internal/envelope"
	"github.com/Sprinq/cecs378project-sub000/internal/migration"
	"github.com/Sprinq/cecs378project-sub000/internal/observability/logging"
	"github.com/Sprinq/cecs378project-sub000/internal/observability/metrics"
	"github.com/Sprinq/cecs378project-sub000/internal/store"
	transport "github.com/Sprinq/cecs378project-sub000/internal/transport/http"
)

func main() {
	// optional .env for local runs
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "migrator",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})

	slog.SetDefault(logger)
	metrics.MustRegister("migrator")

	logger.Info("starting service")

	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("auto migrate", "error", err)
		os.Exit(1)
	}

	crypto := cryptobox.Std{}
	deriver := convkey.NewDeriver(crypto)
	policy := envelope.NewPolicy(crypto, deriver)
	worker := migration.NewWorker(st.Messages(), st.Messages(), policy)

	// choose validator: HS256 shared secret (if provided) else JWKS; the
	// migrate endpoints rewrite message rows, so refuse to run open.
	var authMW func(http.Handler) http.Handler
	switch {
	case cfg.AdminSharedSecret != "":
		slog.Info("using HS256 shared-secret token validation")
		authMW = authz.NewHMACValidator(cfg.AdminSharedSecret, cfg.AdminIssuer).Middleware
	case cfg.AdminJWKSURL != "":
		slog.Info("using JWKS token validation", "url", cfg.AdminJWKSURL)
		jv, err := authz.NewJWTValidator(context.Background(), cfg.AdminJWKSURL, cfg.AdminIssuer)
		if err != nil {
			logger.Error("init JWT validator", "error", err)
			os.Exit(1)
		}
		authMW = jv.Middleware
	default:
		logger.Error("no admin auth configured, set ADMIN_SHARED_HS256_SECRET or ADMIN_JWKS_URL")
		os.Exit(1)
	}

	ctx := context.Background()

	var pulses <-chan struct{}
	if cfg.NotifyChannel != "" {
		listener := migration.NewListener(cfg.DatabaseURL, cfg.NotifyChannel)
		pulses = listener.C
		go func() {
			if err := listener.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("notify listener stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := worker.Run(ctx, cfg.MigrateInterval, cfg.MigrateBatchSize, pulses); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("migration worker stopped", "error", err)
		}
	}()

	mux := transport.NewRouter(worker, cfg.MigrateBatchSize, authMW)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("migrator listening", "addr", cfg.Addr, "interval", cfg.MigrateInterval.String(), "batch_size", cfg.MigrateBatchSize)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
