package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	billinghttp "github.com/shelfmark/shelfmark/modules/billing"
	"github.com/shelfmark/shelfmark/pkg/billing"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/shelfmark/shelfmark/pkg/email"
	"github.com/shelfmark/shelfmark/pkg/entitlement"
	"github.com/shelfmark/shelfmark/pkg/environment"
	"github.com/shelfmark/shelfmark/pkg/httpserver"
	"github.com/shelfmark/shelfmark/pkg/logger"
	"github.com/shelfmark/shelfmark/pkg/pg"
	"github.com/shelfmark/shelfmark/pkg/redis"
	"github.com/shelfmark/shelfmark/pkg/requestid"
)

// appConfig aggregates the configuration of every wired component. It is
// parsed from the environment in a single pass; Paddle credentials are loaded
// separately because they are only required when the paddle provider is
// selected.
type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"` // development, staging, or production
	ServiceName string `env:"APP_NAME" envDefault:"shelfmarkd"`

	Server      httpserver.Config
	Postgres    pg.Config
	Redis       redis.Config
	Email       email.Config
	Billing     billing.Config
	Entitlement entitlement.Config
	HTTP        billinghttp.Config
}

func main() {
	// A .env file is optional; deployments configure the real environment.
	_ = config.LoadEnv()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithContextExtractors(
			environment.LoggerExtractor(),
			requestid.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	signer, err := entitlement.NewHMACSigner(cfg.Entitlement.SigningSecret)
	if err != nil {
		return err
	}

	entOpts := []entitlement.Option{entitlement.WithTTL(cfg.Entitlement.CacheTTL)}
	if cfg.Entitlement.CatalogPath != "" {
		catalog, err := entitlement.LoadCatalogFile(cfg.Entitlement.CatalogPath)
		if err != nil {
			return err
		}
		entOpts = append(entOpts, entitlement.WithCatalog(catalog))
		log.Info("plan catalog loaded", slog.String("path", cfg.Entitlement.CatalogPath))
	}

	entitlements := entitlement.NewService(
		entitlement.NewPostgresSubscriptionSource(pool),
		entitlement.NewPostgresMembershipSource(pool),
		entitlement.NewRedisCache(rdb),
		signer,
		entOpts...,
	)

	provider, err := newProvider(cfg.Billing, log)
	if err != nil {
		return err
	}

	repo := billing.NewPostgresRepository(pool)
	notifier := billing.NewEmailNotifier(
		newSender(cfg.Email, log),
		billing.NewPostgresRecipientResolver(pool),
		repo,
	)

	billingSvc := billing.NewService(
		repo,
		provider,
		notifier,
		billing.NewSlogEventLogger(log),
		entitlements,
		billing.WithGracePeriodDays(cfg.Billing.GracePeriodDays),
	)

	api := billinghttp.NewService(cfg.HTTP, billingSvc, entitlements, gatewayAuth, log)

	router := billinghttp.Router(billinghttp.RouterOptions{Billing: api})
	router.Get("/healthz", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(rdb),
	))

	var handler http.Handler = router
	handler = environment.Middleware(environment.Environment(cfg.Environment))(handler)
	handler = requestid.Middleware(handler)

	sweeper := billing.NewGraceSweeper(billingSvc,
		billing.WithSweepSchedule(cfg.Billing.SweepSchedule),
		billing.WithSweepBatchSize(cfg.Billing.SweepBatchSize),
		billing.WithSweepLogger(log),
	)

	srv := httpserver.NewFromConfig(cfg.Server,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("listening",
				slog.String("addr", cfg.Server.Addr),
				slog.String("billing_provider", cfg.Billing.Provider))
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(sweeper.Run(gctx))
	g.Go(func() error { return srv.Run(gctx, handler) })
	return g.Wait()
}

// newProvider selects the payment provider backend. Paddle credentials are
// parsed lazily so sandbox deployments need no Paddle environment variables.
func newProvider(cfg billing.Config, log *slog.Logger) (billing.Provider, error) {
	switch cfg.Provider {
	case "paddle":
		var paddleCfg billing.PaddleConfig
		if err := config.Load(&paddleCfg); err != nil {
			return nil, err
		}
		return billing.NewPaddleProvider(paddleCfg)
	case "", "sandbox":
		log.Warn("sandbox billing provider active, no real payments will be made")
		return billing.NewSandboxProvider(), nil
	default:
		return nil, fmt.Errorf("unknown billing provider %q", cfg.Provider)
	}
}

// newSender picks Postmark when its tokens are configured and falls back to
// the filesystem sender for local development.
func newSender(cfg email.Config, log *slog.Logger) email.EmailSender {
	if cfg.PostmarkServerToken != "" && cfg.PostmarkAccountToken != "" {
		return email.MustNewPostmarkClient(cfg)
	}
	log.Warn("postmark tokens not configured, writing emails to disk",
		slog.String("dir", cfg.DevDir))
	return email.NewDevSender(cfg.DevDir)
}

// gatewayAuth resolves the caller from the identity header the platform
// gateway sets after validating the session. Requests that reach the service
// without it are unauthenticated.
func gatewayAuth(r *http.Request) (string, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return "", errors.New("missing X-User-ID header")
	}
	return userID, nil
}
