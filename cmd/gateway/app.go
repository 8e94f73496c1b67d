package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"payment-gateway/config"
	"payment-gateway/internal/adapter/bus"
	httpHandler "payment-gateway/internal/adapter/http/handler"
	pgStorage "payment-gateway/internal/adapter/storage/postgres"
	redisStorage "payment-gateway/internal/adapter/storage/redis"
	"payment-gateway/internal/core/ports"
	"payment-gateway/internal/metrics"
	"payment-gateway/internal/service"
	"payment-gateway/internal/worker"
	"payment-gateway/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// app holds the shared infrastructure for every subcommand.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool
	rdb  *goredis.Client

	merchants   *pgStorage.MerchantRepo
	payments    *pgStorage.PaymentRepo
	refunds     *pgStorage.RefundRepo
	webhookLogs *pgStorage.WebhookLogRepo
	transactor  *pgStorage.Transactor
	heartbeat   *redisStorage.Heartbeat
	bus         *bus.RedisBus
	submitter   *service.JobSubmitter
	encSvc      *service.AESEncryptionService
}

// component is a long-running part of the process. run blocks until ctx is done.
type component struct {
	name string
	run  func(ctx context.Context) error
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("init encryption: %w", err)
	}

	jobBus := bus.NewRedisBus(rdb, logger.Component(log, "bus"))

	return &app{
		cfg:         cfg,
		log:         log,
		pool:        pool,
		rdb:         rdb,
		merchants:   pgStorage.NewMerchantRepo(pool),
		payments:    pgStorage.NewPaymentRepo(pool),
		refunds:     pgStorage.NewRefundRepo(pool),
		webhookLogs: pgStorage.NewWebhookLogRepo(pool),
		transactor:  pgStorage.NewTransactor(pool),
		heartbeat:   redisStorage.NewHeartbeat(rdb),
		bus:         jobBus,
		submitter:   service.NewJobSubmitter(jobBus),
		encSvc:      encSvc,
	}, nil
}

func (a *app) close() {
	if err := a.rdb.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing redis client")
	}
	a.pool.Close()
}

func (a *app) migrate(ctx context.Context) error {
	if err := pgStorage.Migrate(ctx, a.pool); err != nil {
		return err
	}
	a.log.Info().Msg("schema applied")
	return nil
}

func (a *app) httpServer() component {
	log := logger.Component(a.log, "http")

	idempotency := service.NewIdempotencyService(
		pgStorage.NewIdempotencyRepo(a.pool),
		redisStorage.NewIdempotencyCache(a.rdb),
		log,
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc: service.NewPaymentService(
			a.payments, a.webhookLogs, idempotency, a.submitter, a.transactor,
			a.cfg.Idempotency.TTL, log,
		),
		RefundSvc:    service.NewRefundService(a.payments, a.refunds, a.webhookLogs, a.submitter, a.transactor, log),
		WebhookSvc:   service.NewWebhookService(a.webhookLogs, log),
		JobStatusSvc: service.NewJobStatusService(a.payments, a.webhookLogs, a.heartbeat, log),
		MerchantRepo: a.merchants,
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(a.pool),
			redisStorage.NewHealthCheck(a.rdb),
		},
		MetricsEnabled: a.cfg.Metrics.Enabled,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return component{name: "http", run: func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", addr).Msg("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}}
}

func (a *app) worker() component {
	cfg := a.cfg.Worker()

	payments := service.NewPaymentWorker(
		a.payments, a.webhookLogs, a.transactor, a.submitter, cfg,
		logger.Component(a.log, "payment_worker"),
	)
	refunds := service.NewRefundWorker(
		a.refunds, a.webhookLogs, a.transactor, a.submitter,
		logger.Component(a.log, "refund_worker"),
	)
	webhooks := service.NewWebhookWorker(
		a.webhookLogs, a.merchants, a.encSvc, service.NewHMACSignatureService(),
		service.NewWebhookHTTPClient(cfg.WebhookTimeout), cfg,
		logger.Component(a.log, "webhook_worker"),
	)

	runner := worker.NewRunner(a.bus, worker.Handlers{
		Payments: payments,
		Refunds:  refunds,
		Webhooks: webhooks,
	}, a.heartbeat, logger.Component(a.log, "runner"))

	return component{name: "worker", run: runner.Run}
}

func (a *app) scheduler() component {
	s := service.NewRetryScheduler(a.webhookLogs, a.submitter, a.cfg.Worker(), logger.Component(a.log, "retry_scheduler"))
	return component{name: "scheduler", run: func(ctx context.Context) error {
		s.Run(ctx)
		return nil
	}}
}

// runWith builds the app, starts the selected components and blocks until
// SIGINT/SIGTERM or the first component failure.
func runWith(parent context.Context, cfgPath string, pick func(a *app) []component) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Metrics.Enabled {
		metrics.Register()
	}

	cfg := a.cfg.Worker()
	a.log.Info().
		Str("version", Version).
		Bool("test_mode", cfg.TestMode).
		Bool("fast_webhook_retries", cfg.FastWebhookRetries).
		Msg("starting payment gateway")

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range pick(a) {
		g.Go(func() error {
			if err := c.run(gctx); err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			return nil
		})
	}

	err = g.Wait()
	a.log.Info().Msg("shutdown complete")
	return err
}
