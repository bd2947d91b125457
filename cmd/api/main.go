package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/peraluna/trip-planner-api/internal/adapters/cache/workingset"
	"github.com/peraluna/trip-planner-api/internal/adapters/httpapi"
	memidempotency "github.com/peraluna/trip-planner-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/peraluna/trip-planner-api/internal/adapters/memory/triprepo"
	natsadapter "github.com/peraluna/trip-planner-api/internal/adapters/nats"
	openaiadapter "github.com/peraluna/trip-planner-api/internal/adapters/openai"
	postgres "github.com/peraluna/trip-planner-api/internal/adapters/postgres"
	pgidempotency "github.com/peraluna/trip-planner-api/internal/adapters/postgres/idempotency"
	pgtriprepo "github.com/peraluna/trip-planner-api/internal/adapters/postgres/triprepo"
	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/peraluna/trip-planner-api/internal/platform/clock"
	"github.com/peraluna/trip-planner-api/internal/platform/config"
	"github.com/peraluna/trip-planner-api/internal/platform/logging"
	"github.com/peraluna/trip-planner-api/internal/platform/metrics"
	assistantport "github.com/peraluna/trip-planner-api/internal/ports/out/assistant"
	idempotencyport "github.com/peraluna/trip-planner-api/internal/ports/out/idempotency"
	triprepoport "github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Peraluna trip planner API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $PERALUNA_CONFIG)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != config.StoragePostgres {
				return fmt.Errorf("migrate requires STORAGE_BACKEND=postgres")
			}
			pool, err := openPool(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			defer pool.Close()
			return postgres.Migrate(cmd.Context(), pool)
		},
	})
	return cmd
}

func openPool(ctx context.Context, cfg config.StorageConfig) (*pgxpool.Pool, error) {
	return postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns:       cfg.MaxConns,
		ConnectTimeout: 5 * time.Second,
	})
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	clk := platformclock.NewSystemClock()
	m := metrics.New()

	var (
		tripRepo  triprepoport.Repository
		idemStore idempotencyport.Store
	)
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		pool, err := openPool(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		tripRepo = pgtriprepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		tripRepo = memtriprepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	tripOpts := []trips.Option{
		trips.WithWorkingSet(workingset.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval)),
		trips.WithRecorder(m),
		trips.WithLogger(log),
	}
	if cfg.Events.NATSURL != "" {
		pub, err := natsadapter.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		tripOpts = append(tripOpts, trips.WithPublisher(pub))
	}
	tripSvc := trips.NewService(tripRepo, clk, tripOpts...)

	var provider assistantport.Provider
	if cfg.Assistant.Enabled() {
		p, err := openaiadapter.New(openaiadapter.Config{
			APIKey:  cfg.Assistant.APIKey,
			BaseURL: cfg.Assistant.BaseURL,
			Model:   cfg.Assistant.Model,
		})
		if err != nil {
			return err
		}
		provider = p
	} else {
		log.Warn("no assistant api key configured; chat will send canned replies")
	}
	asst := assistant.NewService(tripSvc, provider,
		assistant.WithRecorder(m),
		assistant.WithLogger(log),
		assistant.WithMaxTokens(cfg.Assistant.MaxTokens),
	)

	var authMW func(http.Handler) http.Handler
	switch cfg.Auth.Mode {
	case config.AuthModeDev:
		log.WithField("subject", cfg.Auth.DevSubject).Warn("dev auth enabled; do not use in production")
		authMW = httpapi.NewDevAuthMiddleware(cfg.Auth.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(cfg.Auth.JWT))
	}

	api := httpapi.NewServer(tripSvc, asst, idemStore, clk, log)
	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: httpapi.NewRouter(api, httpapi.RouterOptions{
			AuthMiddleware: authMW,
			Logger:         log,
			CORSOrigins:    cfg.CORS.AllowedOrigins,
			Metrics:        m.Handler(),
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go reconcileLoop(ctx, log, tripSvc, cfg.Storage.ReconcileInterval)
	if pruner, ok := idemStore.(idempotencyport.Pruner); ok {
		go pruneLoop(ctx, log, pruner, time.Hour)
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Server.Port, "storage": cfg.Storage.Backend}).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if n := tripSvc.PendingChanges(); n > 0 {
		log.WithField("pending", n).Warn("exiting with offline changes not yet reconciled")
	}
	return nil
}

// reconcileLoop retries the trip store while the service is serving from its working set.
func reconcileLoop(ctx context.Context, log logrus.FieldLogger, svc *trips.Service, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !svc.Offline() && svc.PendingChanges() == 0 {
				continue
			}
			if n, err := svc.Reconcile(ctx); err != nil {
				log.WithError(err).WithField("pushed", n).Debug("trip store still unavailable")
			}
		}
	}
}

func pruneLoop(ctx context.Context, log logrus.FieldLogger, s idempotencyport.Pruner, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Prune(ctx)
			if err != nil {
				log.WithError(err).Warn("idempotency prune failed")
				continue
			}
			if n > 0 {
				log.WithField("removed", n).Debug("pruned idempotency records")
			}
		}
	}
}
