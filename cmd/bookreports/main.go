package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/bookreports/cmd/bookreports/cli"
	"github.com/odyssey-erp/bookreports/internal/app"
	"github.com/odyssey-erp/bookreports/internal/observability"
	"github.com/odyssey-erp/bookreports/internal/platform/cache"
	"github.com/odyssey-erp/bookreports/internal/platform/db"
	"github.com/odyssey-erp/bookreports/internal/reportcache"
	reportinghttp "github.com/odyssey-erp/bookreports/internal/reporting/http"
	"github.com/odyssey-erp/bookreports/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	switch command {
	case "serve":
		os.Exit(serve(ctx))
	case "reconcile":
		os.Exit(reconcileCommand(ctx, args, os.Stdout, os.Stderr))
	case "jobs":
		os.Exit(jobsCommand(ctx, args, os.Stdout, os.Stderr))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q (serve, reconcile, jobs)\n", command)
		os.Exit(cli.ExitFailure)
	}
}

func reconcileCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fset.SetOutput(stderr)
	opts := cli.ReconcileOptions{Stdout: stdout, Stderr: stderr}
	fset.StringVar(&opts.Internal, "internal", "", "register exported from the books (xlsx or csv)")
	fset.StringVar(&opts.External, "external", "", "register downloaded from the portal (xlsx or csv)")
	fset.Float64Var(&opts.Tolerance, "tolerance", 0.1, "absolute tolerance for amount checks")
	fset.BoolVar(&opts.JSONOutput, "json", false, "print the result as JSON")
	fset.BoolVar(&opts.ShowAll, "all", false, "list matched rows as well")
	if err := fset.Parse(args); err != nil {
		return cli.ExitFailure
	}
	return cli.ReconcileCommand(ctx, opts)
}

func jobsCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return cli.ExitFailure
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisClientOpt())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs: %v\n", err)
		return cli.ExitFailure
	}
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.JobsCommand(ctx, args, stdout, stderr)
}

func serve(ctx context.Context) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return cli.ExitFailure
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return cli.ExitFailure
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, report cache and queued reconciliation disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	service := app.NewReportingService(cfg, pool, redisClient, metrics, logger)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		if err := reportcache.New(redisClient, cfg.ReportCacheTTL).ListenForInvalidation(ctx); err != nil {
			logger.Warn("subscribe cache invalidation", slog.Any("error", err))
		}
		jobClient, err := jobs.NewClient(cfg.RedisClientOpt())
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			return cli.ExitFailure
		}
		defer func() { _ = jobClient.Close() }()
		service.WithEnqueuer(jobClient)

		inspector := asynq.NewInspector(cfg.RedisClientOpt())
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	reportingHandler := reportinghttp.NewHandler(logger, service, reportinghttp.Options{
		RequestTimeout:   cfg.AppRequestTimeout,
		MaxUploadBytes:   cfg.ReconcileMaxUpload,
		UploadsPerMinute: cfg.UploadsPerMinute,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ReportingHandler: reportingHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
		Checks:           healthChecks(pool.Ping, redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exit := cli.ExitOK
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("http server", slog.Any("error", err))
		exit = cli.ExitFailure
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return exit
}

func healthChecks(pgPing app.Pinger, redisClient *redis.Client) map[string]app.Pinger {
	checks := map[string]app.Pinger{"postgres": pgPing}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
