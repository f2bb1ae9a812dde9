package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/platinummonkey/reflector/pkg/async"
	"github.com/platinummonkey/reflector/pkg/config"
	"github.com/platinummonkey/reflector/pkg/loader"
	"github.com/platinummonkey/reflector/pkg/observability"
	"github.com/platinummonkey/reflector/pkg/reflector"
	"github.com/platinummonkey/reflector/pkg/server"
	"github.com/platinummonkey/reflector/pkg/watch"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file (overrides "+config.FileEnv+")")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if *configFile != "" {
		os.Setenv(config.FileEnv, *configFile)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Reflector stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize OpenTelemetry, continuing without it")
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	source, err := newSource(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Infof("Serving schemas from %s", source.Name())

	holder := reflector.NewHolder(nil)
	reloader := watch.New(loader.New(source, loader.WithLogger(logger)), holder,
		watch.WithLogger(logger),
		watch.WithMetrics(metrics),
		watch.WithDebounce(cfg.Schema.Debounce),
		watch.WithReloadTimeout(cfg.Schema.ReloadTimeout),
		watch.WithReflectorOptions(reflector.WithCacheSize(cfg.Reflector.CacheSize)),
	)
	if err := reloader.Reload(ctx); err != nil {
		return fmt.Errorf("initial schema load: %w", err)
	}

	health := observability.NewHealthChecker(version)
	health.AddCheck("schema", server.ReadinessCheck(holder))

	grpcServer := grpc.NewServer()
	server.Register(grpcServer, server.NewReflectionService(holder, logger))

	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewHTTPHandler(server.HTTPConfig{
			Holder:   holder,
			Logger:   logger,
			Metrics:  metrics,
			Registry: registry,
			Health:   health,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("grpc", func(ctx context.Context) error {
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			grpcServer.Stop()
			return ctx.Err()
		}
	})
	shutdown.RegisterShutdownFunc("http", httpServer.Shutdown)
	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return async.Run(gctx, logger, "grpc server", func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
			}
			logger.Infof("gRPC reflection listening on %s", lis.Addr())
			return grpcServer.Serve(lis)
		})
	})

	g.Go(func() error {
		return async.Run(gctx, logger, "http server", func(context.Context) error {
			logger.Infof("HTTP listening on %s", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	})

	if cfg.Schema.Watch {
		g.Go(func() error {
			return async.Run(gctx, logger, "schema watcher", func(ctx context.Context) error {
				return reloader.Watch(ctx, cfg.Schema.Roots...)
			})
		})
	}

	if cfg.Schema.ReloadSchedule != "" {
		g.Go(func() error {
			return async.Run(gctx, logger, "schema schedule", func(ctx context.Context) error {
				return reloader.Schedule(ctx, cfg.Schema.ReloadSchedule)
			})
		})
	}

	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}

func newSource(ctx context.Context, cfg *config.Config) (loader.Source, error) {
	switch cfg.Schema.Source {
	case config.SourceS3:
		s3cfg := cfg.Schema.S3.Loader()
		client, err := loader.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return loader.NewS3Source(client, s3cfg)
	default:
		return loader.NewFileSystemSource(cfg.Schema.Roots...)
	}
}
