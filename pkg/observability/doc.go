// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes and graceful shutdown for the
// reflector service.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("file", path).Info("schema loaded")
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ObserveRequest("list_services", "OK", elapsed)
//
// A nil *Metrics records nothing, so components accept it unconditionally.
//
// # Health
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("reflector", func(ctx context.Context) error { ... })
//
// # Tracing
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
