package main

import (
	"context"
	"fmt"
	"time"

	httpserver "github.com/fyrsmithlabs/locus/internal/http"
	"github.com/fyrsmithlabs/locus/internal/manifest"
	"github.com/fyrsmithlabs/locus/internal/services"
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bootstrap the registry and serve the introspection API",
		Long: `Bootstrap the registry from the manifest (or the built-in table) and serve
the read-only introspection API until interrupted.

With manifest.watch enabled, edits to the manifest tear down the current
bootstrap and run the new one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe blocks until ctx is cancelled, then shuts down gracefully.
func runServe(ctx context.Context) error {
	a, err := newApp(ctx, appOptions{configPath: configPath, manifestPath: manifestPath})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			a.logger.Error(shutdownCtx, "shutdown", zap.Error(err))
		}
	}()

	logNotifier, err := services.NewLogNotifier(a.reg, a.logger.Underlying(), registry.Exclusive)
	if err != nil {
		return err
	}
	defer logNotifier.Close()

	if url := a.cfg.Notify.NATSURL; url != "" {
		nc, err := nats.Connect(url,
			nats.Name("locus"),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
		}
		defer nc.Close()

		natsNotifier, err := services.NewNATSNotifier(a.reg, nc, a.cfg.Notify.Subject, registry.Shared)
		if err != nil {
			return err
		}
		defer natsNotifier.Close()
		a.logger.Info(ctx, "publishing events to NATS", zap.String("url", url), zap.String("subject", a.cfg.Notify.Subject))
	}

	r := &reloader{
		load:      a.table,
		bootstrap: a.bootstrap,
		notifiers: func() []services.Notifier { return services.NotifierCapability.All(a.reg) },
		logger:    a.logger,
	}
	if err := r.start(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := r.stop(); err != nil {
			a.logger.Warn(ctx, "releasing bootstrap", zap.Error(err))
		}
	}()

	if a.cfg.Manifest.Watch {
		w, err := manifest.NewWatcher(manifest.WatcherConfig{
			Path:     a.cfg.Manifest.Path,
			Debounce: a.cfg.Manifest.Debounce.Duration(),
			Logger:   a.logger.Underlying(),
		})
		if err != nil {
			return err
		}
		changes, err := w.Start()
		if err != nil {
			return err
		}
		defer w.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-changes:
					_ = r.reload(ctx)
				}
			}
		}()
		a.logger.Info(ctx, "watching manifest", zap.String("path", a.cfg.Manifest.Path))
	}

	srvCfg := &httpserver.Config{
		Host:      a.cfg.Server.Host,
		Port:      a.cfg.Server.Port,
		Metrics:   httpserver.NewHTTPMetrics(a.tel.MeterProvider(), a.logger.Underlying()),
		RateLimit: a.cfg.Server.RateLimit,
		RateBurst: a.cfg.Server.RateBurst,
	}
	if a.cfg.Metrics.Enabled {
		srvCfg.MetricsPath = a.cfg.Metrics.Path
		srvCfg.Gatherer = a.prom
	}
	srv, err := httpserver.NewServer(a.reg, a.logger.Underlying().Named("http"), srvCfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil {
		return err
	}
	a.logger.Info(ctx, "server shutdown complete", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout.Duration()))
	return nil
}
