package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/locus/internal/config"
	"github.com/fyrsmithlabs/locus/internal/logging"
	"github.com/fyrsmithlabs/locus/internal/manifest"
	"github.com/fyrsmithlabs/locus/internal/metrics"
	"github.com/fyrsmithlabs/locus/internal/services"
	"github.com/fyrsmithlabs/locus/internal/telemetry"
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	tel     *telemetry.Telemetry
	prom    *prometheus.Registry
	metrics *metrics.Metrics
	catalog *services.Catalog
	reg     *registry.Registry
}

// appOptions selects what newApp wires.
type appOptions struct {
	configPath   string
	manifestPath string
	// quiet discards logs and skips telemetry, for commands whose stdout
	// is their result.
	quiet bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.manifestPath != "" {
		cfg.Manifest.Path = opts.manifestPath
	}

	tcfg := telemetry.FromSettings(cfg.Telemetry, version)
	if opts.quiet {
		tcfg.Enabled = false
	}
	tel, err := telemetry.New(ctx, tcfg)
	if err != nil {
		return nil, err
	}

	logger := logging.NewNop()
	if !opts.quiet {
		lcfg, err := logging.FromSettings(cfg.Logging)
		if err != nil {
			return nil, err
		}
		lcfg.Output.OTEL = tcfg.Enabled
		logger, err = logging.NewLogger(lcfg, tel.LoggerProvider())
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}
	if tel.Health().Degraded {
		logger.Warn(ctx, "telemetry degraded, continuing without export")
	}

	resolution, err := registry.ParseResolution(cfg.Registry.Resolution)
	if err != nil {
		return nil, err
	}

	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(prom)

	reg := registry.New(
		registry.WithLogger(logger.Underlying().Named("registry")),
		registry.WithObserver(m),
		registry.WithResolution(resolution),
		registry.WithTracer(tel.Tracer("github.com/fyrsmithlabs/locus/pkg/registry")),
	)
	prom.MustRegister(metrics.NewCollector(reg))

	return &app{
		cfg:     cfg,
		logger:  logger,
		tel:     tel,
		prom:    prom,
		metrics: m,
		catalog: services.NewCatalog(),
		reg:     reg,
	}, nil
}

// table returns the manifest's table, or the built-in one when no
// manifest is configured.
func (a *app) table() (registry.Table, error) {
	if a.cfg.Manifest.Path == "" {
		return a.catalog.DefaultTable(), nil
	}
	m, err := manifest.Load(a.cfg.Manifest.Path)
	if err != nil {
		return nil, err
	}
	return m.Table(a.catalog)
}

// bootstrap runs table and records the run.
func (a *app) bootstrap(ctx context.Context, table registry.Table) (*registry.Provisioned, error) {
	start := time.Now()
	p, err := a.reg.Bootstrap(ctx, table)
	a.metrics.RecordBootstrap(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	a.logger.Info(logging.WithBootstrapID(ctx, p.ID()), "registry bootstrapped",
		zap.Int("entries", p.Len()),
		zap.Int("capabilities", len(a.reg.Keys())),
	)
	return p, nil
}

// close releases the registry, then flushes telemetry and logs.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.reg.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing registry: %w", err))
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
