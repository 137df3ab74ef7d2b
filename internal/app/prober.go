package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-probe/internal/config"
	"github.com/samvad-hq/samvad-probe/internal/logger"
	"github.com/samvad-hq/samvad-probe/internal/prober"
	"github.com/samvad-hq/samvad-probe/internal/storage"
	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-probe/pkg/publishers"
	"github.com/samvad-hq/samvad-probe/pkg/targets"
)

// Prober is the probe daemon runtime. It owns the probe loop, the targets
// file watcher, the publisher fanout and the state store.
type Prober struct {
	cfg           *config.Config
	fanout        *publishers.Fanout
	service       *prober.Service
	probeInterval time.Duration
	log           logger.Logger
	store         storage.Store

	mu        sync.RWMutex
	targetReg *targets.Registry
}

// Option customizes a Prober.
type Option func(*options)

type options struct {
	clientOpts []httpclient.Option
}

// WithClientOptions appends options to the probe HTTP client.
func WithClientOptions(opts ...httpclient.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// NewProber builds a prober runtime from config files.
func NewProber(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Prober, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if cfg.ProbeInterval <= 0 {
		return nil, fmt.Errorf("probe interval must be positive")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	targetReg, err := targets.LoadRegistry(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	logTargets(log, targetReg)

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		StateTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.StoragePath(), storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.StoragePath(),
		"state_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	clientOpts := append([]httpclient.Option{
		httpclient.WithTimeout(cfg.RequestTimeout),
		httpclient.WithUserAgent(cfg.UserAgent),
		httpclient.WithLogger(log),
	}, o.clientOpts...)
	client := httpclient.NewRestyClient(clientOpts...)

	return &Prober{
		cfg:           cfg,
		fanout:        fanout,
		service:       prober.NewService(client, fanout, store, log),
		probeInterval: cfg.ProbeInterval,
		log:           log,
		store:         store,
		targetReg:     targetReg,
	}, nil
}

// buildFanout loads and builds the enabled publishers. A missing publishers
// file leaves the prober without sinks; transitions are then only logged.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		log.WarnObj("no publishers file configured; transitions are only logged", "publishers_file", "")
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	if len(enabled) == 0 {
		log.WarnObj("no publishers enabled; transitions are only logged", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultBuilders(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Targets returns the currently loaded targets.
func (p *Prober) Targets() []targets.Target {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.targetReg.Targets()
}

// Run starts the probe loop until the context is cancelled. Resources are
// released on return.
func (p *Prober) Run(ctx context.Context) error {
	if p == nil || p.service == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.Close()

	var reload <-chan struct{}
	if p.cfg.WatchTargets {
		ch, err := watchFile(ctx, p.cfg.TargetsFile, watchDebounceDelay, p.log)
		if err != nil {
			p.log.ErrorObj("targets watcher disabled", "error", err)
		} else {
			reload = ch
		}
	}

	p.log.InfoObj("prober loop starting", "prober_state", map[string]any{
		"targets_count":    len(p.Targets()),
		"publishers_count": p.fanout.Size(),
		"probe_interval":   p.probeInterval.String(),
		"watch_targets":    reload != nil,
	})

	p.runScheduled(ctx, "initial probe failed")

	ticker := time.NewTicker(p.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("prober loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			p.runScheduled(ctx, "scheduled probe failed")
		case <-reload:
			if p.reloadTargets() {
				p.runScheduled(ctx, "probe after reload failed")
			}
		}
	}
}

func (p *Prober) runScheduled(ctx context.Context, failMsg string) {
	if len(p.Targets()) == 0 {
		p.log.WarnObj("no targets configured; prober idle", "targets_file", p.cfg.TargetsFile)
		return
	}
	if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.log.ErrorObj(failMsg, "error", err)
	}
}

// RunOnce performs a single probe pass across all loaded targets.
func (p *Prober) RunOnce(ctx context.Context) (*prober.Report, error) {
	if p == nil || p.service == nil {
		return nil, fmt.Errorf("prober is not initialized")
	}
	list := p.Targets()

	start := time.Now()
	p.log.InfoObj("probe pass started", "probe_meta", map[string]any{
		"targets_count": len(list),
		"started_at":    start.UTC(),
	})
	report, err := p.service.Run(ctx, list)
	if report != nil {
		p.log.InfoObj("probe pass completed", "probe_meta", map[string]any{
			"targets_count": len(list),
			"up":            report.Up,
			"down":          report.Down,
			"p50_ms":        report.P50.Milliseconds(),
			"p95_ms":        report.P95.Milliseconds(),
			"p99_ms":        report.P99.Milliseconds(),
			"elapsed_ms":    time.Since(start).Milliseconds(),
		})
	}
	return report, err
}

// reloadTargets swaps in the targets file content. An invalid file keeps the
// previous registry.
func (p *Prober) reloadTargets() bool {
	reg, err := targets.LoadRegistry(p.cfg.TargetsFile)
	if err != nil {
		p.log.ErrorObj("targets reload failed; keeping previous targets", "error", err)
		return false
	}

	p.mu.Lock()
	p.targetReg = reg
	p.mu.Unlock()

	logTargets(p.log, reg)
	return true
}

// Close releases the store and publisher connections.
func (p *Prober) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.log.ErrorObj("storage close failed", "error", err)
			errs = append(errs, err)
		}
	}
	if err := p.fanout.Close(); err != nil {
		p.log.ErrorObj("publishers close failed", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func logTargets(log logger.Logger, reg *targets.Registry) {
	list := reg.Targets()
	ids := make([]string, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})
}
