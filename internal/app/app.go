package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/honeywatch/internal/collector"
	"github.com/five82/honeywatch/internal/config"
	"github.com/five82/honeywatch/internal/endpoint"
	"github.com/five82/honeywatch/internal/logging"
	"github.com/five82/honeywatch/internal/metrics"
	"github.com/five82/honeywatch/internal/poller"
	"github.com/five82/honeywatch/internal/prefs"
	"github.com/five82/honeywatch/internal/server"
	"github.com/five82/honeywatch/internal/state"
	"github.com/five82/honeywatch/internal/ui"
)

// Ensure Metrics records poll activity at compile time.
var _ poller.Recorder = (*metrics.Metrics)(nil)

// Options configure the honeywatch application. Non-zero overrides win over
// the config file and environment.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/honeywatch/prefs.toml

	PollInterval time.Duration
	APIURL       string
	StatusAddr   string

	Version string
}

// LoadConfig reads the config file and environment, then applies the
// command-line overrides in opts.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.PollInterval > 0 {
		cfg.PollInterval = opts.PollInterval
	}
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(opts.StatusAddr); v != "" {
		cfg.StatusAddr = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Components are the wired pieces shared by the dashboard and the headless
// commands.
type Components struct {
	Config   config.Config
	Logger   *slog.Logger
	Resolver endpoint.Resolver
	Client   *collector.Client
	Store    *state.Store
	Metrics  *metrics.Metrics
	Poller   *poller.Coordinator
}

// Build wires the collector client, store, metrics and poll coordinator for
// cfg. A nil logger discards output.
func Build(cfg config.Config, logger *slog.Logger, version string) (*Components, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	resolver := cfg.Resolver()
	client := collector.NewClient(collector.Options{
		RequestTimeout: cfg.RequestTimeout,
		RecordLimit:    cfg.RecordLimit,
		UserAgent:      userAgent(version),
	})
	store := state.NewStore()
	m := metrics.New()

	coord, err := poller.New(poller.Options{
		Fetcher:    client,
		Candidates: resolver,
		Store:      store,
		Logger:     logger,
		Recorder:   m,
		Interval:   cfg.PollInterval,
		Sticky:     cfg.StickyEndpoint,
		Backoff:    cfg.Backoff,
		BackoffMax: cfg.BackoffMax,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init poller: %w", err)
	}

	return &Components{
		Config:   cfg,
		Logger:   logger,
		Resolver: resolver,
		Client:   client,
		Store:    store,
		Metrics:  m,
		Poller:   coord,
	}, nil
}

// Run boots the dashboard and blocks until the user quits or ctx is
// cancelled. The store is closed on the way out so cycles still in flight
// cannot write into a torn-down dashboard.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	userPrefs := prefs.Load(opts.PrefsPath)

	comp, err := Build(cfg, logger, opts.Version)
	if err != nil {
		return err
	}
	defer comp.Store.Close()

	logger.Info("honeywatch starting",
		"version", opts.Version,
		"config", cfg.Path,
		"candidates", comp.Resolver.Candidates(),
		"interval", cfg.PollInterval.String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.StatusAddr != "" {
		srv := server.New(server.Options{
			Addr:    cfg.StatusAddr,
			Store:   comp.Store,
			Metrics: comp.Metrics.Handler(),
			Trigger: comp.Poller.Trigger,
			Logger:  logger.With("component", "server"),
		})
		if err := srv.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return comp.Poller.Run(gctx)
	})
	g.Go(func() error {
		// Quitting the dashboard stops the poller too.
		defer cancel()
		return ui.Run(gctx, ui.Options{
			Store:     comp.Store,
			Trigger:   comp.Poller.Trigger,
			LogPath:   cfg.LogFile,
			ThemeName: userPrefs.Theme,
			PrefsPath: opts.PrefsPath,
			ShowPhase: userPrefs.ShowPhase,
		})
	})

	err = g.Wait()
	comp.Store.Close()
	logger.Info("honeywatch stopped")
	return err
}

// Once runs a single poll cycle and returns the resulting state. The error
// is non-nil only when every candidate failed.
func Once(ctx context.Context, cfg config.Config, logger *slog.Logger, version string) (state.SyncState, poller.CycleResult, error) {
	comp, err := Build(cfg, logger, version)
	if err != nil {
		return state.SyncState{}, poller.CycleResult{}, err
	}
	defer comp.Store.Close()

	res, err := comp.Poller.RunCycle(ctx)
	return comp.Store.Snapshot(), res, err
}

// ProbeResult is the outcome of a health check against one candidate.
type ProbeResult struct {
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Healthy  bool          `json:"healthy" yaml:"healthy"`
	Status   string        `json:"status,omitempty" yaml:"status,omitempty"`
	Latency  time.Duration `json:"latency" yaml:"latency"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Probe calls /health on every candidate in resolver order. Unlike a poll
// cycle it does not stop at the first success.
func Probe(ctx context.Context, cfg config.Config, version string) []ProbeResult {
	client := collector.NewClient(collector.Options{
		RequestTimeout: cfg.RequestTimeout,
		UserAgent:      userAgent(version),
	})
	candidates := cfg.Resolver().Candidates()
	results := make([]ProbeResult, 0, len(candidates))
	for _, candidate := range candidates {
		start := time.Now()
		resp, err := client.Health(ctx, candidate)
		r := ProbeResult{Endpoint: candidate, Latency: time.Since(start)}
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Status = resp.Status
			r.Healthy = strings.EqualFold(resp.Status, "ok")
		}
		results = append(results, r)
	}
	return results
}

// IsExhausted reports whether err means no candidate answered.
func IsExhausted(err error) bool {
	return errors.Is(err, poller.ErrExhausted)
}

func userAgent(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}
	return "honeywatch/" + version
}
