// Command ownertasks-demo simulates UI screens that start background loads
// and close before the loads finish, and exposes the resulting task metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ownertasks "github.com/ownertask/go-owner-tasks"
	"github.com/ownertask/go-owner-tasks/core"
	"github.com/ownertask/go-owner-tasks/internal/config"
	obs "github.com/ownertask/go-owner-tasks/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type options struct {
	configPath string
	watch      bool
	screens    int
	perSecond  float64
	duration   time.Duration
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("ownertasks-demo", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	fs.BoolVar(&opts.watch, "watch", false, "reload the log level when the config file changes")
	fs.IntVar(&opts.screens, "screens", 4, "number of simulated screens")
	fs.Float64Var(&opts.perSecond, "rate", 20, "task submissions per second per screen")
	fs.DurationVar(&opts.duration, "duration", 5*time.Second, "how long to run the simulation")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.screens < 1 {
		return opts, fmt.Errorf("screens must be at least 1, got %d", opts.screens)
	}
	if opts.perSecond <= 0 {
		return opts, fmt.Errorf("rate must be positive, got %v", opts.perSecond)
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "ownertasks-demo:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger := core.NewLeveledLogger(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, poolStats, err := buildPool(ctx, cfg.Pool)
	if err != nil {
		return err
	}

	managerCfg := ownertasks.DefaultTaskManagerConfig()
	managerCfg.Name = cfg.Manager.Name
	managerCfg.Logger = logger
	managerCfg.HistoryCapacity = cfg.Manager.History
	if cfg.Manager.WeakOwners {
		managerCfg.Registry = ownertasks.NewWeakRegistry[Screen]()
	}

	var poller *obs.SnapshotPoller
	var server *http.Server
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		exporter, err := obs.NewMetricsExporter(cfg.Metrics.Namespace, reg, obs.ExporterOptions{})
		if err != nil {
			return err
		}
		managerCfg.Metrics = exporter

		poller, err = obs.NewSnapshotPoller(cfg.Metrics.Namespace, reg, cfg.Metrics.PollInterval.Duration)
		if err != nil {
			return err
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", core.F("error", err))
			}
		}()
		logger.Info("metrics endpoint listening", core.F("addr", cfg.Metrics.Listen))
	}

	manager := ownertasks.NewTaskManager(pool, managerCfg)

	if poller != nil {
		poller.AddManager(manager.Name(), manager)
		poller.AddPool(poolStats.ID(), poolStats)
		poller.Start(ctx)
		defer poller.Stop()
	}
	if server != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if opts.watch && opts.configPath != "" {
		go func() {
			err := config.Watch(ctx, opts.configPath, logger, func(next *config.Config) {
				logger.SetLevel(next.LogLevel())
			})
			if err != nil {
				logger.Warn("config watch stopped", core.F("error", err))
			}
		}()
	}

	simCtx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	g, gctx := errgroup.WithContext(simCtx)
	sims := make([]*simulator, opts.screens)
	for i := range sims {
		sims[i] = newSimulator(manager, fmt.Sprintf("screen-%d", i), rate.NewLimiter(rate.Limit(opts.perSecond), 1))
		g.Go(func() error { return sims[i].run(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manager.Shutdown()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := manager.WaitIdle(drainCtx); err != nil {
		logger.Warn("tasks still running at exit", core.F("error", err))
	}

	printSummary(manager, sims)
	return nil
}

// statsPool is the part of a worker pool the poller needs.
type statsPool interface {
	core.Executor
	ID() string
	Stats() core.PoolStats
}

func buildPool(ctx context.Context, cfg config.PoolConfig) (core.Executor, statsPool, error) {
	switch cfg.Kind {
	case config.PoolFixed:
		pool := ownertasks.NewGoroutineThreadPool("demo-fixed", cfg.Workers)
		pool.Start(ctx)
		return pool, pool, nil
	case config.PoolCached:
		pool := ownertasks.NewCachedThreadPool("demo-cached")
		return pool, pool, nil
	default:
		return nil, nil, fmt.Errorf("unknown pool kind %q", cfg.Kind)
	}
}

func printSummary(manager *ownertasks.TaskManager, sims []*simulator) {
	stats := manager.Stats()
	fmt.Printf("manager %s: submitted=%d finished=%d cancelled=%d forfeited=%d failed=%d rejected=%d\n",
		stats.Name, stats.Submitted, stats.Finished, stats.Cancelled, stats.Forfeited, stats.Failed, stats.Rejected)
	for _, s := range sims {
		r := s.report()
		fmt.Printf("  %s: screens=%d loaded=%d cancelled=%d failed=%d\n",
			s.name, r.Screens, r.Loaded, r.Cancelled, r.Failed)
	}
}
