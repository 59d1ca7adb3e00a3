package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/ownertask/go-owner-tasks/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ManagerSnapshotProvider provides current task manager stats snapshots.
type ManagerSnapshotProvider interface {
	Stats() core.ManagerStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports manager/pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	managersMu sync.RWMutex
	managers   map[string]ManagerSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	managerOwners *prom.GaugeVec
	managerLive   *prom.GaugeVec
	managerClosed *prom.GaugeVec

	poolQueued  *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "ownertasks"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	managerOwners := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "manager_owners",
		Help:      "Number of owners with live tasks per manager.",
	}, []string{"manager"})
	managerLive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "manager_live_tasks",
		Help:      "Number of submitted tasks that have not finished running.",
	}, []string{"manager"})
	managerClosed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "manager_closed",
		Help:      "Manager closed state (1=closed, 0=open).",
	}, []string{"manager"})

	poolQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_queued",
		Help:      "Queued work items per pool.",
	}, []string{"pool"})
	poolActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_active",
		Help:      "Active work items per pool.",
	}, []string{"pool"})
	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_workers",
		Help:      "Worker count per pool (0 for on-demand pools).",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})

	var err error
	if managerOwners, err = registerCollector(reg, managerOwners); err != nil {
		return nil, err
	}
	if managerLive, err = registerCollector(reg, managerLive); err != nil {
		return nil, err
	}
	if managerClosed, err = registerCollector(reg, managerClosed); err != nil {
		return nil, err
	}
	if poolQueued, err = registerCollector(reg, poolQueued); err != nil {
		return nil, err
	}
	if poolActive, err = registerCollector(reg, poolActive); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:      interval,
		managers:      make(map[string]ManagerSnapshotProvider),
		pools:         make(map[string]PoolSnapshotProvider),
		managerOwners: managerOwners,
		managerLive:   managerLive,
		managerClosed: managerClosed,
		poolQueued:    poolQueued,
		poolActive:    poolActive,
		poolWorkers:   poolWorkers,
		poolRunning:   poolRunning,
	}, nil
}

// AddManager adds or replaces a manager snapshot provider by name.
func (p *SnapshotPoller) AddManager(name string, provider ManagerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "manager")
	p.managersMu.Lock()
	p.managers[name] = provider
	p.managersMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.CollectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CollectOnce()
		}
	}
}

// CollectOnce refreshes every gauge from the registered providers.
func (p *SnapshotPoller) CollectOnce() {
	p.managersMu.RLock()
	for name, provider := range p.managers {
		stats := provider.Stats()
		p.managerOwners.WithLabelValues(name).Set(float64(stats.Owners))
		p.managerLive.WithLabelValues(name).Set(float64(stats.Live))
		p.managerClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}
	p.managersMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
	p.poolsMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
