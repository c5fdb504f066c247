// Package browser manages a pool of warmed-up chromedp tabs so entropy
// sources can be invoked concurrently without paying Chrome's startup cost
// on every call (spec §5: "sources are independent; callers may invoke them
// in parallel").
//
// Adapted from the teacher's pkg/browser/pool.go object-pool-of-Chrome-
// instances, repurposed from "reuse a warmed-up bot visitor tab across page
// loads" to "lease one tab for the duration of one source call, then
// return it."
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
)

// PoolConfig configures the tab pool.
type PoolConfig struct {
	// MaxInstances is the maximum number of concurrently-leased tabs.
	MaxInstances int
	// MinInstances is the number of tabs pre-warmed at startup.
	MinInstances int
	// AcquireTimeout bounds how long Acquire waits for a free tab.
	AcquireTimeout time.Duration
	// ProxyURL, if set, is applied to every launched Chrome instance.
	ProxyURL string
	// Headless runs Chrome without a visible window (default true).
	Headless bool
	// WindowWidth/WindowHeight set the initial viewport, which the screen
	// media-query source reads back.
	WindowWidth  int
	WindowHeight int
}

// DefaultPoolConfig returns sane defaults for a collection workload.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxInstances:   4,
		MinInstances:   1,
		AcquireTimeout: 30 * time.Second,
		Headless:       true,
		WindowWidth:    1366,
		WindowHeight:   900,
	}
}

// Instance is a leased chromedp tab. Callers run chromedp actions against
// Ctx and must call Release (never Ctx's own cancel) when done.
type Instance struct {
	id          string
	allocCtx    context.Context
	allocCancel context.CancelFunc
	Ctx         context.Context
	tabCancel   context.CancelFunc
	createdAt   time.Time
	inUse       int32
}

// Pool is a leasable set of Chrome tab instances.
type Pool struct {
	config    PoolConfig
	available chan *Instance
	mu        sync.Mutex
	instances map[string]*Instance
	counter   uint64
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a Pool and pre-warms PoolConfig.MinInstances tabs.
func New(cfg PoolConfig) (*Pool, error) {
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = 4
	}
	if cfg.MinInstances > cfg.MaxInstances {
		cfg.MinInstances = cfg.MaxInstances
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config:    cfg,
		available: make(chan *Instance, cfg.MaxInstances),
		instances: make(map[string]*Instance),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < cfg.MinInstances; i++ {
		inst, err := p.createInstance()
		if err != nil {
			continue
		}
		p.available <- inst
	}

	return p, nil
}

// Acquire leases a tab, creating one if the pool is under capacity, or
// waiting up to AcquireTimeout otherwise.
func (p *Pool) Acquire(ctx context.Context) (*Instance, error) {
	select {
	case inst := <-p.available:
		atomic.StoreInt32(&inst.inUse, 1)
		return inst, nil
	default:
	}

	p.mu.Lock()
	canCreate := len(p.instances) < p.config.MaxInstances
	p.mu.Unlock()

	if canCreate {
		inst, err := p.createInstance()
		if err != nil {
			return nil, fmt.Errorf("create tab: %w", err)
		}
		atomic.StoreInt32(&inst.inUse, 1)
		return inst, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.config.AcquireTimeout)
	defer cancel()

	select {
	case inst := <-p.available:
		atomic.StoreInt32(&inst.inUse, 1)
		return inst, nil
	case <-acquireCtx.Done():
		return nil, fmt.Errorf("acquire tab: %w", acquireCtx.Err())
	case <-p.ctx.Done():
		return nil, fmt.Errorf("pool closed")
	}
}

// Release returns a tab to the pool for reuse. When the pool's idle channel
// is already full the tab is destroyed instead; the tab's health is not
// checked.
func (p *Pool) Release(inst *Instance) {
	atomic.StoreInt32(&inst.inUse, 0)
	select {
	case p.available <- inst:
	default:
		p.destroyInstance(inst)
	}
}

// Close tears down every tab and the underlying Chrome processes.
func (p *Pool) Close() {
	p.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, inst := range p.instances {
		inst.tabCancel()
		inst.allocCancel()
	}
	p.instances = make(map[string]*Instance)
}

func (p *Pool) createInstance() (*Instance, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("window-size", fmt.Sprintf("%d,%d", p.config.WindowWidth, p.config.WindowHeight)),
	)
	if p.config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(p.config.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(p.ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start tab: %w", err)
	}

	id := fmt.Sprintf("tab-%d", atomic.AddUint64(&p.counter, 1))
	inst := &Instance{
		id:          id,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		Ctx:         tabCtx,
		tabCancel:   tabCancel,
		createdAt:   time.Now(),
	}

	p.mu.Lock()
	p.instances[id] = inst
	p.mu.Unlock()

	return inst, nil
}

func (p *Pool) destroyInstance(inst *Instance) {
	p.mu.Lock()
	delete(p.instances, inst.id)
	p.mu.Unlock()
	inst.tabCancel()
	inst.allocCancel()
}
