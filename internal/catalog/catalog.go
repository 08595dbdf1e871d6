// Package catalog owns the live tool index.
//
// A Catalog loads records from a loader.Source, builds a tools.Index and
// publishes it as an immutable snapshot. Readers always see one complete
// snapshot; a rebuild that fails leaves the previous snapshot in place.
package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/loader"
	"github.com/radutopala/toolcatalog/internal/telemetry"
	"github.com/radutopala/toolcatalog/internal/tools"
)

// DefaultDebounce is how long Watch waits for a burst of file events to
// settle before rebuilding.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrNotReady is returned by Index before the first successful load.
	ErrNotReady = errors.New("catalog not ready")

	// ErrNotWatchable is returned by Watch when the source has no files to
	// watch.
	ErrNotWatchable = errors.New("catalog source cannot be watched")
)

// Snapshot is one published index.
type Snapshot struct {
	Index    *tools.Index
	Revision uint64
	LoadedAt time.Time
}

// Listener is called with every newly published snapshot, in order.
type Listener func(ctx context.Context, snap *Snapshot)

// Options configures a Catalog. The zero value is usable.
type Options struct {
	Logger   *zap.Logger
	Metrics  telemetry.Metrics
	Debounce time.Duration
}

// Catalog holds the current index snapshot.
type Catalog struct {
	source   loader.Source
	logger   *zap.Logger
	metrics  telemetry.Metrics
	debounce time.Duration

	current atomic.Pointer[Snapshot]

	ready     chan struct{}
	readyOnce sync.Once
	initErr   error

	reloadMu sync.Mutex
	revision uint64

	listenersMu sync.Mutex
	listeners   []Listener
}

// New creates a catalog over source. Nothing is loaded until Reload.
func New(source loader.Source, opts Options) *Catalog {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Catalog{
		source:   source,
		logger:   logger.Named("catalog"),
		metrics:  metrics,
		debounce: debounce,
		ready:    make(chan struct{}),
	}
}

// Reload loads and builds a new index and publishes it. On failure the
// current snapshot is kept and the error returned. The first call, whatever
// its outcome, releases Wait.
func (c *Catalog) Reload(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	snap, err := c.build(ctx)
	c.metrics.ObserveRebuild(err)
	if err != nil {
		c.logger.Error("index rebuild failed",
			zap.String("source", c.source.Describe()),
			zap.Bool("keeping_previous", c.current.Load() != nil),
			zap.Error(err),
		)
		c.markReady(err)
		return err
	}

	c.current.Store(snap)
	c.metrics.SetIndexedTools(snap.Index.Len())
	c.logger.Info("index published",
		zap.String("source", c.source.Describe()),
		zap.Uint64("revision", snap.Revision),
		zap.Int("tools", snap.Index.Len()),
		zap.Int("categories", len(snap.Index.Categories())),
	)
	c.markReady(nil)
	c.notify(ctx, snap)
	return nil
}

func (c *Catalog) build(ctx context.Context) (*Snapshot, error) {
	records, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := tools.Build(records)
	if err != nil {
		return nil, err
	}
	c.revision++
	return &Snapshot{
		Index:    idx,
		Revision: c.revision,
		LoadedAt: time.Now(),
	}, nil
}

func (c *Catalog) markReady(err error) {
	c.readyOnce.Do(func() {
		c.initErr = err
		close(c.ready)
	})
}

// Wait blocks until the first load attempt has finished and returns the
// current index, or the initial load error if no index was ever built.
func (c *Catalog) Wait(ctx context.Context) (*tools.Index, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ready:
	}
	if snap := c.current.Load(); snap != nil {
		return snap.Index, nil
	}
	return nil, c.initErr
}

// Index returns the current index without blocking.
func (c *Catalog) Index() (*tools.Index, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap.Index, nil
}

// Snapshot returns the current snapshot, or nil before the first
// successful load.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Ready reports whether an index is being served.
func (c *Catalog) Ready() bool {
	return c.current.Load() != nil
}

// OnUpdate registers l for every snapshot published after this call.
func (c *Catalog) OnUpdate(l Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Catalog) notify(ctx context.Context, snap *Snapshot) {
	c.listenersMu.Lock()
	listeners := append([]Listener(nil), c.listeners...)
	c.listenersMu.Unlock()

	for _, l := range listeners {
		l(ctx, snap)
	}
}
