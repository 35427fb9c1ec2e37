// Package engine assembles one isolated sync engine instance from injected dependencies.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/matsync/internal/client/cache"
	"github.com/iudanet/matsync/internal/client/connectivity"
	"github.com/iudanet/matsync/internal/client/data"
	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/queue"
	"github.com/iudanet/matsync/internal/client/storage"
	clientsync "github.com/iudanet/matsync/internal/client/sync"
	"github.com/iudanet/matsync/internal/client/transfer"
	"github.com/iudanet/matsync/internal/client/writethrough"
)

var (
	// ErrNoStore is returned by New when Options.Store is nil
	ErrNoStore = errors.New("engine requires a store")

	// ErrNoBackend is returned by every remote call when the engine runs without a backend
	ErrNoBackend = errors.New("no remote backend configured")
)

// Options holds the dependencies of an Engine.
type Options struct {
	// Store must be initialized (see storage drivers' New)
	Store storage.Store
	// Backend receives queued mutations. Without it nothing is drained and items stay queued.
	Backend clientsync.Backend
	// Prober decides the startup connectivity state when InitialOnline is nil
	Prober        connectivity.Prober
	InitialOnline *bool
	Logger        *slog.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Engine is the set of components sharing one store and one event bus.
// Sync is nil when the engine was built without a backend.
// Writer is the entry point for interactive writes: it adds the direct remote
// write that Data expects from its caller while online.
type Engine struct {
	Bus      *events.Bus
	Store    storage.Store
	Cache    *cache.Manager
	Queue    *queue.Queue
	Sync     *clientsync.Engine
	Monitor  *connectivity.Monitor
	Data     data.Service
	Writer   *writethrough.Service
	Transfer *transfer.Service
	logger   *slog.Logger
}

// New wires an engine. The monitor is created last so that a reconnect can drain the queue.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	bus := events.NewBus(logger.With("component", "events"))
	q := queue.New(opts.Store, now, logger.With("component", "queue"))

	var (
		syncEngine *clientsync.Engine
		drainer    connectivity.Drainer
	)
	if opts.Backend != nil {
		syncEngine = clientsync.NewEngine(opts.Store, q, opts.Backend, bus, logger.With("component", "sync"))
		drainer = syncEngine
	}

	monitor := connectivity.NewMonitor(ctx, connectivity.Options{
		Prober:  opts.Prober,
		Drainer: drainer,
		Bus:     bus,
		Logger:  logger.With("component", "connectivity"),
		Initial: opts.InitialOnline,
	})

	dataService := data.NewService(opts.Store, q, monitor, bus, now, logger.With("component", "data"))

	e := &Engine{
		Bus:      bus,
		Store:    opts.Store,
		Cache:    cache.NewManager(opts.Store, now, logger.With("component", "cache")),
		Queue:    q,
		Sync:     syncEngine,
		Monitor:  monitor,
		Data:     dataService,
		Writer:   writethrough.NewService(dataService, opts.Store, q, opts.Backend, monitor, logger.With("component", "writethrough")),
		Transfer: transfer.NewService(opts.Store, bus, now, logger.With("component", "transfer")),
		logger:   logger,
	}

	e.logger.Debug("Engine started", "online", monitor.IsOnline())
	return e, nil
}

// Drain runs one sync pass. Returns ErrNoBackend when no backend is configured.
func (e *Engine) Drain(ctx context.Context) (*clientsync.Result, error) {
	if e.Sync == nil {
		return nil, ErrNoBackend
	}
	return e.Sync.Drain(ctx)
}

// Close releases the store
func (e *Engine) Close() error {
	if err := e.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
