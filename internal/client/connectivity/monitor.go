package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/matsync/internal/client/events"
	clientsync "github.com/iudanet/matsync/internal/client/sync"
)

//go:generate moq -out monitor_mock.go . Prober Drainer

// DefaultProbeTimeout ограничивает одну проверку доступности сервера
const DefaultProbeTimeout = 3 * time.Second

// Prober checks whether the remote backend is reachable
type Prober interface {
	Ping(ctx context.Context) error
}

// Drainer is the sync entry point invoked when connectivity returns
type Drainer interface {
	Drain(ctx context.Context) (*clientsync.Result, error)
}

// Options configures a Monitor.
type Options struct {
	Prober  Prober
	Drainer Drainer
	Bus     *events.Bus
	Logger  *slog.Logger
	// Initial overrides the startup probe when set
	Initial *bool
}

// Monitor tracks online/offline state and publishes transitions.
type Monitor struct {
	prober  Prober
	drainer Drainer
	bus     *events.Bus
	logger  *slog.Logger
	// pubMu упорядочивает публикацию переходов в порядке изменения состояния
	pubMu  sync.Mutex
	mu     sync.Mutex
	online bool
}

// NewMonitor creates a monitor. The initial state is opts.Initial if set,
// otherwise the result of one probe, otherwise offline.
// The initial state is not a transition: no events are published.
func NewMonitor(ctx context.Context, opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		prober:  opts.Prober,
		drainer: opts.Drainer,
		bus:     opts.Bus,
		logger:  logger,
	}

	switch {
	case opts.Initial != nil:
		m.online = *opts.Initial
	case opts.Prober != nil:
		m.online = m.ping(ctx) == nil
	}

	return m
}

// IsOnline returns the current connectivity state
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a reachability notification.
// Only a change of state publishes Online/Offline; the offline->online
// transition additionally triggers one drain pass after Online is published.
// Events of concurrent calls are published in the order the state changed.
// Subscribers must not call SetOnline from an Online/Offline handler.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	if !m.transition(online) || !online || m.drainer == nil {
		return
	}

	// Ошибки прохода уже опубликованы движком синхронизации, здесь только логируем
	result, err := m.drainer.Drain(ctx)
	if err != nil {
		m.logger.Warn("Drain after reconnect failed", "error", err)
		return
	}
	if result != nil && !result.Skipped {
		m.logger.Debug("Drain after reconnect finished",
			"processed", result.Processed,
			"succeeded", result.Succeeded,
		)
	}
}

// transition меняет состояние и публикует событие под pubMu.
// Возвращает false, если состояние не изменилось.
func (m *Monitor) transition(online bool) bool {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	m.mu.Unlock()

	if online {
		m.logger.Info("Connectivity restored")
		m.publish(events.Online{})
	} else {
		m.logger.Info("Connectivity lost")
		m.publish(events.Offline{})
	}
	return true
}

// Probe pings the backend once and applies the result. Returns the new state.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.prober == nil {
		return m.IsOnline()
	}

	err := m.ping(ctx)
	if err != nil {
		m.logger.Debug("Backend probe failed", "error", err)
	}
	m.SetOnline(ctx, err == nil)

	return err == nil
}

// Run probes the backend every interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Probe(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Monitor) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()
	return m.prober.Ping(ctx)
}

func (m *Monitor) publish(e events.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}
