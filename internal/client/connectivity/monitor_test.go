package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/events/eventstest"
	clientsync "github.com/iudanet/matsync/internal/client/sync"
)

func boolPtr(v bool) *bool { return &v }

func okDrainer() *DrainerMock {
	return &DrainerMock{
		DrainFunc: func(ctx context.Context) (*clientsync.Result, error) {
			return &clientsync.Result{}, nil
		},
	}
}

func TestNewMonitor_InitialState(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		prober  *ProberMock
		initial *bool
		name    string
		want    bool
	}{
		{name: "explicit online", initial: boolPtr(true), want: true},
		{name: "explicit offline wins over probe", initial: boolPtr(false), want: false,
			prober: &ProberMock{PingFunc: func(ctx context.Context) error { return nil }}},
		{name: "probe ok", want: true,
			prober: &ProberMock{PingFunc: func(ctx context.Context) error { return nil }}},
		{name: "probe fails", want: false,
			prober: &ProberMock{PingFunc: func(ctx context.Context) error { return errors.New("unreachable") }}},
		{name: "nothing configured", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.NewBus(nil)
			rec := eventstest.NewRecorder(bus)

			opts := Options{Bus: bus, Initial: tt.initial}
			if tt.prober != nil {
				opts.Prober = tt.prober
			}

			m := NewMonitor(ctx, opts)
			assert.Equal(t, tt.want, m.IsOnline())
			assert.Empty(t, rec.Events(), "initial state is not a transition")
		})
	}
}

func TestSetOnline_Transitions(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus(nil)
	rec := eventstest.NewRecorder(bus)
	drainer := okDrainer()

	m := NewMonitor(ctx, Options{Bus: bus, Drainer: drainer, Initial: boolPtr(false)})

	// Повторное уведомление без смены состояния ничего не публикует
	m.SetOnline(ctx, false)
	assert.Empty(t, rec.Events())

	m.SetOnline(ctx, true)
	m.SetOnline(ctx, true)
	m.SetOnline(ctx, false)

	assert.Equal(t, []events.Kind{events.KindOnline, events.KindOffline}, rec.Kinds())
	assert.Len(t, drainer.DrainCalls(), 1, "drain runs once per offline->online transition")
	assert.False(t, m.IsOnline())
}

func TestSetOnline_DrainAfterOnlineEvent(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus(nil)
	rec := eventstest.NewRecorder(bus)

	var seenOnline int
	drainer := &DrainerMock{
		DrainFunc: func(ctx context.Context) (*clientsync.Result, error) {
			seenOnline = rec.Count(events.KindOnline)
			return nil, errors.New("store closed")
		},
	}

	m := NewMonitor(ctx, Options{Bus: bus, Drainer: drainer, Initial: boolPtr(false)})
	m.SetOnline(ctx, true)

	assert.Equal(t, 1, seenOnline, "online is published before the drain starts")
	assert.True(t, m.IsOnline(), "drain failure does not change connectivity state")
}

func TestSetOnline_SubscribersDoNotMultiplyDrains(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus(nil)
	for range 5 {
		bus.Subscribe(func(events.Event) {})
	}
	drainer := okDrainer()

	m := NewMonitor(ctx, Options{Bus: bus, Drainer: drainer, Initial: boolPtr(false)})
	m.SetOnline(ctx, true)

	assert.Len(t, drainer.DrainCalls(), 1)
}

func TestSetOnline_ConcurrentEventsFollowState(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus(nil)
	rec := eventstest.NewRecorder(bus)
	m := NewMonitor(ctx, Options{Bus: bus, Initial: boolPtr(false)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.SetOnline(ctx, (i+j)%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	kinds := rec.Kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, events.KindOnline, kinds[0], "first transition from offline")
	for i := 1; i < len(kinds); i++ {
		require.NotEqual(t, kinds[i-1], kinds[i], "events alternate at index %d", i)
	}

	want := events.KindOffline
	if m.IsOnline() {
		want = events.KindOnline
	}
	assert.Equal(t, want, kinds[len(kinds)-1], "last event matches final state")
}

func TestProbe(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool

	prober := &ProberMock{
		PingFunc: func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			if !hasDeadline {
				return errors.New("probe without timeout")
			}
			if fail.Load() {
				return errors.New("unreachable")
			}
			return nil
		},
	}
	drainer := okDrainer()

	m := NewMonitor(ctx, Options{Prober: prober, Drainer: drainer, Bus: events.NewBus(nil)})
	require.True(t, m.IsOnline())

	fail.Store(true)
	assert.False(t, m.Probe(ctx))
	assert.False(t, m.IsOnline())

	fail.Store(false)
	assert.True(t, m.Probe(ctx))
	assert.True(t, m.IsOnline())
	assert.Len(t, drainer.DrainCalls(), 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var pings atomic.Int32
	prober := &ProberMock{
		PingFunc: func(ctx context.Context) error {
			pings.Add(1)
			return nil
		},
	}

	m := NewMonitor(context.Background(), Options{Prober: prober, Initial: boolPtr(false)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return m.IsOnline() }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.GreaterOrEqual(t, pings.Load(), int32(1))
}
