package discovery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/discovery"
)

// scans replays one result per scan and repeats the last one.
type scans struct {
	mu    sync.Mutex
	steps []scanStep
	calls int
}

type scanStep struct {
	bridges []api.Bridge
	err     error
}

func (s *scans) Discover(context.Context) ([]api.Bridge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++

	return step.bridges, step.err
}

func next(t *testing.T, events <-chan discovery.Event) discovery.Event {
	t.Helper()

	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no event")
		return discovery.Event{}
	}
}

func TestWatcherEvents(t *testing.T) {
	t.Parallel()

	first := api.Bridge{ID: "a", Address: "10.0.0.1"}
	moved := api.Bridge{ID: "a", Address: "10.0.0.9"}

	source := &scans{steps: []scanStep{
		{bridges: []api.Bridge{first}},
		{bridges: []api.Bridge{first}},
		{err: errors.New("scan failed")},
		{bridges: []api.Bridge{moved}},
		{},
	}}

	w := discovery.NewWatcher(source, discovery.WatcherConfig{Interval: 5 * time.Millisecond, LostAfter: 2})
	events, stop := w.Watch(context.Background())
	defer stop()

	ev := next(t, events)
	assert.Equal(t, discovery.EventFound, ev.Type)
	assert.Equal(t, first, ev.Bridge)

	ev = next(t, events)
	assert.Equal(t, discovery.EventUpdated, ev.Type)
	assert.Equal(t, "10.0.0.9", ev.Bridge.Address)
	assert.Equal(t, "10.0.0.1", ev.PreviousAddress)

	ev = next(t, events)
	assert.Equal(t, discovery.EventLost, ev.Type)
	assert.Equal(t, "a", ev.Bridge.ID)
}

func TestWatcherStopClosesChannel(t *testing.T) {
	t.Parallel()

	source := &scans{steps: []scanStep{{bridges: []api.Bridge{{ID: "a", Address: "10.0.0.1"}}}}}
	w := discovery.NewWatcher(source, discovery.WatcherConfig{Interval: time.Millisecond})

	events, stop := w.Watch(context.Background())
	next(t, events)

	stop()
	stop()

	for range events {
		// drain anything buffered before the close
	}
}

func TestWatcherContextCancel(t *testing.T) {
	t.Parallel()

	blocking := discovererFunc(func(ctx context.Context) ([]api.Bridge, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	w := discovery.NewWatcher(blocking, discovery.WatcherConfig{Interval: time.Hour})
	events, stop := w.Watch(ctx)
	defer stop()

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "channel not closed after cancel")
	}
}

func TestEventTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "found", discovery.EventFound.String())
	assert.Equal(t, "updated", discovery.EventUpdated.String())
	assert.Equal(t, "lost", discovery.EventLost.String())
	assert.Equal(t, "unknown", discovery.EventType(9).String())
}
