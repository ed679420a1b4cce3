package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/observability"
)

// Watcher defaults.
const (
	DefaultWatchInterval = 30 * time.Second
	DefaultLostAfter     = 3
)

// EventType classifies a watcher event.
type EventType int

// Watcher event types.
const (
	EventFound EventType = iota
	EventUpdated
	EventLost
)

func (t EventType) String() string {
	switch t {
	case EventFound:
		return "found"
	case EventUpdated:
		return "updated"
	case EventLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Event reports a change in the set of visible bridges.
type Event struct {
	Type   EventType
	Bridge api.Bridge

	// PreviousAddress is set on EventUpdated.
	PreviousAddress string
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Interval between scans. Default: 30s.
	Interval time.Duration

	// ScanTimeout bounds each scan. Default: Interval.
	ScanTimeout time.Duration

	// LostAfter is the number of consecutive scans a bridge may be missing
	// before EventLost. Default: 3.
	LostAfter int

	Logger observability.Logger
}

// Watcher scans periodically and reports bridges that appear, move or
// disappear.
type Watcher struct {
	source      Discoverer
	interval    time.Duration
	scanTimeout time.Duration
	lostAfter   int
	logger      observability.Logger
}

// NewWatcher creates a watcher over source.
func NewWatcher(source Discoverer, cfg WatcherConfig) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWatchInterval
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = cfg.Interval
	}
	if cfg.LostAfter <= 0 {
		cfg.LostAfter = DefaultLostAfter
	}

	return &Watcher{
		source:      source,
		interval:    cfg.Interval,
		scanTimeout: cfg.ScanTimeout,
		lostAfter:   cfg.LostAfter,
		logger:      observability.OrNoop(cfg.Logger),
	}
}

type watched struct {
	bridge api.Bridge
	misses int
}

// Watch starts scanning at once and then every interval. The channel is
// closed after stop is called or ctx is done; stop returns once scanning
// has ended and may be called more than once.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, func()) {
	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(events)
		w.run(ctx, events)
	}()

	var once sync.Once
	stop := func() {
		once.Do(cancel)
		<-done
	}

	return events, stop
}

func (w *Watcher) run(ctx context.Context, events chan<- Event) {
	known := make(map[string]*watched)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if !w.scan(ctx, known, events) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scan runs one discovery pass and emits the resulting events. It returns
// false once ctx is done.
func (w *Watcher) scan(ctx context.Context, known map[string]*watched, events chan<- Event) bool {
	bridges, err := Collect(ctx, w.source, w.scanTimeout)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		w.logger.Warn("discovery scan failed", observability.Field{Key: "error", Value: err.Error()})
		return true
	}

	seen := make(map[string]bool, len(bridges))
	for _, b := range bridges {
		seen[b.ID] = true

		entry, ok := known[b.ID]
		if !ok {
			known[b.ID] = &watched{bridge: b}
			w.logger.Info("bridge discovered", bridgeFields(b)...)
			if !emit(ctx, events, Event{Type: EventFound, Bridge: b}) {
				return false
			}
			continue
		}

		entry.misses = 0
		if entry.bridge.HostPort() == b.HostPort() {
			entry.bridge = b
			continue
		}

		previous := entry.bridge.HostPort()
		entry.bridge = b
		w.logger.Info("bridge address changed",
			append(bridgeFields(b), observability.Field{Key: "previous_address", Value: previous})...)
		if !emit(ctx, events, Event{Type: EventUpdated, Bridge: b, PreviousAddress: previous}) {
			return false
		}
	}

	for id, entry := range known {
		if seen[id] {
			continue
		}

		entry.misses++
		if entry.misses < w.lostAfter {
			continue
		}

		delete(known, id)
		w.logger.Info("bridge lost", bridgeFields(entry.bridge)...)
		if !emit(ctx, events, Event{Type: EventLost, Bridge: entry.bridge}) {
			return false
		}
	}

	return true
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
