package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
)

// Discoverer reports the bridges it can see right now.
type Discoverer interface {
	Discover(ctx context.Context) ([]api.Bridge, error)
}

// Change describes what Collector.Add did with a bridge.
type Change int

// Collector changes.
const (
	ChangeNone Change = iota
	ChangeAdded
	ChangeUpdated
)

// Collector is a set of bridges keyed by id. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	bridges map[string]api.Bridge
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{bridges: make(map[string]api.Bridge)}
}

// Add inserts b, or refreshes the entry with the same id. Bridges without
// an id or an address are ignored.
func (c *Collector) Add(b api.Bridge) Change {
	b.ID = api.NormalizeBridgeID(b.ID)
	if b.ID == "" || b.Address == "" {
		return ChangeNone
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.bridges[b.ID]
	if !ok {
		c.bridges[b.ID] = b
		return ChangeAdded
	}

	if b.Name == "" {
		b.Name = prev.Name
	}

	if prev.Address == b.Address && prev.Port == b.Port {
		if prev.Name != b.Name {
			c.bridges[b.ID] = b
		}
		return ChangeNone
	}

	c.bridges[b.ID] = b

	return ChangeUpdated
}

// Bridges returns the collected bridges ordered by id.
func (c *Collector) Bridges() []api.Bridge {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]api.Bridge, 0, len(c.bridges))
	for _, b := range c.bridges {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Len returns the number of collected bridges.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.bridges)
}

// Collect runs one scan of d bounded by timeout. A zero timeout leaves the
// bound to ctx.
func Collect(ctx context.Context, d Discoverer, timeout time.Duration) ([]api.Bridge, error) {
	if d == nil {
		return nil, errors.Wrap(api.ErrInvalidRequest, "discoverer is required")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bridges, err := d.Discover(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "bridge discovery failed")
	}

	return bridges, nil
}
