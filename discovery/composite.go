package discovery

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/observability"
)

// Composite runs several discoverers at once and merges their answers.
type Composite struct {
	sources []Discoverer
	logger  observability.Logger
}

// NewComposite combines sources. Nil sources are skipped.
func NewComposite(logger observability.Logger, sources ...Discoverer) *Composite {
	c := &Composite{logger: observability.OrNoop(logger)}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Discover returns the merged set when at least one source succeeded.
// A failing source does not cancel the others; when all fail, their errors
// are joined. Caller cancellation stops every source and is returned as is.
func (c *Composite) Discover(ctx context.Context) ([]api.Bridge, error) {
	if len(c.sources) == 0 {
		return nil, errors.Wrap(api.ErrInvalidRequest, "no discovery sources configured")
	}

	collector := NewCollector()

	var (
		mu   sync.Mutex
		errs []error
	)

	g, groupCtx := errgroup.WithContext(ctx)
	for _, source := range c.sources {
		g.Go(func() error {
			bridges, err := source.Discover(groupCtx)
			if err != nil {
				if errors.Is(ctx.Err(), context.Canceled) {
					return errors.Wrap(ctx.Err(), "bridge discovery canceled")
				}

				c.logger.Warn("discovery source failed",
					observability.Field{Key: "error", Value: err.Error()},
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}

			for _, b := range bridges {
				logChange(c.logger, collector.Add(b), b)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(errs) == len(c.sources) {
		return nil, errors.Join(errs...)
	}

	return collector.Bridges(), nil
}
