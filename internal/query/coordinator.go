package query

import (
	"context"
	"errors"
	"sync"

	"github.com/problemradar/problem-radar/internal/models"
)

// ErrSuperseded is returned to a search whose result arrived after a newer
// search was issued on the same Coordinator.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Loader supplies the problem set a search runs over. A networked loader must
// honor ctx cancellation.
type Loader func(ctx context.Context) ([]models.Problem, error)

// Coordinator serializes searches from one view with last-request-wins
// semantics: issuing a search cancels the one in flight, and a result that is
// no longer current is discarded instead of being applied out of order.
type Coordinator struct {
	engine Engine
	load   Loader

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewCoordinator creates a coordinator running engine over whatever load returns
func NewCoordinator(engine Engine, load Loader) *Coordinator {
	return &Coordinator{engine: engine, load: load}
}

// Search loads the current problem set and runs the query over it
func (c *Coordinator) Search(ctx context.Context, spec FilterSpec, key SortKey) ([]models.Problem, error) {
	ctx, gen := c.begin(ctx)
	defer c.finish(gen)

	problems, err := c.load(ctx)
	if !c.isCurrent(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	results := c.engine.Run(problems, spec, key)
	if !c.isCurrent(gen) {
		return nil, ErrSuperseded
	}
	return results, nil
}

func (c *Coordinator) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	c.cancel = cancel
	return ctx, c.generation
}

func (c *Coordinator) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation == gen && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Coordinator) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}
