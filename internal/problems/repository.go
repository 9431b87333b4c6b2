// Package problems holds the canonical, read-only set of discovered problems
// and the loaders that bring a dataset in at startup.
package problems

import (
	"context"
	"sync/atomic"

	"github.com/problemradar/problem-radar/internal/models"
)

// Repository exposes read access to the problem dataset
type Repository interface {
	GetAll() []models.Problem
	GetByID(id string) (models.Problem, bool)
	GetRelated(problem models.Problem, limit int) []models.Problem
	Metrics() models.DashboardMetrics
}

// MemoryRepository is an immutable in-memory dataset
type MemoryRepository struct {
	problems []models.Problem
	index    map[string]int
	metrics  models.DashboardMetrics
}

// Ensure MemoryRepository implements Repository
var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository copies problems, keeping their order as the default
// ordering. Records are assumed to be validated by the loader.
func NewMemoryRepository(problems []models.Problem, metrics models.DashboardMetrics) *MemoryRepository {
	repo := &MemoryRepository{
		problems: make([]models.Problem, len(problems)),
		index:    make(map[string]int, len(problems)),
		metrics:  metrics,
	}
	copy(repo.problems, problems)
	for i, p := range repo.problems {
		if _, dup := repo.index[p.ID]; !dup {
			repo.index[p.ID] = i
		}
	}
	return repo
}

// GetAll returns every problem in insertion order
func (r *MemoryRepository) GetAll() []models.Problem {
	out := make([]models.Problem, len(r.problems))
	copy(out, r.problems)
	return out
}

// GetByID looks a problem up by id. A miss is reported through the boolean,
// never as an error.
func (r *MemoryRepository) GetByID(id string) (models.Problem, bool) {
	i, ok := r.index[id]
	if !ok {
		return models.Problem{}, false
	}
	return r.problems[i], true
}

// GetRelated returns up to limit problems sharing problem's category,
// excluding problem itself, in repository order.
func (r *MemoryRepository) GetRelated(problem models.Problem, limit int) []models.Problem {
	related := make([]models.Problem, 0)
	if limit <= 0 {
		return related
	}
	for _, p := range r.problems {
		if p.ID == problem.ID || p.Category != problem.Category {
			continue
		}
		related = append(related, p)
		if len(related) == limit {
			break
		}
	}
	return related
}

// Metrics returns the dashboard aggregate loaded with the dataset
func (r *MemoryRepository) Metrics() models.DashboardMetrics {
	return r.metrics
}

// Len returns the number of problems
func (r *MemoryRepository) Len() int {
	return len(r.problems)
}

// Catalog is a Repository whose dataset can be replaced wholesale. Each
// dataset stays immutable; readers see either the old or the new one.
type Catalog struct {
	current atomic.Pointer[MemoryRepository]
}

// Ensure Catalog implements Repository
var _ Repository = (*Catalog)(nil)

// NewCatalog creates a catalog serving repo
func NewCatalog(repo *MemoryRepository) *Catalog {
	c := &Catalog{}
	c.current.Store(repo)
	return c
}

// Swap replaces the served dataset
func (c *Catalog) Swap(repo *MemoryRepository) {
	c.current.Store(repo)
}

// Current returns the dataset being served
func (c *Catalog) Current() *MemoryRepository {
	return c.current.Load()
}

func (c *Catalog) GetAll() []models.Problem { return c.Current().GetAll() }

func (c *Catalog) GetByID(id string) (models.Problem, bool) { return c.Current().GetByID(id) }

func (c *Catalog) GetRelated(problem models.Problem, limit int) []models.Problem {
	return c.Current().GetRelated(problem, limit)
}

func (c *Catalog) Metrics() models.DashboardMetrics { return c.Current().Metrics() }

// Load adapts the catalog to a query.Loader
func (c *Catalog) Load(ctx context.Context) ([]models.Problem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.GetAll(), nil
}
