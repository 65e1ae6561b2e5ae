package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/toko-tierprice/internal/resilience"
)

// BreakerRepository fails fast while the wrapped repository keeps erroring, so
// cart calculations keep host prices instead of queueing on a sick database.
// ErrNotFound counts as a healthy answer.
type BreakerRepository struct {
	Repo    Repository
	Breaker *resilience.Breaker
}

// FindByID implements Repository.
func (g BreakerRepository) FindByID(ctx context.Context, id string, ruleIDs []string) (*Record, error) {
	return g.call(ctx, func(ctx context.Context) (*Record, error) { return g.Repo.FindByID(ctx, id, ruleIDs) })
}

// FindByNumber implements Repository.
func (g BreakerRepository) FindByNumber(ctx context.Context, number string, ruleIDs []string) (*Record, error) {
	return g.call(ctx, func(ctx context.Context) (*Record, error) { return g.Repo.FindByNumber(ctx, number, ruleIDs) })
}

func (g BreakerRepository) call(ctx context.Context, fn func(context.Context) (*Record, error)) (*Record, error) {
	if g.Breaker == nil {
		return fn(ctx)
	}
	if !g.Breaker.Allow(ctx) {
		return nil, fmt.Errorf("catalog: %w", resilience.ErrOpenCircuit)
	}
	rec, err := fn(ctx)
	g.Breaker.Report(ctx, err == nil || errors.Is(err, ErrNotFound))
	return rec, err
}
