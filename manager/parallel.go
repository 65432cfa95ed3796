package manager

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is an independent unit of work for Parallel.
type Task func(ctx context.Context) (any, error)

// Parallel runs tasks and returns their results in submission order.
// In concurrent mode tasks run on their own goroutines and the first error
// cancels the context passed to the rest. In sequential mode, or when
// called from inside an operation, tasks run one after another and stop
// at the first error.
func (m *Manager) Parallel(ctx context.Context, tasks ...Task) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]any, len(tasks))

	if m.actor == nil || m.actor.inside(ctx) {
		for i, task := range tasks {
			value, err := task(ctx)
			if err != nil {
				return results, err
			}
			results[i] = value
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			value, err := task(gctx)
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
