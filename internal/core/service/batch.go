package service

import (
	"context"
	"tiffsrv/internal/core/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Result is implemented by per-item results of a batch operation.
type Result interface {
	Status() domain.Outcome
}

// ApplyBatch runs op for every name, at most limit at a time, and returns the results in input
// order. The aggregate is OK only when every item is OK. Items never abort the batch.
func ApplyBatch[R Result](ctx context.Context, names []string, limit int,
	op func(ctx context.Context, name string) R) ([]R, domain.Outcome) {
	if limit < 1 {
		limit = 1
	}

	results := make([]R, len(names))

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, name := range names {
		g.Go(func() error {
			results[i] = op(ctx, name)
			return nil
		})
	}

	_ = g.Wait()

	status := domain.OutcomeOK
	failed := 0
	for _, r := range results {
		if r.Status() != domain.OutcomeOK {
			status = domain.OutcomeFailed
			failed++
		}
	}

	log.Debug().Int("items", len(names)).Int("failed", failed).Msg("batch finished")

	return results, status
}
