package videogen

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"veostudio/internal/domain"
)

type reconcileFunc func(ctx context.Context, jobID string) (*domain.Job, error)

func (s *Service) reconcileBatch(ctx context.Context, jobIDs []string, fn reconcileFunc) []*domain.Job {
	if len(jobIDs) > MaxBatchSize {
		s.logger.Debug().Int("requested", len(jobIDs)).Int("max", MaxBatchSize).Msg("videogen: batch truncated")
		jobIDs = jobIDs[:MaxBatchSize]
	}
	results := make([]*domain.Job, len(jobIDs))

	// Plain Group: a failing member must not cancel its siblings.
	var g errgroup.Group
	for i, id := range jobIDs {
		g.Go(func() error {
			job, err := fn(ctx, id)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					s.logger.Warn().Err(err).Str("job_id", id).Msg("videogen: batch member failed")
				}
				return nil
			}
			results[i] = job
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*domain.Job, 0, len(results))
	for _, job := range results {
		if job != nil {
			out = append(out, job)
		}
	}
	return out
}
