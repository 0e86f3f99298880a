package videogen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"veostudio/internal/domain"
	"veostudio/internal/providers/video"
)

type action int

const (
	actionNone action = iota
	actionProgress
	actionComplete
	actionFail
)

type decision struct {
	action    action
	progress  int
	resultURI string
	reason    string
}

// gRPC codes reported by the operation that mean "try again later".
const (
	codeDeadlineExceeded  = 4
	codeResourceExhausted = 8
	codeUnavailable       = 14
)

func isTransient(e *video.OperationError) bool {
	switch e.Code {
	case codeDeadlineExceeded, codeResourceExhausted, codeUnavailable:
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "high load")
}

// decidePoll maps one poll result onto the next transition of a processing job.
func decidePoll(job *domain.Job, op *video.Operation) decision {
	if op.Error != nil {
		if !op.Done && isTransient(op.Error) {
			return decision{action: actionNone}
		}
		reason := strings.TrimSpace(op.Error.Message)
		if reason == "" {
			reason = fmt.Sprintf("operation failed with code %d", op.Error.Code)
		}
		return decision{action: actionFail, reason: reason}
	}
	if op.Done {
		uri := resultURI(op.FirstVideo())
		if uri == "" {
			return decision{action: actionFail, reason: "operation finished without a video"}
		}
		return decision{action: actionComplete, resultURI: uri}
	}
	return decision{action: actionProgress, progress: nextProgress(job.Progress)}
}

func nextProgress(current int) int {
	if current <= 0 {
		current = domain.InitialProgress
	}
	if current >= domain.MaxPendingProgress {
		return current
	}
	return min(domain.MaxPendingProgress, current+progressStep)
}

// resultURI returns a data URI for inline bytes or the remote reference.
func resultURI(v *video.Video) string {
	if v == nil {
		return ""
	}
	if v.BytesBase64Encoded != "" {
		mimeType := strings.TrimSpace(v.MimeType)
		if mimeType == "" {
			mimeType = "video/mp4"
		}
		return "data:" + mimeType + ";base64," + v.BytesBase64Encoded
	}
	return strings.TrimSpace(v.GcsURI)
}

// transientPollStatus reports HTTP failures of the poll endpoint that should
// be retried on the next cycle instead of failing the job.
func transientPollStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

// Reconcile brings one job up to date with its upstream operation and returns
// the resulting state. Jobs that are not processing are returned as stored.
// A nil job means the state could not be determined; the stored record is
// left untouched for the next attempt.
func (s *Service) Reconcile(ctx context.Context, jobID string) (*domain.Job, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(jobID, func() (any, error) {
		return s.reconcile(ctx, jobID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Job).Clone(), nil
}

// ReconcileOwned is Reconcile restricted to jobs owned by ownerID.
func (s *Service) ReconcileOwned(ctx context.Context, ownerID, jobID string) (*domain.Job, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	job, err := s.jobs.GetForOwner(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusProcessing {
		return job, nil
	}
	return s.Reconcile(ctx, jobID)
}

func (s *Service) reconcile(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("videogen: load job")
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.Status != domain.JobStatusProcessing {
		return job, nil
	}
	log := s.logger.With().Str("job_id", job.ID).Str("model", job.Model).Logger()

	if !job.HasOperation() {
		if s.now().Sub(job.CreatedAt) <= StaleAfter {
			return job, nil
		}
		log.Info().Time("created_at", job.CreatedAt).Msg("videogen: job never received an operation handle")
		return s.apply(ctx, job, decision{action: actionFail, reason: "no operation handle after one hour"})
	}

	if s.lease != nil {
		release, ok, err := s.lease.Acquire(ctx, "reconcile:"+job.ID, leaseTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("videogen: lease unavailable, reconciling without it")
		case !ok:
			return job, nil
		default:
			defer release()
		}
	}

	token, err := s.tokens.AcquireToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("videogen: no token, retrying next poll")
		return job, nil
	}

	op, err := s.videos.Poll(ctx, token, job.Model, job.OperationHandle)
	if err != nil {
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) && !transientPollStatus(upstream.StatusCode) {
			log.Warn().Err(err).Str("operation", job.OperationHandle).Msg("videogen: operation rejected")
			return s.apply(ctx, job, decision{action: actionFail, reason: upstream.Error()})
		}
		log.Warn().Err(err).Str("operation", job.OperationHandle).Msg("videogen: poll failed, retrying next poll")
		return job, nil
	}

	d := decidePoll(job, op)
	if d.action == actionNone && op.Error != nil {
		log.Warn().Int("code", op.Error.Code).Str("message", op.Error.Message).Msg("videogen: transient upstream error")
	}
	return s.apply(ctx, job, d)
}

// apply persists d. Writes are conditional on the job still processing; when
// a write loses to a concurrent reconciler the stored row is returned instead.
func (s *Service) apply(ctx context.Context, job *domain.Job, d decision) (*domain.Job, error) {
	var (
		changed bool
		err     error
		next    = job.Clone()
	)
	switch d.action {
	case actionNone:
		return job, nil
	case actionProgress:
		if d.progress == job.Progress {
			return job, nil
		}
		next.Progress, changed, err = s.jobs.AdvanceProgress(ctx, job.ID, d.progress)
	case actionComplete:
		completedAt := s.now().UTC()
		changed, err = s.jobs.Complete(ctx, job.ID, d.resultURI, completedAt)
		next.Status = domain.JobStatusCompleted
		next.Progress = domain.CompletedProgress
		next.ResultURI = d.resultURI
		next.HasResult = true
		next.CompletedAt = &completedAt
	case actionFail:
		changed, err = s.jobs.MarkFailed(ctx, job.ID, d.reason)
		next.Status = domain.JobStatusFailed
		next.ErrorMessage = d.reason
	}
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("videogen: persist reconcile result")
		return nil, fmt.Errorf("persist job: %w", err)
	}
	if !changed {
		stored, err := s.jobs.GetByID(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("reload job: %w", err)
		}
		return stored, nil
	}
	if next.Status.IsTerminal() {
		s.logger.Info().Str("job_id", job.ID).Str("status", string(next.Status)).Str("reason", d.reason).Msg("videogen: job finished")
	}
	return next, nil
}

// ReconcileMany reconciles up to MaxBatchSize ids concurrently; extra ids are
// ignored. One failing reconciliation never affects the others. Results keep
// input order and omit ids that could not be reconciled.
func (s *Service) ReconcileMany(ctx context.Context, jobIDs []string) []*domain.Job {
	return s.reconcileBatch(ctx, jobIDs, s.Reconcile)
}

// ReconcileManyOwned is ReconcileMany restricted to jobs owned by ownerID.
func (s *Service) ReconcileManyOwned(ctx context.Context, ownerID string, jobIDs []string) []*domain.Job {
	if ownerID == "" {
		return nil
	}
	return s.reconcileBatch(ctx, jobIDs, func(ctx context.Context, id string) (*domain.Job, error) {
		return s.ReconcileOwned(ctx, ownerID, id)
	})
}

