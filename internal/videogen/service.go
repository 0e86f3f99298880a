// Package videogen owns the job lifecycle: submission, reconciliation against
// the upstream long-running operation, batch reconciliation and the optional
// background poller.
package videogen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"veostudio/internal/domain"
	"veostudio/internal/providers/prompt"
	"veostudio/internal/providers/video"
)

const (
	// StaleAfter bounds how long a job may wait for an operation handle.
	StaleAfter = time.Hour
	// MaxBatchSize caps the ids handled by one ReconcileMany call.
	MaxBatchSize = 5
	// ListLimit caps the jobs returned by ListJobs.
	ListLimit = 50

	progressStep     = 2
	leaseTTL         = 30 * time.Second
	cleanupTimeout   = 5 * time.Second
	defaultModel     = "veo-3.1-generate-preview"
	defaultFrameSize = "1280x720"
)

// TokenSource yields a fresh bearer token per call.
type TokenSource interface {
	AcquireToken(ctx context.Context) (string, error)
}

// VideoClient is the upstream generation API.
type VideoClient interface {
	Submit(ctx context.Context, token, model string, req video.SubmitRequest) (string, error)
	Poll(ctx context.Context, token, model, handle string) (*video.Operation, error)
}

// Lease serialises reconciliation of one job across processes. ok is false
// when another holder owns the key.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type Options struct {
	Jobs         domain.JobRepository
	Tokens       TokenSource
	Videos       VideoClient
	Enricher     prompt.Enricher
	Lease        Lease
	DefaultModel string
	Logger       zerolog.Logger

	Now   func() time.Time
	NewID func() string
}

// Service implements the job operations exposed over HTTP and used by the
// poller.
type Service struct {
	jobs         domain.JobRepository
	tokens       TokenSource
	videos       VideoClient
	enricher     prompt.Enricher
	lease        Lease
	defaultModel string
	logger       zerolog.Logger
	now          func() time.Time
	newID        func() string

	flight singleflight.Group
}

func NewService(opts Options) (*Service, error) {
	if opts.Jobs == nil {
		return nil, errors.New("videogen: job repository is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("videogen: token source is required")
	}
	if opts.Videos == nil {
		return nil, errors.New("videogen: video client is required")
	}
	enricher := opts.Enricher
	if enricher == nil {
		enricher = prompt.NewPassthrough()
	}
	model := opts.DefaultModel
	if model == "" {
		model = defaultModel
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return "vid_" + uuid.NewString() }
	}
	return &Service{
		jobs:         opts.Jobs,
		tokens:       opts.Tokens,
		videos:       opts.Videos,
		enricher:     enricher,
		lease:        opts.Lease,
		defaultModel: model,
		logger:       opts.Logger,
		now:          now,
		newID:        newID,
	}, nil
}

// ListJobs returns the owner's newest jobs without their result payload.
func (s *Service) ListJobs(ctx context.Context, ownerID string) ([]domain.Job, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.jobs.ListByOwner(ctx, ownerID, ListLimit)
}

// GetJob returns one job owned by ownerID.
func (s *Service) GetJob(ctx context.Context, ownerID, jobID string) (*domain.Job, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.jobs.GetForOwner(ctx, jobID, ownerID)
}

// ResultURI returns the stored artifact reference, "" while there is none.
func (s *Service) ResultURI(ctx context.Context, ownerID, jobID string) (string, error) {
	if ownerID == "" {
		return "", domain.ErrUnauthorized
	}
	return s.jobs.ResultURI(ctx, jobID, ownerID)
}

// DeleteJob removes a job owned by ownerID. The upstream operation, if any,
// keeps running; it is simply no longer tracked.
func (s *Service) DeleteJob(ctx context.Context, ownerID, jobID string) error {
	if ownerID == "" {
		return domain.ErrUnauthorized
	}
	ok, err := s.jobs.Delete(ctx, jobID, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteLatest removes the owner's most recent job and returns its id.
func (s *Service) DeleteLatest(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", domain.ErrUnauthorized
	}
	return s.jobs.DeleteLatest(ctx, ownerID)
}

func (s *Service) markFailed(ctx context.Context, jobID, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if _, err := s.jobs.MarkFailed(ctx, jobID, reason); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("videogen: mark failed")
	}
}
