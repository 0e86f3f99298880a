package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for video jobs. Every mutation is a single
// statement keyed by job id; the status-changing ones only apply while the row
// is still processing and report whether a row was changed.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetForOwner(ctx context.Context, jobID, ownerID string) (*Job, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Job, error)
	ListProcessing(ctx context.Context, limit int) ([]string, error)
	ResultURI(ctx context.Context, jobID, ownerID string) (string, error)

	AttachOperation(ctx context.Context, jobID, handle string) (bool, error)
	AdvanceProgress(ctx context.Context, jobID string, progress int) (stored int, changed bool, err error)
	Complete(ctx context.Context, jobID, resultURI string, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, jobID, reason string) (bool, error)

	Delete(ctx context.Context, jobID, ownerID string) (bool, error)
	DeleteLatest(ctx context.Context, ownerID string) (string, error)
}

// UserRepository exposes the account fields the video service reads.
type UserRepository interface {
	Credits(ctx context.Context, userID string) (int, error)
}
