package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"veostudio/internal/domain"
	"veostudio/internal/infra"
	"veostudio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on the videos table.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record. Ids are never reused, so a unique
// violation is reported as domain.ErrDuplicateOperation.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertVideoJob,
		job.ID,
		job.OwnerID,
		job.Prompt,
		job.Model,
		job.DurationSeconds,
		job.FrameSize,
		string(job.Status),
		job.Progress,
		job.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.ErrDuplicateOperation
	}
	return err
}

// GetByID fetches a job regardless of owner. Used by reconciliation only.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectVideoByID, jobID))
}

// GetForOwner fetches a job owned by ownerID.
func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectVideoForOwner, jobID, ownerID))
}

// ListByOwner returns the newest jobs first without their result payload.
func (r *JobRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListVideosByOwner, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var (
			job    domain.Job
			status string
		)
		if err := rows.Scan(
			&job.ID,
			&job.OwnerID,
			&job.Prompt,
			&job.Model,
			&job.DurationSeconds,
			&job.FrameSize,
			&status,
			&job.Progress,
			&job.OperationHandle,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.CompletedAt,
			&job.HasResult,
		); err != nil {
			return nil, err
		}
		job.Status = domain.JobStatus(status)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListProcessing returns ids of jobs still processing, oldest first.
func (r *JobRepositoryPG) ListProcessing(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProcessingVideos, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResultURI returns the stored artifact reference, "" when none is stored yet.
func (r *JobRepositoryPG) ResultURI(ctx context.Context, jobID, ownerID string) (string, error) {
	var uri string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectVideoURL, jobID, ownerID).Scan(&uri); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return uri, nil
}

// AttachOperation stores the upstream handle unless one is already set.
func (r *JobRepositoryPG) AttachOperation(ctx context.Context, jobID, handle string) (bool, error) {
	return r.execAffected(ctx, sqlinline.QAttachOperation, jobID, handle)
}

// AdvanceProgress raises progress while the job is processing; it never lowers
// it. stored is the value left in the row.
func (r *JobRepositoryPG) AdvanceProgress(ctx context.Context, jobID string, progress int) (int, bool, error) {
	var stored int
	if err := r.sql.QueryRow(ctx, sqlinline.QAdvanceProgress, jobID, progress).Scan(&stored); err != nil {
		if infra.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return stored, true, nil
}

// Complete moves a processing job to completed.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID, resultURI string, completedAt time.Time) (bool, error) {
	return r.execAffected(ctx, sqlinline.QCompleteVideo, jobID, resultURI, completedAt)
}

// MarkFailed moves a processing job to failed.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, reason string) (bool, error) {
	return r.execAffected(ctx, sqlinline.QFailVideo, jobID, reason)
}

// Delete removes a job owned by ownerID.
func (r *JobRepositoryPG) Delete(ctx context.Context, jobID, ownerID string) (bool, error) {
	return r.execAffected(ctx, sqlinline.QDeleteVideo, jobID, ownerID)
}

// DeleteLatest removes the owner's most recent job and returns its id.
func (r *JobRepositoryPG) DeleteLatest(ctx context.Context, ownerID string) (string, error) {
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QDeleteLatestVideo, ownerID).Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *JobRepositoryPG) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Prompt,
		&job.Model,
		&job.DurationSeconds,
		&job.FrameSize,
		&status,
		&job.Progress,
		&job.OperationHandle,
		&job.ResultURI,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	job.HasResult = job.ResultURI != ""
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
