package handlers

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"veostudio/internal/domain"
	"veostudio/internal/videogen"
)

type fakeVideos struct {
	submitted    *videogen.SubmitInput
	submitJob    *domain.Job
	submitErr    error
	jobs         map[string]*domain.Job
	resultURIs   map[string]string
	reconcileErr error
	syncedIDs    []string
	deleted      []string
}

func newFakeVideos() *fakeVideos {
	return &fakeVideos{jobs: map[string]*domain.Job{}, resultURIs: map[string]string{}}
}

func (f *fakeVideos) lookup(ownerID, jobID string) (*domain.Job, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	job, ok := f.jobs[jobID]
	if !ok || job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (f *fakeVideos) Submit(ctx context.Context, in videogen.SubmitInput) (*domain.Job, error) {
	f.submitted = &in
	return f.submitJob, f.submitErr
}

func (f *fakeVideos) ListJobs(ctx context.Context, ownerID string) ([]domain.Job, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	var out []domain.Job
	for _, job := range f.jobs {
		if job.OwnerID == ownerID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeVideos) GetJob(ctx context.Context, ownerID, jobID string) (*domain.Job, error) {
	return f.lookup(ownerID, jobID)
}

func (f *fakeVideos) ResultURI(ctx context.Context, ownerID, jobID string) (string, error) {
	if _, err := f.lookup(ownerID, jobID); err != nil {
		return "", err
	}
	return f.resultURIs[jobID], nil
}

func (f *fakeVideos) DeleteJob(ctx context.Context, ownerID, jobID string) error {
	if _, err := f.lookup(ownerID, jobID); err != nil {
		return err
	}
	delete(f.jobs, jobID)
	f.deleted = append(f.deleted, jobID)
	return nil
}

func (f *fakeVideos) DeleteLatest(ctx context.Context, ownerID string) (string, error) {
	return "", domain.ErrNotFound
}

func (f *fakeVideos) ReconcileOwned(ctx context.Context, ownerID, jobID string) (*domain.Job, error) {
	job, err := f.lookup(ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if f.reconcileErr != nil {
		return nil, f.reconcileErr
	}
	return job, nil
}

func (f *fakeVideos) ReconcileManyOwned(ctx context.Context, ownerID string, jobIDs []string) []*domain.Job {
	f.syncedIDs = jobIDs
	var out []*domain.Job
	for _, id := range jobIDs {
		if job, err := f.lookup(ownerID, id); err == nil {
			out = append(out, job)
		}
	}
	return out
}

type fakeUsers struct {
	credits map[string]int
	err     error
}

func (f fakeUsers) Credits(ctx context.Context, userID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	c, ok := f.credits[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return c, nil
}

func newTestApp(videos *fakeVideos) *App {
	return NewApp(videos, fakeUsers{credits: map[string]int{"user-1": 3}}, zerolog.Nop())
}

var errBoom = errors.New("boom")
