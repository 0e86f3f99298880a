package videogen

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"veostudio/internal/domain"
	"veostudio/internal/providers/prompt"
	"veostudio/internal/providers/video"
)

// memoryJobs is an in-memory domain.JobRepository with the same conditional
// write semantics as the Postgres implementation.
type memoryJobs struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	getErr  map[string]error
	failErr error
}

func newMemoryJobs(jobs ...*domain.Job) *memoryJobs {
	m := &memoryJobs{jobs: map[string]*domain.Job{}, getErr: map[string]error{}}
	for _, j := range jobs {
		m.jobs[j.ID] = j.Clone()
	}
	return m
}

func (m *memoryJobs) snapshot(id string) *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Clone()
}

func (m *memoryJobs) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrDuplicateOperation
	}
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *memoryJobs) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[id]; err != nil {
		return nil, err
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (m *memoryJobs) GetForOwner(ctx context.Context, id, owner string) (*domain.Job, error) {
	j, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (m *memoryJobs) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.OwnerID == owner {
			c := *j.Clone()
			c.HasResult = c.ResultURI != ""
			c.ResultURI = ""
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryJobs) ListProcessing(ctx context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*domain.Job
	for _, j := range m.jobs {
		if j.Status == domain.JobStatusProcessing {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) })
	var ids []string
	for _, j := range jobs {
		if len(ids) == limit {
			break
		}
		ids = append(ids, j.ID)
	}
	return ids, nil
}

func (m *memoryJobs) ResultURI(ctx context.Context, id, owner string) (string, error) {
	j, err := m.GetForOwner(ctx, id, owner)
	if err != nil {
		return "", err
	}
	return j.ResultURI, nil
}

func (m *memoryJobs) update(id string, fn func(j *domain.Job) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return false, nil
	}
	return fn(j), nil
}

func (m *memoryJobs) AttachOperation(ctx context.Context, id, handle string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return m.update(id, func(j *domain.Job) bool {
		if j.OperationHandle != "" {
			return false
		}
		j.OperationHandle = handle
		return true
	})
}

func (m *memoryJobs) AdvanceProgress(ctx context.Context, id string, progress int) (int, bool, error) {
	var stored int
	changed, err := m.update(id, func(j *domain.Job) bool {
		if j.Status != domain.JobStatusProcessing {
			return false
		}
		j.Progress = max(j.Progress, progress)
		stored = j.Progress
		return true
	})
	return stored, changed, err
}

func (m *memoryJobs) Complete(ctx context.Context, id, uri string, at time.Time) (bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		if j.Status != domain.JobStatusProcessing {
			return false
		}
		j.Status = domain.JobStatusCompleted
		j.Progress = domain.CompletedProgress
		j.ResultURI = uri
		j.CompletedAt = &at
		return true
	})
}

func (m *memoryJobs) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	if m.failErr != nil {
		return false, m.failErr
	}
	return m.update(id, func(j *domain.Job) bool {
		if j.Status != domain.JobStatusProcessing {
			return false
		}
		j.Status = domain.JobStatusFailed
		j.ErrorMessage = reason
		return true
	})
}

func (m *memoryJobs) Delete(ctx context.Context, id, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.OwnerID != owner {
		return false, nil
	}
	delete(m.jobs, id)
	return true, nil
}

func (m *memoryJobs) DeleteLatest(ctx context.Context, owner string) (string, error) {
	jobs, _ := m.ListByOwner(ctx, owner, 1)
	if len(jobs) == 0 {
		return "", domain.ErrNotFound
	}
	_, _ = m.Delete(ctx, jobs[0].ID, owner)
	return jobs[0].ID, nil
}

type fakeTokens struct {
	mu    sync.Mutex
	token string
	err   error
	calls int
}

func (f *fakeTokens) AcquireToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type pollResult struct {
	op  *video.Operation
	err error
}

// fakeVideos answers Submit with a fixed handle and Poll from a per-handle script.
type fakeVideos struct {
	mu        sync.Mutex
	handle    string
	submitErr error
	submitted []video.SubmitRequest
	polls     map[string][]pollResult
	pollCalls map[string]int

	// onSubmit runs after the call is recorded, outside the lock.
	onSubmit func()
}

func newFakeVideos(handle string) *fakeVideos {
	return &fakeVideos{handle: handle, polls: map[string][]pollResult{}, pollCalls: map[string]int{}}
}

func (f *fakeVideos) script(handle string, results ...pollResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[handle] = append(f.polls[handle], results...)
}

func (f *fakeVideos) Submit(ctx context.Context, token, model string, req video.SubmitRequest) (string, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, req)
	handle, err, hook := f.handle, f.submitErr, f.onSubmit
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return handle, nil
}

func (f *fakeVideos) Poll(ctx context.Context, token, model, handle string) (*video.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls[handle]++
	queue := f.polls[handle]
	if len(queue) == 0 {
		return nil, errors.New("no scripted poll result")
	}
	next := queue[0]
	if len(queue) > 1 {
		f.polls[handle] = queue[1:]
	}
	return next.op, next.err
}

func (f *fakeVideos) calls(handle string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls[handle]
}

type fakeEnricher struct {
	result func(prompt.Request) prompt.Result
	got    []prompt.Request
}

func (f *fakeEnricher) Enrich(ctx context.Context, req prompt.Request) prompt.Result {
	f.got = append(f.got, req)
	if f.result != nil {
		return f.result(req)
	}
	return prompt.Result{Prompt: req.Prompt}
}

type fakeLease struct {
	ok       bool
	err      error
	released int
	mu       sync.Mutex
}

func (f *fakeLease) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if f.err != nil || !f.ok {
		return nil, f.ok, f.err
	}
	return func() {
		f.mu.Lock()
		f.released++
		f.mu.Unlock()
	}, true, nil
}
