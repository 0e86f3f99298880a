package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

const (
	// InitialProgress is the progress a job carries from creation until the
	// first upstream poll moves it.
	InitialProgress = 10
	// MaxPendingProgress caps progress while the upstream operation is not done.
	MaxPendingProgress = 99
	// CompletedProgress is pinned on completion.
	CompletedProgress = 100
)

// Job is the durable record of one video generation attempt.
type Job struct {
	ID              string
	OwnerID         string
	Prompt          string
	Model           string
	DurationSeconds string
	FrameSize       string
	Status          JobStatus
	Progress        int
	OperationHandle string
	ResultURI       string
	ErrorMessage    string
	CreatedAt       time.Time
	CompletedAt     *time.Time

	// HasResult is populated by list queries that omit ResultURI.
	HasResult bool
}

// HasOperation reports whether the upstream operation handle was stored.
func (j *Job) HasOperation() bool {
	return j.OperationHandle != ""
}

// Clone returns a copy that shares no pointers with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
