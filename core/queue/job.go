package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Job is an immutable payload plus the execution state owned by a backend.
// Handlers may only report progress; everything else is mutated by the backend.
type Job struct {
	ID        string          `json:"id"`
	Queue     QueueName       `json:"queue"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Options   JobOptions      `json:"options"`
	CreatedAt time.Time       `json:"created_at"`

	mu           sync.RWMutex
	status       JobStatus
	attemptsMade int
	progress     int
	runAt        time.Time
	startedAt    *time.Time
	finishedAt   *time.Time
	failedReason string

	// local jobs are never retried, so every execution is final.
	local bool

	// onProgress persists progress reports; set by the distributed backend.
	onProgress func(*Job)
}

// NewJob builds a waiting job. The backend assigns the ID on enqueue if empty.
func NewJob(queue QueueName, payload json.RawMessage, opts JobOptions) *Job {
	now := time.Now()
	return &Job{
		Queue:     queue,
		Payload:   payload,
		Options:   opts,
		CreatedAt: now,
		status:    StatusWaiting,
		runAt:     now,
	}
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// ReportProgress records handler progress. Values are clamped to [0,100] and
// never move backwards within one execution.
func (j *Job) ReportProgress(n int) {
	n = max(0, min(100, n))

	j.mu.Lock()
	if n <= j.progress {
		j.mu.Unlock()
		return
	}
	j.progress = n
	hook := j.onProgress
	j.mu.Unlock()

	if hook != nil {
		hook(j)
	}
}

// Status returns the current lifecycle state.
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// AttemptsMade returns the number of executions started so far.
func (j *Job) AttemptsMade() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.attemptsMade
}

// Progress returns the last reported progress value.
func (j *Job) Progress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// FailedReason returns the error message of the last failed execution.
func (j *Job) FailedReason() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.failedReason
}

// RunAt returns the earliest time the job may execute.
func (j *Job) RunAt() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.runAt
}

// StartedAt returns when the latest execution started, if any.
func (j *Job) StartedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return copyTime(j.startedAt)
}

// FinishedAt returns when the job reached a terminal state, if it has.
func (j *Job) FinishedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return copyTime(j.finishedAt)
}

// FinalAttempt reports whether a failure of the current execution is terminal.
func (j *Job) FinalAttempt() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.local || j.attemptsMade >= j.Options.Attempts
}

// Local reports whether the job was handed to a local fallback backend.
// Such jobs are not visible through GetJob or ListJobs; the handle returned by
// AddJob is the only way to follow them.
func (j *Job) Local() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.local
}

// Done reports whether the job reached completed or failed.
func (j *Job) Done() bool {
	s := j.Status()
	return s == StatusCompleted || s == StatusFailed
}

func (j *Job) markActive(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusActive
	j.attemptsMade++
	j.progress = 0
	j.startedAt = &now
}

func (j *Job) markCompleted(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusCompleted
	j.progress = 100
	j.failedReason = ""
	j.finishedAt = &now
}

func (j *Job) markFailed(err error, now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusFailed
	j.failedReason = errMessage(err)
	j.finishedAt = &now
}

func (j *Job) markDelayed(err error, runAt time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusDelayed
	j.failedReason = errMessage(err)
	j.runAt = runAt
}

func (j *Job) markLocal() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.local = true
}

func (j *Job) setProgressHook(fn func(*Job)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onProgress = fn
}

// jobRecord is the wire form of a Job.
type jobRecord struct {
	ID           string          `json:"id"`
	Queue        QueueName       `json:"queue"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Options      JobOptions      `json:"options"`
	CreatedAt    time.Time       `json:"created_at"`
	Status       JobStatus       `json:"status"`
	AttemptsMade int             `json:"attempts_made"`
	Progress     int             `json:"progress"`
	RunAt        time.Time       `json:"run_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	FailedReason string          `json:"failed_reason,omitempty"`
}

// MarshalJSON encodes the job including its execution state.
func (j *Job) MarshalJSON() ([]byte, error) {
	j.mu.RLock()
	rec := jobRecord{
		ID:           j.ID,
		Queue:        j.Queue,
		Payload:      j.Payload,
		Options:      j.Options,
		CreatedAt:    j.CreatedAt,
		Status:       j.status,
		AttemptsMade: j.attemptsMade,
		Progress:     j.progress,
		RunAt:        j.runAt,
		StartedAt:    j.startedAt,
		FinishedAt:   j.finishedAt,
		FailedReason: j.failedReason,
	}
	j.mu.RUnlock()
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a job previously encoded with MarshalJSON.
func (j *Job) UnmarshalJSON(data []byte) error {
	var rec jobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.ID = rec.ID
	j.Queue = rec.Queue
	j.Payload = rec.Payload
	j.Options = rec.Options
	j.CreatedAt = rec.CreatedAt
	j.status = rec.Status
	j.attemptsMade = rec.AttemptsMade
	j.progress = rec.Progress
	j.runAt = rec.RunAt
	j.startedAt = rec.StartedAt
	j.finishedAt = rec.FinishedAt
	j.failedReason = rec.FailedReason
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}
