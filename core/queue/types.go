package queue

import (
	"slices"
	"time"
)

// QueueName identifies one of the fixed set of queues known to the system.
type QueueName string

const (
	QueueEmail              QueueName = "email"
	QueueDocumentProcessing QueueName = "document-processing"
	QueueReportGeneration   QueueName = "report-generation"
	QueueDataImport         QueueName = "data-import"
	QueueNotifications      QueueName = "notifications"
)

var queueNames = []QueueName{
	QueueEmail,
	QueueDocumentProcessing,
	QueueReportGeneration,
	QueueDataImport,
	QueueNotifications,
}

// QueueNames returns every queue name in declaration order.
func QueueNames() []QueueName {
	return slices.Clone(queueNames)
}

// Valid reports whether the name belongs to the closed queue set.
func (q QueueName) Valid() bool {
	return slices.Contains(queueNames, q)
}

func (q QueueName) String() string {
	return string(q)
}

// JobStatus tracks the lifecycle state of a job.
type JobStatus string

const (
	StatusWaiting   JobStatus = "waiting"
	StatusActive    JobStatus = "active"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusDelayed   JobStatus = "delayed"
)

var jobStatuses = []JobStatus{StatusWaiting, StatusActive, StatusCompleted, StatusFailed, StatusDelayed}

// JobStatuses returns every job status in lifecycle order.
func JobStatuses() []JobStatus {
	return slices.Clone(jobStatuses)
}

// Valid reports whether the status is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	return slices.Contains(jobStatuses, s)
}

// Mode is the execution mode of a backend, and of the process as a whole.
type Mode string

const (
	ModeDistributed Mode = "distributed"
	ModeLocal       Mode = "local"
)

// BackoffType selects how the delay between retry attempts grows.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
)

// Backoff is the delay policy applied between retry attempts.
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// DelayFor returns the delay before the given attempt number (1-based).
// The first attempt is never delayed. For exponential backoff the delay
// before attempt n is Delay * 2^(n-2).
func (b Backoff) DelayFor(attempt int) time.Duration {
	if attempt <= 1 || b.Delay <= 0 {
		return 0
	}

	switch b.Type {
	case BackoffExponential:
		shift := attempt - 2
		// Attempts are capped at MaxAttempts, but guard the shift anyway.
		if shift > 30 {
			shift = 30
		}
		return b.Delay * time.Duration(1<<shift)
	default:
		return b.Delay
	}
}

func (b Backoff) valid() bool {
	return (b.Type == BackoffFixed || b.Type == BackoffExponential) && b.Delay >= 0
}
