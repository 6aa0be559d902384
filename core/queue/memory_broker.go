package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryBrokerStats provides observability metrics for monitoring and debugging.
type MemoryBrokerStats struct {
	Jobs      int   // Jobs currently stored
	Scheduled int   // Jobs waiting or delayed
	Reserved  int64 // Total number of reservations served
}

// MemoryBroker is an in-process Broker for tests and single-process development.
// Jobs are stored serialized, so consumers never share memory with producers,
// the same way they would not with a network broker.
type MemoryBroker struct {
	mu   sync.RWMutex
	jobs map[string]*brokerEntry

	// Indexes for efficient queries
	byQueue  map[QueueName][]string
	byStatus map[JobStatus][]string

	seq      uint64
	reserved atomic.Int64
	failWith atomic.Pointer[error]
}

type brokerEntry struct {
	data      []byte
	queue     QueueName
	status    JobStatus
	runAt     time.Time
	scheduled bool
	seq       uint64
}

// NewMemoryBroker creates an empty in-memory broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		jobs:     make(map[string]*brokerEntry),
		byQueue:  make(map[QueueName][]string),
		byStatus: make(map[JobStatus][]string),
	}
}

// MemoryConnector returns a Connector that always hands out b.
// Close on the returned brokers is a no-op so the shared state survives.
func MemoryConnector(b *MemoryBroker) Connector {
	return func(ctx context.Context) (Broker, error) {
		if err := b.Ping(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// FailWith makes every subsequent operation return err, simulating an outage.
// Pass nil to restore the broker.
func (mb *MemoryBroker) FailWith(err error) {
	if err == nil {
		mb.failWith.Store(nil)
		return
	}
	mb.failWith.Store(&err)
}

func (mb *MemoryBroker) unavailable() error {
	if p := mb.failWith.Load(); p != nil {
		return *p
	}
	return nil
}

// Ping implements Broker.
func (mb *MemoryBroker) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mb.unavailable()
}

// Push stores the job and schedules it at its RunAt time.
func (mb *MemoryBroker) Push(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := mb.unavailable(); err != nil {
		return err
	}
	return mb.store(job, true)
}

// Update stores the job's state without scheduling it.
func (mb *MemoryBroker) Update(_ context.Context, job *Job) error {
	if err := mb.unavailable(); err != nil {
		return err
	}
	return mb.store(job, false)
}

func (mb *MemoryBroker) store(job *Job, schedule bool) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	key := brokerKey(job.Queue, job.ID)
	entry, exists := mb.jobs[key]
	if !exists {
		mb.seq++
		entry = &brokerEntry{queue: job.Queue, seq: mb.seq}
		mb.jobs[key] = entry
		mb.byQueue[job.Queue] = append(mb.byQueue[job.Queue], key)
	} else {
		mb.removeFromStatusIndex(key, entry.status)
	}

	entry.data = data
	entry.status = job.Status()
	if schedule {
		entry.scheduled = true
		entry.runAt = job.RunAt()
	}
	mb.byStatus[entry.status] = append(mb.byStatus[entry.status], key)

	return nil
}

// Reserve claims the scheduled job of the queue with the earliest due time.
// Within the same due time, jobs are served in insertion order.
func (mb *MemoryBroker) Reserve(_ context.Context, queue QueueName) (*Job, error) {
	if err := mb.unavailable(); err != nil {
		return nil, err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := time.Now()
	var best *brokerEntry
	for _, key := range mb.byQueue[queue] {
		entry := mb.jobs[key]
		if !entry.scheduled || entry.runAt.After(now) {
			continue
		}
		if best == nil ||
			entry.runAt.Before(best.runAt) ||
			(entry.runAt.Equal(best.runAt) && entry.seq < best.seq) {
			best = entry
		}
	}

	if best == nil {
		return nil, ErrNoJob
	}

	best.scheduled = false
	mb.reserved.Add(1)
	return decodeJob(best.data)
}

// Remove deletes the job and its index entries.
func (mb *MemoryBroker) Remove(_ context.Context, queue QueueName, id string) error {
	if err := mb.unavailable(); err != nil {
		return err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	key := brokerKey(queue, id)
	entry, exists := mb.jobs[key]
	if !exists {
		return nil
	}

	mb.removeFromStatusIndex(key, entry.status)
	mb.byQueue[queue] = slices.DeleteFunc(mb.byQueue[queue], func(k string) bool {
		return k == key
	})
	delete(mb.jobs, key)
	return nil
}

// Get implements Broker.
func (mb *MemoryBroker) Get(_ context.Context, queue QueueName, id string) (*Job, error) {
	if err := mb.unavailable(); err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	entry, exists := mb.jobs[brokerKey(queue, id)]
	if !exists {
		return nil, ErrJobNotFound
	}
	return decodeJob(entry.data)
}

// List implements Broker.
func (mb *MemoryBroker) List(_ context.Context, queue QueueName, status JobStatus) ([]*Job, error) {
	if err := mb.unavailable(); err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	jobs := make([]*Job, 0)
	for _, key := range mb.byStatus[status] {
		entry := mb.jobs[key]
		if entry.queue != queue {
			continue
		}
		job, err := decodeJob(entry.data)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Close is a no-op: the broker outlives individual connections.
func (mb *MemoryBroker) Close() error {
	return nil
}

// Stats returns current broker statistics.
func (mb *MemoryBroker) Stats() MemoryBrokerStats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	scheduled := 0
	for _, entry := range mb.jobs {
		if entry.scheduled {
			scheduled++
		}
	}
	return MemoryBrokerStats{
		Jobs:      len(mb.jobs),
		Scheduled: scheduled,
		Reserved:  mb.reserved.Load(),
	}
}

func (mb *MemoryBroker) removeFromStatusIndex(key string, status JobStatus) {
	mb.byStatus[status] = slices.DeleteFunc(mb.byStatus[status], func(k string) bool {
		return k == key
	})
}

func brokerKey(queue QueueName, id string) string {
	return string(queue) + ":" + id
}

func decodeJob(data []byte) (*Job, error) {
	job := &Job{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return job, nil
}
