package queue

import "context"

// Backend executes jobs for a single queue name. The manager selects the
// implementation according to the health monitor's mode.
type Backend interface {
	// Mode reports which strategy the backend implements.
	Mode() Mode
	// Enqueue hands the job to the backend. It must not block on execution.
	Enqueue(ctx context.Context, job *Job) error
	// Consume registers a handler. Concurrency is fixed by the first call.
	Consume(concurrency int, handler HandlerFunc) error
	// Jobs lists jobs by status, where the backend keeps such a list.
	Jobs(ctx context.Context, status JobStatus) ([]*Job, error)
	// Job looks up a single job by ID.
	Job(ctx context.Context, id string) (*Job, error)
	// Close releases the backend. Jobs held by a broker stay there.
	Close() error
}

// Broker is the external message store behind the distributed backend.
// Every error returned by a Broker is treated as connection-class.
type Broker interface {
	// Ping verifies the broker is reachable.
	Ping(ctx context.Context) error
	// Push stores the job and schedules it at job.RunAt().
	Push(ctx context.Context, job *Job) error
	// Reserve removes and returns the next due job of the queue, or ErrNoJob.
	Reserve(ctx context.Context, queue QueueName) (*Job, error)
	// Update persists the job's current state without rescheduling it.
	Update(ctx context.Context, job *Job) error
	// Remove deletes the job and all its index entries.
	Remove(ctx context.Context, queue QueueName, id string) error
	// Get loads a job, returning ErrJobNotFound if it does not exist.
	Get(ctx context.Context, queue QueueName, id string) (*Job, error)
	// List returns jobs of the queue with the given status.
	List(ctx context.Context, queue QueueName, status JobStatus) ([]*Job, error)
	// Close releases the broker connection.
	Close() error
}

// Connector opens a new broker connection. It is called once per distributed
// queue and once per health probe.
type Connector func(ctx context.Context) (Broker, error)
