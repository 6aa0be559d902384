package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/dealqueue/core/queue"
)

var _ queue.Broker = (*Broker)(nil)

var statuses = []queue.JobStatus{
	queue.StatusWaiting,
	queue.StatusActive,
	queue.StatusCompleted,
	queue.StatusFailed,
	queue.StatusDelayed,
}

// reserveScript atomically pops the earliest due job id from the schedule and
// returns its payload. A job whose data was removed yields nil.
var reserveScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #ids == 0 then
	return false
end
redis.call('ZREM', KEYS[1], ids[1])
return redis.call('GET', ARGV[2] .. ids[1])
`)

// Broker implements queue.Broker on Redis.
//
// Keys per queue, all under the configured prefix:
//
//	{prefix}:{queue}:job:{id}       job JSON
//	{prefix}:{queue}:scheduled      sorted set of ids scored by run-at unix millis
//	{prefix}:{queue}:status:{name}  set of ids per job status
type Broker struct {
	client redis.UniversalClient
	prefix string
}

// NewBroker wraps an open client. Close on the broker closes the client.
func NewBroker(client redis.UniversalClient, prefix string) (*Broker, error) {
	if client == nil {
		return nil, ErrClientNil
	}
	if prefix == "" {
		prefix = "dealqueue"
	}
	return &Broker{client: client, prefix: prefix}, nil
}

// Connector returns a queue.Connector that opens a fresh client per call and
// verifies it with a single ping. Retrying is left to the queue's circuit breaker.
// When ctx itself is done, its error is returned instead of the ping failure.
func Connector(cfg Config) queue.Connector {
	return func(ctx context.Context) (queue.Broker, error) {
		client := NewClient(cfg)
		if err := ping(ctx, client, cfg.ConnectTimeout); err != nil {
			_ = client.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		return NewBroker(client, cfg.KeyPrefix)
	}
}

// Ping implements queue.Broker.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Push stores the job and schedules it at its run-at time.
func (b *Broker) Push(ctx context.Context, job *queue.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		b.storeState(ctx, pipe, job, data)
		pipe.ZAdd(ctx, b.scheduledKey(job.Queue), redis.Z{
			Score:  float64(job.RunAt().UnixMilli()),
			Member: job.ID,
		})
		return nil
	})
	return err
}

// Update stores the job's state without scheduling it.
func (b *Broker) Update(ctx context.Context, job *queue.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		b.storeState(ctx, pipe, job, data)
		return nil
	})
	return err
}

// Reserve claims the earliest due job of the queue or returns queue.ErrNoJob.
func (b *Broker) Reserve(ctx context.Context, name queue.QueueName) (*queue.Job, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	res, err := reserveScript.Run(ctx, b.client,
		[]string{b.scheduledKey(name)},
		now, b.jobKeyPrefix(name),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, queue.ErrNoJob
	}
	if err != nil {
		return nil, err
	}
	return decodeJob([]byte(res))
}

// Remove deletes the job and its index entries.
func (b *Broker) Remove(ctx context.Context, name queue.QueueName, id string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.jobKey(name, id))
		pipe.ZRem(ctx, b.scheduledKey(name), id)
		for _, s := range statuses {
			pipe.SRem(ctx, b.statusKey(name, s), id)
		}
		return nil
	})
	return err
}

// Get loads one job or returns queue.ErrJobNotFound.
func (b *Broker) Get(ctx context.Context, name queue.QueueName, id string) (*queue.Job, error) {
	data, err := b.client.Get(ctx, b.jobKey(name, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, queue.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeJob(data)
}

// List returns the jobs of the queue with the given status.
func (b *Broker) List(ctx context.Context, name queue.QueueName, status queue.JobStatus) ([]*queue.Job, error) {
	ids, err := b.client.SMembers(ctx, b.statusKey(name, status)).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*queue.Job, 0, len(ids))
	if len(ids) == 0 {
		return jobs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.jobKey(name, id)
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // removed between SMEMBERS and MGET
		}
		job, err := decodeJob([]byte(s))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Close closes the underlying client.
func (b *Broker) Close() error {
	return b.client.Close()
}

func (b *Broker) storeState(ctx context.Context, pipe redis.Pipeliner, job *queue.Job, data []byte) {
	pipe.Set(ctx, b.jobKey(job.Queue, job.ID), data, 0)
	for _, s := range statuses {
		pipe.SRem(ctx, b.statusKey(job.Queue, s), job.ID)
	}
	pipe.SAdd(ctx, b.statusKey(job.Queue, job.Status()), job.ID)
}

func (b *Broker) jobKeyPrefix(name queue.QueueName) string {
	return b.prefix + ":" + string(name) + ":job:"
}

func (b *Broker) jobKey(name queue.QueueName, id string) string {
	return b.jobKeyPrefix(name) + id
}

func (b *Broker) scheduledKey(name queue.QueueName) string {
	return b.prefix + ":" + string(name) + ":scheduled"
}

func (b *Broker) statusKey(name queue.QueueName, status queue.JobStatus) string {
	return b.prefix + ":" + string(name) + ":status:" + string(status)
}

func decodeJob(data []byte) (*queue.Job, error) {
	job := &queue.Job{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
