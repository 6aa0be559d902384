// Package redis connects to Redis and implements the queue's distributed broker on it.
//
// # Configuration
//
//	type Config struct {
//		Host                 string        `env:"REDIS_HOST" envDefault:"localhost"`
//		Port                 int           `env:"REDIS_PORT" envDefault:"6379"`
//		Password             string        `env:"REDIS_PASSWORD"`
//		DB                   int           `env:"REDIS_DB" envDefault:"0"`
//		ConnectTimeout       time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"5s"`
//		MaxRetriesPerRequest int           `env:"REDIS_MAX_RETRIES_PER_REQUEST" envDefault:"3"`
//		KeyPrefix            string        `env:"REDIS_KEY_PREFIX" envDefault:"dealqueue"`
//		RetryAttempts        int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval        time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
//	}
//
// # Queue Broker
//
// Connector returns a queue.Connector. Each call opens a client and pings it
// once; retries are the circuit breaker's job:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	manager, err := queue.NewManager(redis.Connector(cfg), queue.WithLogger(log))
//
// Jobs are stored as JSON strings. Scheduling uses a sorted set scored by the
// run-at time, and a Lua script claims the earliest due job atomically, so
// several worker processes can share one queue.
//
// # Connecting Directly
//
// Connect retries with exponential backoff until the server answers a ping:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	healthSrv.AddCheck("redis", redis.Healthcheck(client))
//
// # Errors
//
//   - ErrRedisNotReady: the server did not answer within the retry budget
//   - ErrHealthcheckFailed: a health probe ping failed
//   - ErrClientNil: NewBroker received a nil client
package redis
