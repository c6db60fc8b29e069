package storage

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"api-collector/internal/common/errors"
)

func init() {
	Register(&redisFactory{})
}

type redisFactory struct{}

func (f *redisFactory) Driver() string {
	return "redis"
}

func (f *redisFactory) Create(config SinkConfig) (Sink, error) {
	if config.Addr == "" {
		return nil, errors.ConfigError("redis sink requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &redisSink{client: client}, nil
}

// redisSink appends records as JSON entries to a per-collection list
// under the records:<collection> key.
type redisSink struct {
	client *redis.Client
}

func (r *redisSink) Driver() string {
	return "redis"
}

func (r *redisSink) Store(ctx context.Context, collection string, records []map[string]interface{}) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	entries := make([]interface{}, 0, len(records))
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return errors.InternalError("failed to encode record", err)
		}
		entries = append(entries, payload)
	}

	if err := r.client.RPush(ctx, "records:"+collection, entries...).Err(); err != nil {
		return errors.ConnectionError("failed to push records", err)
	}
	return nil
}

func (r *redisSink) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisSink) Close() error {
	return r.client.Close()
}
