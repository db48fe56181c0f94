// Package redisdb keeps observations in a Redis hash, for deployments where
// several servers share one dataset.
package redisdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/observation/database"
	"github.com/go-sod/knn/internal/observation/model"
)

type Config struct {
	Addr     string `envconfig:"KNN_REDIS_ADDR"`
	Password string `envconfig:"KNN_REDIS_PASSWORD"`
	DB       int    `envconfig:"KNN_REDIS_DB" default:"0"`
	Key      string `envconfig:"KNN_REDIS_KEY" default:"knn:observations"`
}

func (c *Config) Enabled() bool {
	return c.Addr != ""
}

type DB struct {
	client *redis.Client
	key    string
}

func New(ctx context.Context, cfg *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("connecting redis %s", cfg.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &DB{client: client, key: cfg.Key}, nil
}

func (db *DB) AppendMany(ctx context.Context, observations []model.Observation) error {
	if len(observations) == 0 {
		return nil
	}
	values := make([]interface{}, 0, 2*len(observations))
	for _, o := range observations {
		b, err := o.Encode()
		if err != nil {
			return err
		}
		values = append(values, strconv.FormatUint(o.ID, 10), string(b))
	}
	if err := db.client.HSet(ctx, db.key, values...).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", db.key, err)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	fields := make([]string, 0, len(ids))
	for _, id := range ids {
		fields = append(fields, strconv.FormatUint(id, 10))
	}
	if err := db.client.HDel(ctx, db.key, fields...).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", db.key, err)
	}
	return nil
}

// FindAll returns the observations accepted by filter (all when nil) in id order.
func (db *DB) FindAll(ctx context.Context, filter database.FilterFn) ([]model.Observation, error) {
	fields, err := db.client.HGetAll(ctx, db.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", db.key, err)
	}
	list := make([]model.Observation, 0, len(fields))
	for field, value := range fields {
		o, err := model.Decode([]byte(value))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		if filter == nil || filter(o) {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (db *DB) Close(ctx context.Context) error {
	logging.FromContext(ctx).Infof("closing redis connection")
	if err := db.client.Close(); err != nil {
		return fmt.Errorf("error close redis connection: %w", err)
	}
	return nil
}
