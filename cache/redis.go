package cache

import (
	"context"
	"encoding/json"
	"time"

	"dga-topology/models"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "analysis:"

// RedisOptions configures the Redis result store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisClient stores analysis results as JSON values with a TTL.
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     50,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return &RedisClient{client: rdb, ttl: opts.TTL}, nil
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

func (rc *RedisClient) SaveAnalysis(ctx context.Context, unitID string, result models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return rc.client.Set(ctx, Key(unitID), data, rc.ttl).Err()
}

// GetAnalysis returns nil and no error when the unit has no stored result.
func (rc *RedisClient) GetAnalysis(ctx context.Context, unitID string) (*models.AnalysisResult, error) {
	val, err := rc.client.Get(ctx, Key(unitID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decode(val)
}

// Key returns the storage key of a unit's result.
func Key(unitID string) string {
	return keyPrefix + unitID
}

func decode(data []byte) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
