package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each record as a hash at "{table}:{pk}:{sk}". Hash
// fields are strings, which is exactly the exact-decimal boundary the
// codec produces. The client is safe for concurrent use and shared by all
// request handlers.
type RedisStore struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.Sugar(),
	}
}

func recordKey(table, pk, sk string) string {
	return fmt.Sprintf("%s:%s:%s", table, pk, sk)
}

// Get returns the attributes of one record, or nil when the record does
// not exist.
func (s *RedisStore) Get(ctx context.Context, table, pk, sk string) (Attrs, error) {
	vals, err := s.client.HGetAll(ctx, recordKey(table, pk, sk)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s %s/%s: %w", table, pk, sk, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return Attrs(vals), nil
}

// PutBatch writes records through a single pipeline. Each record fully
// replaces any prior version under the same key (delete then set, so stale
// fields never linger). Per-record failures are logged and skipped.
func (s *RedisStore) PutBatch(ctx context.Context, table string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	setCmds := make([]*redis.IntCmd, 0, len(records))
	for _, rec := range records {
		key := recordKey(table, rec.PK, rec.SK)
		pipe.Del(ctx, key)
		setCmds = append(setCmds, pipe.HSet(ctx, key, map[string]string(rec.Attrs)))
		if rec.TTL > 0 {
			pipe.ExpireAt(ctx, key, time.Unix(rec.TTL, 0))
		}
	}

	_, execErr := pipe.Exec(ctx)

	stored := 0
	for i, cmd := range setCmds {
		if err := cmd.Err(); err != nil {
			s.logger.Warnw("Failed to store record",
				"table", table,
				"pk", records[i].PK,
				"sk", records[i].SK,
				"error", err,
			)
			continue
		}
		stored++
	}

	if execErr != nil && stored == 0 {
		return 0, fmt.Errorf("put batch %s: %w", table, execErr)
	}
	return stored, nil
}
