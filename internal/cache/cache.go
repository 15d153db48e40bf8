// Package cache keeps fully loaded quizzes in Redis so that repeated reads and grading
// requests skip the database.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/event"
)

const defaultTTL = 10 * time.Minute

// setScript writes the quiz unless a tombstone marks it deleted.
// KEYS[1]: quiz key, KEYS[2]: tombstone key. ARGV[1]: encoded quiz, ARGV[2]: ttl in ms.
var setScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// evictScript removes the quiz and leaves a tombstone so that reads racing the delete
// cannot put it back.
// KEYS[1]: quiz key, KEYS[2]: tombstone key. ARGV[1]: ttl in ms.
var evictScript = redis.NewScript(`
redis.call("SET", KEYS[2], "1", "PX", ARGV[1])
return redis.call("DEL", KEYS[1])
`)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	TTL      time.Duration
}

type QuizCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewQuizCache creates the cache and evicts entries when their quiz is deleted.
func NewQuizCache(c Config) *QuizCache {
	qc := &QuizCache{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}
	if qc.ttl <= 0 {
		qc.ttl = defaultTTL
	}

	if c.EventBus != nil {
		event.On(c.EventBus, func(ctx context.Context, e domain.EventQuizDeleted) error {
			return qc.Delete(ctx, e.QuizID)
		})
	}

	return qc
}

// Get returns the cached quiz. A miss is reported with ok=false and a nil error.
func (c *QuizCache) Get(ctx context.Context, id string) (q *domain.Quiz, ok bool, err error) {
	b, err := c.redis.Get(ctx, c.key(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached quiz: %w", err)
	}

	q = new(domain.Quiz)
	if err := json.Unmarshal(b, q); err != nil {
		return nil, false, fmt.Errorf("decode cached quiz: %w", err)
	}

	return q, true, nil
}

func (c *QuizCache) Set(ctx context.Context, q *domain.Quiz) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}

	keys := []string{c.key(q.ID), c.tombstoneKey(q.ID)}
	if err := setScript.Run(ctx, c.redis, keys, b, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("set cached quiz: %w", err)
	}

	return nil
}

// Delete evicts the quiz. Later Set calls for the same id are ignored until the tombstone
// expires after one TTL, which outlives any entry written before the eviction.
func (c *QuizCache) Delete(ctx context.Context, id string) error {
	keys := []string{c.key(id), c.tombstoneKey(id)}
	if err := evictScript.Run(ctx, c.redis, keys, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("delete cached quiz: %w", err)
	}

	return nil
}

func (c *QuizCache) key(id string) string {
	return fmt.Sprintf("%s:quiz:%s", c.prefix, id)
}

func (c *QuizCache) tombstoneKey(id string) string {
	return fmt.Sprintf("%s:quiz:%s:deleted", c.prefix, id)
}
