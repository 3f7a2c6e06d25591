package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
)

// ErrQueueEmpty is returned by pops that found nothing.
var ErrQueueEmpty = errors.New("queue empty")

// AnswerQueue is the FIFO backing the answer outbox. Items are JSON-encoded model.AnswerWrite.
type AnswerQueue interface {
	Push(ctx context.Context, w model.AnswerWrite) error
	BlockingPop(ctx context.Context, timeout time.Duration) (string, error)
	Pop(ctx context.Context) (string, error)
	PushFront(ctx context.Context, raw string) error
}

// RedisQueue stores the outbox in a Redis list: RPUSH to enqueue, BLPOP to consume.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue creates a queue on the persist-answers list.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: config.WorkerKey.PersistAnswersQueue}
}

func (q *RedisQueue) Push(ctx context.Context, w model.AnswerWrite) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal answer write: %w", err)
	}
	return q.rdb.RPush(ctx, q.key, data).Err()
}

func (q *RedisQueue) BlockingPop(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrQueueEmpty
		}
		return "", err
	}
	if len(result) < 2 {
		return "", ErrQueueEmpty
	}
	return result[1], nil
}

func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	raw, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	return raw, err
}

// PushFront puts a failed item back at the head so it is retried before newer writes.
func (q *RedisQueue) PushFront(ctx context.Context, raw string) error {
	return q.rdb.LPush(ctx, q.key, raw).Err()
}

// Len reports how many writes are waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
