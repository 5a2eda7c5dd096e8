package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"outcomeworker/internal/logging"
)

const (
	defaultDeriveQueueKey = "derive_outcomes"
	retrySuffix           = ":retry"
	dlqSuffix             = ":dlq"
	retryCounterSuffix    = ":retry-count:"
	maxRetryAttempts      = 3
	brPopBlock            = 5 * time.Second

	// List the rating subsystem consumes after an outcome is persisted.
	outcomeReadyQueueKey = "outcome_ready"
)

// RedisQueue implements queue operations using Redis lists.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a Redis-backed queue helper.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, key: defaultDeriveQueueKey}
}

// Consume uses BRPOP to deliver jobs to the handler until the context is
// canceled. Failed jobs cycle through a retry list and land in a DLQ after
// maxRetryAttempts.
func (q *RedisQueue) Consume(ctx context.Context, queueName string, handler func([]byte) error) error {
	queueName = q.resolveQueue(queueName)
	for {
		payload, err := q.pop(ctx, queueName)
		if err != nil {
			return err
		}
		if payload == nil {
			continue
		}
		q.dispatch(ctx, queueName, payload, handler)
	}
}

// ConsumeConcurrent uses BRPOP to feed jobs to a worker pool.
func (q *RedisQueue) ConsumeConcurrent(ctx context.Context, queueName string, workerCount, bufferSize int, handler func([]byte) error) error {
	logger := logging.Logger()
	queueName = q.resolveQueue(queueName)

	jobChan := make(chan []byte, bufferSize)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for payload := range jobChan {
				q.dispatch(ctx, queueName, payload, handler)
			}
			logger.Infof("worker %d: exiting", workerID)
		}(i)
	}

	logger.Infof("started %d concurrent workers for queue %s", workerCount, queueName)

	drain := func(err error) error {
		close(jobChan)
		wg.Wait()
		return err
	}

	for {
		payload, err := q.pop(ctx, queueName)
		if err != nil {
			return drain(err)
		}
		if payload == nil {
			continue
		}
		select {
		case jobChan <- payload:
		case <-ctx.Done():
			return drain(ctx.Err())
		}
	}
}

// NotifyOutcome pushes a replay id onto the outcome-ready list so the
// rating subsystem picks the finished derivation up.
func (q *RedisQueue) NotifyOutcome(ctx context.Context, replayID uuid.UUID) error {
	payload, err := json.Marshal(map[string]string{"replay_id": replayID.String()})
	if err != nil {
		return fmt.Errorf("marshal notify payload: %w", err)
	}
	return q.client.LPush(ctx, outcomeReadyQueueKey, payload).Err()
}

func (q *RedisQueue) resolveQueue(queueName string) string {
	if queueName == "" {
		return q.key
	}
	return queueName
}

// pop blocks on the retry list and the main list. A nil payload with nil
// error means "nothing yet, poll again".
func (q *RedisQueue) pop(ctx context.Context, queueName string) ([]byte, error) {
	logger := logging.Logger()
	if ctx.Err() != nil {
		logger.Warnf("redis consumer exiting: %v", ctx.Err())
		return nil, ctx.Err()
	}

	result, err := q.client.BRPop(ctx, brPopBlock, queueName+retrySuffix, queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			logger.Warnf("redis BRPOP canceled: %v", ctx.Err())
			return nil, ctx.Err()
		}
		logger.Warnf("redis BRPOP error: %v", err)
		return nil, nil
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

// dispatch runs the handler and applies the retry/DLQ policy on failure.
func (q *RedisQueue) dispatch(ctx context.Context, queueName string, payload []byte, handler func([]byte) error) {
	logger := logging.Logger()
	if err := handler(payload); err != nil {
		logger.Warnf("handler error, scheduling retry: %v", err)
		if err := q.handleRetry(ctx, queueName, payload); err != nil {
			logger.Errorf("retry handling failed: %v", err)
		}
		return
	}
	_ = q.clearRetryCounter(ctx, queueName, payload)
}

func (q *RedisQueue) handleRetry(ctx context.Context, queueName string, payload []byte) error {
	logger := logging.Logger()
	attempt, err := q.incrementRetryCounter(ctx, queueName, payload)
	if err != nil {
		return err
	}
	if attempt > maxRetryAttempts {
		logger.Warnf("moving job to DLQ after %d attempts", attempt-1)
		_ = q.client.LPush(ctx, queueName+dlqSuffix, payload).Err()
		_ = q.clearRetryCounter(ctx, queueName, payload)
		return nil
	}
	return q.client.LPush(ctx, queueName+retrySuffix, payload).Err()
}

func (q *RedisQueue) incrementRetryCounter(ctx context.Context, queueName string, payload []byte) (int64, error) {
	key := retryCounterKey(queueName, payload)
	count, err := q.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = q.client.Expire(ctx, key, 24*time.Hour).Err()
	return count, nil
}

func (q *RedisQueue) clearRetryCounter(ctx context.Context, queueName string, payload []byte) error {
	return q.client.Del(ctx, retryCounterKey(queueName, payload)).Err()
}

func retryCounterKey(queue string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s%s%s", queue, retryCounterSuffix, hex.EncodeToString(sum[:]))
}
