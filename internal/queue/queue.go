package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessingJob is the message carried on the work queue between upload
// and the processing engine's worker. Field names are part of the wire
// contract with the worker.
type ProcessingJob struct {
	DocumentID int64  `json:"documentId"`
	FilePath   string `json:"filePath"`
}

// EncodeJob returns the JSON representation of a job.
func EncodeJob(job ProcessingJob) ([]byte, error) {
	return json.Marshal(job)
}

// DecodeJob parses a JSON payload into a ProcessingJob.
func DecodeJob(payload []byte) (ProcessingJob, error) {
	var job ProcessingJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return ProcessingJob{}, err
	}
	if job.DocumentID == 0 || job.FilePath == "" {
		return ProcessingJob{}, fmt.Errorf("invalid job payload: %s", payload)
	}
	return job, nil
}

// RedisQueue is a FIFO work queue backed by a named Redis list. Producers
// push at the head, consumers pop from the tail, so delivery order matches
// enqueue order.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue builds a queue handle over an existing Redis client.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	if name == "" {
		name = "doc-processing-queue"
	}
	return &RedisQueue{client: client, name: name}
}

// Name returns the underlying list key.
func (q *RedisQueue) Name() string {
	return q.name
}

// Enqueue serializes the job and pushes it onto the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, job ProcessingJob) error {
	payload, err := EncodeJob(job)
	if err != nil {
		return fmt.Errorf("encode processing job: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue processing job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. It returns ok=false when
// the wait timed out without a message.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (ProcessingJob, bool, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if err == redis.Nil {
			return ProcessingJob{}, false, nil
		}
		return ProcessingJob{}, false, fmt.Errorf("dequeue processing job: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return ProcessingJob{}, false, fmt.Errorf("unexpected brpop reply: %v", res)
	}
	job, err := DecodeJob([]byte(res[1]))
	if err != nil {
		return ProcessingJob{}, false, err
	}
	return job, true, nil
}

// Depth reports the number of pending jobs.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return depth, nil
}
