package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueueEntry is a waiting chat session and the moment it joined the queue.
type QueueEntry struct {
	SessionID string
	Since     time.Time
}

// ChatQueue is the FIFO of clients waiting for an operator.
type ChatQueue interface {
	Enqueue(ctx context.Context, sessionID string, at time.Time) error
	Remove(ctx context.Context, sessionID string) (bool, error)
	PopOldest(ctx context.Context) (string, bool, error)
	List(ctx context.Context, limit int) ([]QueueEntry, error)
	Position(ctx context.Context, sessionID string) (int64, bool, error)
	Len(ctx context.Context) (int64, error)
}

type redisChatQueue struct {
	client *redis.Client
	key    string
}

// NewChatQueue stores the queue as a Redis sorted set scored by request time.
func NewChatQueue(client *redis.Client, key string) ChatQueue {
	return &redisChatQueue{client: client, key: key}
}

func (q *redisChatQueue) Enqueue(ctx context.Context, sessionID string, at time.Time) error {
	return q.client.ZAddNX(ctx, q.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: sessionID,
	}).Err()
}

// Remove reports true only to the caller that actually removed the member.
func (q *redisChatQueue) Remove(ctx context.Context, sessionID string) (bool, error) {
	n, err := q.client.ZRem(ctx, q.key, sessionID).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (q *redisChatQueue) PopOldest(ctx context.Context) (string, bool, error) {
	items, err := q.client.ZPopMin(ctx, q.key, 1).Result()
	if err != nil {
		return "", false, err
	}
	if len(items) == 0 {
		return "", false, nil
	}
	member, _ := items[0].Member.(string)
	return member, member != "", nil
}

func (q *redisChatQueue) List(ctx context.Context, limit int) ([]QueueEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := q.client.ZRangeWithScores(ctx, q.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]QueueEntry, 0, len(items))
	for _, item := range items {
		member, ok := item.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, QueueEntry{
			SessionID: member,
			Since:     time.UnixMilli(int64(item.Score)).UTC(),
		})
	}
	return entries, nil
}

// Position returns the zero-based rank of the session in the queue.
func (q *redisChatQueue) Position(ctx context.Context, sessionID string) (int64, bool, error) {
	rank, err := q.client.ZRank(ctx, q.key, sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (q *redisChatQueue) Len(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key).Result()
}
