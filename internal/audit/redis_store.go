package audit

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore appends entries to a capped Redis stream.
type RedisStore struct {
	Client redis.Cmdable
	Stream string
	MaxLen int64
}

func (s RedisStore) stream() string {
	if s.Stream == "" {
		return "audit"
	}
	return s.Stream
}

// Append implements Store.
func (s RedisStore) Append(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	maxLen := s.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	err = s.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream(),
		MaxLen: maxLen,
		Values: map[string]any{"entry": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// List implements Store.
func (s RedisStore) List(ctx context.Context, limit int) ([]Entry, error) {
	msgs, err := s.Client.XRevRangeN(ctx, s.stream(), "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["entry"].(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		e.ID = msg.ID
		entries = append(entries, e)
	}
	return entries, nil
}
