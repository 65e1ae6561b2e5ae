package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-tierprice/internal/obs"
)

// GlobalScope is the channel id under which fallback values are stored.
const GlobalScope = "global"

// RedisStore keeps settings as JSON documents in Redis. Lookups fall back from the
// channel document to the global document and finally to Defaults.
type RedisStore struct {
	client   redis.Cmdable
	ttl      time.Duration
	Defaults Values
}

// NewRedisStore constructs a store. A zero ttl stores documents without expiry.
func NewRedisStore(client redis.Cmdable, ttl time.Duration, defaults Values) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, Defaults: defaults}
}

// Key returns the Redis key of a channel document.
func Key(namespace, salesChannelID string) string {
	if salesChannelID == "" {
		salesChannelID = GlobalScope
	}
	return namespace + ":" + salesChannelID
}

// Get implements Provider.
func (s *RedisStore) Get(ctx context.Context, namespace, salesChannelID string) (Values, error) {
	if s == nil || s.client == nil {
		return Values{}, errors.New("settings store not configured")
	}
	scopes := []struct{ key, result string }{
		{Key(namespace, salesChannelID), "channel"},
		{Key(namespace, GlobalScope), "global"},
	}
	for _, scope := range scopes {
		var v Values
		ok, err := s.getJSON(ctx, scope.key, &v)
		if err != nil {
			countLookup("error")
			return Values{}, fmt.Errorf("load settings %s: %w", scope.key, err)
		}
		if ok {
			countLookup(scope.result)
			return v.Normalize(), nil
		}
	}
	countLookup("default")
	return s.Defaults.Normalize(), nil
}

// Set stores v for a channel; an empty channel id writes the global document.
func (s *RedisStore) Set(ctx context.Context, namespace, salesChannelID string, v Values) error {
	if s == nil || s.client == nil {
		return errors.New("settings store not configured")
	}
	key := Key(namespace, salesChannelID)
	if err := s.setJSON(ctx, key, v.Normalize()); err != nil {
		return fmt.Errorf("store settings %s: %w", key, err)
	}
	return nil
}

// Delete removes a channel document so lookups fall back again.
func (s *RedisStore) Delete(ctx context.Context, namespace, salesChannelID string) error {
	if s == nil || s.client == nil {
		return errors.New("settings store not configured")
	}
	return s.client.Del(ctx, Key(namespace, salesChannelID)).Err()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func countLookup(result string) {
	if obs.SettingsLookupTotal != nil {
		obs.SettingsLookupTotal.WithLabelValues(result).Inc()
	}
}
