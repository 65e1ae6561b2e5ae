package lock_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/lock"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLockSerialisesReadModifyWrite(t *testing.T) {
	_, client := newClient(t)
	locker := lock.Locker{R: client, Prefix: "test:lock:", RetryBackoff: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- locker.WithLock(ctx, "settings:sc-1", time.Second, func(ctx context.Context) error {
				raw, err := client.Get(ctx, "counter").Result()
				if err != nil && err != redis.Nil {
					return err
				}
				n, _ := strconv.Atoi(raw)
				return client.Set(ctx, "counter", n+1, 0).Err()
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := client.Get(ctx, "counter").Int()
	require.NoError(t, err)
	require.Equal(t, 10, got)
	require.Zero(t, client.Exists(ctx, locker.Key("settings:sc-1")).Val())
}

func TestWithLockGivesUpWhenContextEnds(t *testing.T) {
	mr, client := newClient(t)
	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
	require.NoError(t, mr.Set(locker.Key("busy"), "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	called := false
	err := locker.WithLock(ctx, "busy", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, called)

	held, err := mr.Get(locker.Key("busy"))
	require.NoError(t, err)
	require.Equal(t, "someone-else", held)
}

func TestWithLockRequiresClient(t *testing.T) {
	err := lock.Locker{}.WithLock(context.Background(), "x", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotConfigured)
}
