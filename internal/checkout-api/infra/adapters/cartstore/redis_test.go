package cartstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedWatcher answers each Watch call with the next queued error
// without touching Redis.
type scriptedWatcher struct {
	errs  []error
	calls int
	keys  []string
}

func (w *scriptedWatcher) Watch(_ context.Context, _ func(*redis.Tx) error, keys ...string) error {
	w.calls++
	w.keys = keys
	if len(w.errs) == 0 {
		return nil
	}
	err := w.errs[0]
	w.errs = w.errs[1:]
	return err
}

func conflicts(n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = redis.TxFailedErr
	}
	return errs
}

func TestRedisMutateRetriesWatchConflicts(t *testing.T) {
	w := &scriptedWatcher{errs: conflicts(maxMutateAttempts - 1)}
	store := &RedisStore{watcher: w, ttl: time.Hour}

	_, err := store.Mutate(context.Background(), "s1", addOne("felucca"))
	require.NoError(t, err)
	assert.Equal(t, maxMutateAttempts, w.calls)
	assert.Equal(t, []string{"cart:s1"}, w.keys)
}

func TestRedisMutateReportsConflictWhenRetriesRunOut(t *testing.T) {
	w := &scriptedWatcher{errs: conflicts(maxMutateAttempts + 1)}
	store := &RedisStore{watcher: w, ttl: time.Hour}

	cart, err := store.Mutate(context.Background(), "s1", addOne("felucca"))
	assert.ErrorIs(t, err, entity.ErrCartStoreConflict)
	assert.Nil(t, cart)
	assert.Equal(t, maxMutateAttempts, w.calls)
}

func TestRedisMutateDoesNotRetryOtherErrors(t *testing.T) {
	w := &scriptedWatcher{errs: []error{entity.ErrMixedCurrency}}
	store := &RedisStore{watcher: w, ttl: time.Hour}

	_, err := store.Mutate(context.Background(), "s1", addOne("felucca"))
	assert.ErrorIs(t, err, entity.ErrMixedCurrency)
	assert.Equal(t, 1, w.calls)
}

func TestRedisMutateStopsOnCancelledContext(t *testing.T) {
	w := &scriptedWatcher{errs: conflicts(maxMutateAttempts)}
	store := &RedisStore{watcher: w, ttl: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Mutate(ctx, "s1", addOne("felucca"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, w.calls)
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisStoreConcurrentMutations(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisStore(client, time.Minute)
	sessionID := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { _ = store.Clear(ctx, sessionID) })

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Mutate(ctx, sessionID, addOne("felucca"))
			if err != nil && !errors.Is(err, entity.ErrCartStoreConflict) {
				t.Errorf("mutate: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	cart, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.NotZero(t, succeeded)
	assert.Equal(t, succeeded, cart.ItemCount())
}
