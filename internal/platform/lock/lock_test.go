package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
		total   int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "order-1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			atomic.AddInt32(&total, 1)
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxSeen)
	require.Equal(t, int32(8), total)
}

func TestMemory_MutualExclusion(t *testing.T) {
	m := NewMemory()
	exerciseMutualExclusion(t, m)
	require.Zero(t, m.size())
}

func TestMemory_IndependentKeys(t *testing.T) {
	m := NewMemory()
	u1, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	u2, err := m.Lock(context.Background(), "b")
	require.NoError(t, err)
	u1()
	u2()
	// a second unlock is a no-op
	u1()
	require.Zero(t, m.size())
}

func TestMemory_ContextCancelled(t *testing.T) {
	m := NewMemory()
	unlock, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, m.size())
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedis_MutualExclusion(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := NewRedis(client, zap.NewNop().Sugar(), time.Second)
	r.retry = time.Millisecond
	exerciseMutualExclusion(t, r)
}

func TestRedis_ReleaseOnlyOwnToken(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := NewRedis(client, zap.NewNop().Sugar(), time.Second)

	unlock, err := r.Lock(context.Background(), "order-2")
	require.NoError(t, err)

	// Simulate expiry and another holder taking over.
	mr.Set(keyPrefix+"order-2", "someone-else")
	unlock()

	got, err := mr.Get(keyPrefix + "order-2")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestRedis_Timeout(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := NewRedis(client, zap.NewNop().Sugar(), time.Second)
	r.retry = 5 * time.Millisecond

	unlock, err := r.Lock(context.Background(), "order-3")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = r.Lock(ctx, "order-3")
	require.True(t, errors.Is(err, ErrNotAcquired))
}

func TestRedis_TTLApplied(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := NewRedis(client, zap.NewNop().Sugar(), 10*time.Second)

	unlock, err := r.Lock(context.Background(), "order-4")
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, mr.TTL(keyPrefix+"order-4"))
	unlock()
	require.False(t, mr.Exists(keyPrefix+"order-4"))
}
