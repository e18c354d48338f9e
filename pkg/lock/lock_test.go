package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	locker := NewLocal()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "lab:1")
			require.NoError(t, err)
			defer unlock()

			now := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if now <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, now) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Equal(t, 0, locker.size())
}

func TestLocalAllowsDifferentKeys(t *testing.T) {
	locker := NewLocal()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "lab:a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := locker.Lock(ctx, "lab:b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent keys must not block each other")
	}
}

func TestLocalHonoursContextCancellation(t *testing.T) {
	locker := NewLocal()
	unlock, err := locker.Lock(context.Background(), "lab:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "lab:1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Equal(t, 0, locker.size())
}

func TestKeys(t *testing.T) {
	labID := uuid.MustParse("5f1c2a52-8a44-4a8e-9a57-3f1de3f0a001")
	assert.Equal(t, "lab:5f1c2a52-8a44-4a8e-9a57-3f1de3f0a001", LabKey(labID))
	assert.Equal(t, "lab:5f1c2a52-8a44-4a8e-9a57-3f1de3f0a001:person:u1", PersonKey(labID, "u1"))
}

type fakeRedisStore struct {
	mu      sync.Mutex
	values  map[string]string
	setErr  error
	deletes int
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: make(map[string]string)}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	f.deletes++
	return true, nil
}

func (f *fakeRedisStore) LockKey(scope, id string) string {
	return "lf:lock:" + scope + ":" + id
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	store := newFakeRedisStore()
	locker, err := NewRedis(store, RedisOptions{WaitTimeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)

	unlock, err := locker.Lock(context.Background(), "lab:1")
	require.NoError(t, err)
	require.Contains(t, store.values, "lf:lock:finance:lab:1")

	_, err = locker.Lock(context.Background(), "lab:1")
	require.ErrorIs(t, err, ErrNotAcquired)

	unlock()
	unlock()
	assert.Equal(t, 1, store.deletes)

	unlock, err = locker.Lock(context.Background(), "lab:1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLockPropagatesStoreErrors(t *testing.T) {
	store := newFakeRedisStore()
	store.setErr = errors.New("connection refused")
	locker, err := NewRedis(store, RedisOptions{WaitTimeout: 20 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), "lab:1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}

func TestNewRedisRequiresClient(t *testing.T) {
	_, err := NewRedis(nil, RedisOptions{})
	require.Error(t, err)
}

func TestScope(t *testing.T) {
	labID := uuid.New()
	assert.Equal(t, "lab", Scope(LabKey(labID)))
	assert.Equal(t, "person", Scope(PersonKey(labID, "u1")))
	assert.Equal(t, "other", Scope("cron"))
}

func TestObserveReportsWait(t *testing.T) {
	var observed []string
	locker := Observe(NewLocal(), func(key string, waited time.Duration) {
		observed = append(observed, key)
	})

	unlock, err := locker.Lock(context.Background(), "lab:1")
	require.NoError(t, err)
	unlock()
	assert.Equal(t, []string{"lab:1"}, observed)

	plain := NewLocal()
	assert.Same(t, plain, Observe(plain, nil))
}
