package battle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "battle-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.Active())
}

func TestKeyedLocker_IndependentKeys(t *testing.T) {
	l := NewKeyedLocker()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedLocker_UnlockTwiceIsSafe(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	assert.Equal(t, 0, l.Active())
}

func TestKeyedLocker_CancelledWaiterReleasesEntry(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "a")
	assert.True(t, errors.Is(err, context.Canceled))

	unlock()
	assert.Equal(t, 0, l.Active())
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	mr, client := newMiniredisClient(t)
	l := NewRedisLocker(client, RedisLockerOptions{})

	unlock, err := l.Lock(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("battle:lock:b1"))
	assert.Equal(t, 30*time.Second, mr.TTL("battle:lock:b1"))

	unlock()
	assert.False(t, mr.Exists("battle:lock:b1"))
}

func TestRedisLocker_WaitsForHolder(t *testing.T) {
	_, client := newMiniredisClient(t)
	l := NewRedisLocker(client, RedisLockerOptions{Wait: time.Second, Poll: 5 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), "b1")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		unlock()
	}()

	second, err := l.Lock(context.Background(), "b1")
	require.NoError(t, err)
	second()
}

func TestRedisLocker_GivesUpAfterWait(t *testing.T) {
	_, client := newMiniredisClient(t)
	l := NewRedisLocker(client, RedisLockerOptions{Wait: 40 * time.Millisecond, Poll: 5 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), "b1")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errLockHeld))
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	mr, client := newMiniredisClient(t)
	l := NewRedisLocker(client, RedisLockerOptions{})

	unlock, err := l.Lock(context.Background(), "b1")
	require.NoError(t, err)

	// lock expired and was taken by someone else
	require.NoError(t, mr.Set("battle:lock:b1", "someone-else"))
	unlock()

	got, err := mr.Get("battle:lock:b1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestManager_WithRedisLocker(t *testing.T) {
	_, client := newMiniredisClient(t)
	m := newTestManager(t, nil, nil, Options{Locker: NewRedisLocker(client, RedisLockerOptions{})})

	b, creator, _ := readyBattle(t, m)
	res, err := m.StartBattle(context.Background(), b.RoomCode, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, res.Battle.Status)
}
