package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDisk is an in-memory DiskTier.
type fakeDisk struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
}

type fakeEntry struct {
	payload  []byte
	storedAt time.Time
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{entries: make(map[string]fakeEntry)}
}

func (d *fakeDisk) Get(key string) ([]byte, time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[key]
	return e.payload, e.storedAt, ok
}

func (d *fakeDisk) Put(key string, payload []byte, storedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = fakeEntry{payload: payload, storedAt: storedAt}
	return nil
}

func (d *fakeDisk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, key)
}

func (d *fakeDisk) Sweep(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for k, e := range d.entries {
		if e.storedAt.Before(cutoff) {
			delete(d.entries, k)
			removed++
		}
	}
	return removed
}

func TestGetOrFetchCachesResult(t *testing.T) {
	disk := newFakeDisk()
	c, err := New[string](8, disk, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "value", nil
	}

	v, ok := c.GetOrFetch(context.Background(), "k", fetch)
	require.True(t, ok)
	assert.Equal(t, "value", v)

	v, ok = c.GetOrFetch(context.Background(), "k", fetch)
	require.True(t, ok)
	assert.Equal(t, "value", v)
	assert.Equal(t, int32(1), calls.Load())

	// Persisted to disk too.
	payload, _, ok := disk.Get("k")
	require.True(t, ok)
	assert.Equal(t, `"value"`, string(payload))
}

func TestGetOrFetchSingleFlight(t *testing.T) {
	c, err := New[string](8, nil, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-gate
		return "shared", nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, ok := c.GetOrFetch(context.Background(), "k", fetch)
			assert.True(t, ok)
			results[i] = v
		}(i)
	}

	// Give every goroutine time to join the flight, then release it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestGetOrFetchFailureIsAbsence(t *testing.T) {
	c, err := New[string](8, nil, nil)
	require.NoError(t, err)

	_, ok := c.GetOrFetch(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})
	assert.False(t, ok)

	// A later call retries rather than caching the failure.
	v, ok := c.GetOrFetch(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "recovered", nil
	})
	require.True(t, ok)
	assert.Equal(t, "recovered", v)
}

func TestDiskHitPromotesToMemory(t *testing.T) {
	disk := newFakeDisk()
	c, err := New[string](8, disk, nil)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, disk.Put("k", []byte(`"stored"`), now.Add(-time.Hour)))

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "stored", v)

	// Now served from memory: a disk wipe doesn't lose it.
	disk.Delete("k")
	v, ok = c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "stored", v)
}

func TestExpiredDiskEntryIsAMiss(t *testing.T) {
	disk := newFakeDisk()
	c, err := New[string](8, disk, nil)
	require.NoError(t, err)

	base := time.Now()
	require.NoError(t, disk.Put("k", []byte(`"old"`), base.Add(-25*time.Hour)))
	c.now = func() time.Time { return base }

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestUndecodableDiskEntryIsDropped(t *testing.T) {
	disk := newFakeDisk()
	c, err := New[string](8, disk, nil)
	require.NoError(t, err)

	require.NoError(t, disk.Put("k", []byte("{garbage"), time.Now()))

	_, ok := c.Get("k")
	assert.False(t, ok)

	_, _, stillThere := disk.Get("k")
	assert.False(t, stillThere)
}

func TestClearExpired(t *testing.T) {
	disk := newFakeDisk()
	c, err := New[string](8, disk, nil)
	require.NoError(t, err)

	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, disk.Put("fresh", []byte(`"a"`), base.Add(-time.Hour)))
	require.NoError(t, disk.Put("stale", []byte(`"b"`), base.Add(-25*time.Hour)))

	assert.Equal(t, 1, c.ClearExpired())

	_, _, ok := disk.Get("fresh")
	assert.True(t, ok)
	_, _, ok = disk.Get("stale")
	assert.False(t, ok)
}
