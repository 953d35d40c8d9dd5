package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeschema/kubeschema/internal/config"
)

// fakeLister counts List calls and serves a fixed listing.
type fakeLister struct {
	calls atomic.Int32
	paths []string
	err   error
	delay time.Duration
}

func (f *fakeLister) List(_ context.Context, _ config.CatalogRef) ([]string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.paths, nil
}

var testRef = config.CatalogRef{Repo: "datreeio/CRDs-catalog", Ref: "main"}

func TestCacheMemoizesListings(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{paths: []string{"example.com/widget_v1.json"}}
	cache := NewCache(lister)

	first, err := cache.Entries(context.Background(), testRef)
	require.NoError(t, err)
	second, err := cache.Entries(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), lister.calls.Load())
}

func TestCacheConcurrentFirstLookupsListOnce(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{
		paths: []string{"example.com/widget_v1.json"},
		delay: 50 * time.Millisecond,
	}
	cache := NewCache(lister)

	const workers = 8
	results := make([][]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Entries(context.Background(), testRef)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), lister.calls.Load())
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, lister.paths, results[i])
	}
}

func TestCacheInvalidateForcesRelisting(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{paths: []string{"a.json"}}
	cache := NewCache(lister)

	_, err := cache.Entries(context.Background(), testRef)
	require.NoError(t, err)

	cache.Invalidate()

	_, err = cache.Entries(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{err: errors.New("listing unavailable")}
	cache := NewCache(lister)

	_, err := cache.Entries(context.Background(), testRef)
	require.Error(t, err)

	// The failure must not poison the cache; the next call retries.
	lister.err = nil
	lister.paths = []string{"recovered.json"}

	paths, err := cache.Entries(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, []string{"recovered.json"}, paths)
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestCacheContains(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{paths: []string{
		"example.com/widget_v1.json",
		"other.io/gadget_v1beta1.json",
	}}
	cache := NewCache(lister)

	ok, err := cache.Contains(context.Background(), testRef, "example.com/widget_v1.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Contains(context.Background(), testRef, "example.com/missing_v1.json")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int32(1), lister.calls.Load())
}
