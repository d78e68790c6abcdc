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

	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	s := routing.NewScheduler(routing.DefaultRetryConfig)
	s.SetSleep(func(ctx context.Context, d time.Duration) error { return nil })
	c, err := New(s, Config{Capacity: 64})
	require.NoError(t, err)
	return c
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "grave-by-id/7", NewKey(CategoryGraveByID, "7").String())
	assert.Equal(t, "statistics", NewKey(CategoryStatistics, "").String())
}

func TestInvalidationTable(t *testing.T) {
	assert.ElementsMatch(t, []Category{CategoryAlleyLayout}, Invalidations[MutationRemoveAlley])
	assert.ElementsMatch(t, []Category{
		CategoryGraveByID, CategoryGravePages, CategoryGraveSearch,
		CategoryPublicTileProjection, CategoryPublicSearchProjection, CategoryStatistics,
	}, Invalidations[MutationUpdateGrave])
	assert.Contains(t, Invalidations[MutationAddGrave], CategoryAlleyLayout)
	assert.Contains(t, Invalidations[MutationAssignOwner], CategoryAccessRole)
	assert.Equal(t, []Category{CategoryUserProfile}, Invalidations[MutationSaveCallerProfile])
	for m, cats := range Invalidations {
		for _, c := range cats {
			_, ok := DefaultTTLs[c]
			assert.True(t, ok, "%s invalidates unknown category %s", m, c)
		}
	}
}

func TestGet_HitWithinTTL(t *testing.T) {
	c := newTestCoordinator(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	calls := 0
	load := func(ctx context.Context) (int, error) { calls++; return calls, nil }
	key := NewKey(CategoryStatistics, "")

	v, err := Get(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, err = Get(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "statistics are fresh for two minutes")

	now = now.Add(2 * time.Minute)
	v, err = Get(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGet_RetriesConnectivity(t *testing.T) {
	c := newTestCoordinator(t)
	calls := 0
	v, err := Get(context.Background(), c, NewKey(CategoryAlleyLayout, ""), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "layout", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "layout", v)
	assert.Equal(t, 3, calls)
}

func TestGet_ErrorNotCached(t *testing.T) {
	c := newTestCoordinator(t)
	key := NewKey(CategoryGraveByID, "9")

	_, err := Get(context.Background(), c, key, func(ctx context.Context) (domain.Grave, error) {
		return domain.Grave{}, domain.GraveNotFound(9)
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestGet_DeduplicatesInFlight(t *testing.T) {
	c := newTestCoordinator(t)
	key := NewKey(CategoryManagerList, "")

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"m1"}, nil
	}

	var wg sync.WaitGroup
	results := make([][]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Get(context.Background(), c, key, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"m1"}, r)
	}
}

func TestGet_SupersededLoadNotStored(t *testing.T) {
	c := newTestCoordinator(t)
	key := NewKey(CategoryGraveByID, "1")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string, 1)
	go func() {
		v, _ := Get(context.Background(), c, key, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate(MutationUpdateGrave)
	close(release)
	assert.Equal(t, "old", <-done)

	v, err := Get(context.Background(), c, key, func(ctx context.Context) (string, error) {
		return "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}

func TestGet_CallerCancellation(t *testing.T) {
	c := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	errCh := make(chan error, 1)
	go func() {
		_, err := Get(ctx, c, NewKey(CategoryHealth, ""), func(ctx context.Context) (bool, error) {
			<-release
			return true, nil
		})
		errCh <- err
	}()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

// Invalidation correctness: after a successful grave update, reads of the
// grave and of the paginated collection reflect the new value.
func TestMutate_InvalidatesAffectedReads(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	store := map[uint64]string{1: "paid"}
	var mu sync.Mutex
	readGrave := func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		return store[1], nil
	}
	readPage := func(ctx context.Context) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		return []string{store[1]}, nil
	}
	layoutCalls := 0
	readLayout := func(ctx context.Context) (int, error) { layoutCalls++; return layoutCalls, nil }

	graveKey := NewKey(CategoryGraveByID, "1")
	pageKey := NewKey(CategoryGravePages, "0/50")
	layoutKey := NewKey(CategoryAlleyLayout, "")

	_, _ = Get(ctx, c, graveKey, readGrave)
	_, _ = Get(ctx, c, pageKey, readPage)
	_, _ = Get(ctx, c, layoutKey, readLayout)

	var notified []Category
	c.OnInvalidate(func(m Mutation, cats []Category) { notified = cats })

	err := c.Mutate(ctx, MutationUpdateGrave, func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		store[1] = "unpaid"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Invalidations[MutationUpdateGrave], notified)

	g, err := Get(ctx, c, graveKey, readGrave)
	require.NoError(t, err)
	assert.Equal(t, "unpaid", g)

	p, err := Get(ctx, c, pageKey, readPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"unpaid"}, p)

	l, err := Get(ctx, c, layoutKey, readLayout)
	require.NoError(t, err)
	assert.Equal(t, 1, l, "update-grave must not invalidate the alley layout")
}

func TestMutate_FailureKeepsCache(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	key := NewKey(CategoryAlleyLayout, "")

	_, err := Get(ctx, c, key, func(ctx context.Context) (string, error) { return "v1", nil })
	require.NoError(t, err)

	calls := 0
	err = c.Mutate(ctx, MutationRemoveAlley, func(ctx context.Context) error {
		calls++
		return domain.AlleyNotEmpty("B")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "domain failures are not retried")
	assert.Equal(t, 1, c.Len())
}

func TestMutateValue(t *testing.T) {
	c := newTestCoordinator(t)
	id, err := MutateValue(context.Background(), c, MutationAddGrave, func(ctx context.Context) (uint64, error) {
		return 12, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
}

func TestConfigOverridesAndPurge(t *testing.T) {
	s := routing.NewScheduler(routing.DefaultRetryConfig)
	c, err := New(s, Config{TTLs: map[Category]time.Duration{CategoryHealth: time.Second}})
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.TTL(CategoryHealth))
	assert.Equal(t, 5*time.Minute, c.TTL(CategoryAccessRole))
	assert.Equal(t, fallbackTTL, c.TTL(Category("unknown")))

	_, err = Get(context.Background(), c, NewKey(CategoryHealth, ""), func(ctx context.Context) (bool, error) { return true, nil })
	require.NoError(t, err)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestPruneExpired(t *testing.T) {
	c := newTestCoordinator(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	load := func(ctx context.Context) (int, error) { return 1, nil }
	_, err := Get(context.Background(), c, NewKey(CategoryHealth, ""), load)
	require.NoError(t, err)
	_, err = Get(context.Background(), c, NewKey(CategorySiteContent, ""), load)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	assert.Equal(t, 0, c.PruneExpired())

	now = now.Add(time.Minute)
	assert.Equal(t, 1, c.PruneExpired(), "health expires after 30s, site content after 5m")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 30*time.Second, c.MinTTL())
}

func TestGetStamped_NewStampPerLoad(t *testing.T) {
	c := newTestCoordinator(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	calls := 0
	load := func(ctx context.Context) (int, error) { calls++; return calls, nil }
	key := NewKey(CategoryPublicSearchProjection, "")

	_, first, err := GetStamped(context.Background(), c, key, load)
	require.NoError(t, err)
	_, hit, err := GetStamped(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, first, hit, "a cache hit keeps the stamp")

	now = now.Add(2 * time.Minute)
	v, reloaded, err := GetStamped(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.NotEqual(t, first, reloaded)

	c.InvalidateCategory(CategoryPublicSearchProjection)
	_, fresh, err := GetStamped(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.NotEqual(t, reloaded, fresh)
}
