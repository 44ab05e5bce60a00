package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource implements Source for testing.
type mockSource struct {
	mu            sync.Mutex
	all           []Record
	featured      []string
	allErr        error
	featuredErr   error
	fetchAllCalls int
}

func (m *mockSource) FetchAll(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchAllCalls++
	if m.allErr != nil {
		return nil, m.allErr
	}
	return m.all, nil
}

func (m *mockSource) FetchFeatured(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.featuredErr != nil {
		return nil, m.featuredErr
	}
	return m.featured, nil
}

func (m *mockSource) set(all []Record, featured []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.all = all
	m.featured = featured
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecords() []Record {
	return []Record{
		{Address: "So11111111111111111111111111111111111111112", Decimals: 9, Symbol: "SOL", Name: "Wrapped SOL"},
		{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6, Symbol: "USDC", Name: "USD Coin"},
		{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6, Symbol: "USDT", Name: "USDT"},
		{Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5, Symbol: "BONK", Name: "Bonk"},
	}
}

func TestRefresh_InstallsSnapshot(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{
		all:      sampleRecords(),
		featured: []string{"So11111111111111111111111111111111111111112", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
	}
	cache := NewCache(source, time.Minute, nil, testLogger())

	cache.Refresh(ctx)

	snap := cache.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.All, 4)
	assert.Len(t, snap.Featured, 2)
	assert.Equal(t, "SOL", snap.Featured[0].Symbol)
	assert.Equal(t, "USDC", snap.Featured[1].Symbol)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestRefresh_DeduplicatesAddresses(t *testing.T) {
	ctx := context.Background()
	dup := sampleRecords()
	dup = append(dup, Record{Address: dup[0].Address, Symbol: "SOL2", Name: "Impostor"})
	source := &mockSource{all: dup}
	cache := NewCache(source, time.Minute, nil, testLogger())

	cache.Refresh(ctx)

	snap := cache.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.All, 4)
	// First occurrence wins
	assert.Equal(t, "SOL", snap.All[0].Symbol)
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{all: sampleRecords()}
	cache := NewCache(source, time.Minute, nil, testLogger())

	cache.Refresh(ctx)
	first := cache.Snapshot()
	require.NotNil(t, first)

	source.mu.Lock()
	source.allErr = assert.AnError
	source.mu.Unlock()

	cache.Refresh(ctx)

	// Stale-but-available over empty
	assert.Same(t, first, cache.Snapshot())
}

func TestRefresh_FeaturedFailureStillInstalls(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{all: sampleRecords(), featuredErr: assert.AnError}
	cache := NewCache(source, time.Minute, nil, testLogger())

	cache.Refresh(ctx)

	snap := cache.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.All, 4)
	assert.Empty(t, snap.Featured)
}

func TestQuery_FeaturedDefault(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{
		all:      sampleRecords(),
		featured: []string{"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
	}
	cache := NewCache(source, time.Minute, nil, testLogger())
	cache.Refresh(ctx)

	page, total := cache.Query(ctx, "", 10, 0)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, "USDC", page[0].Symbol)
}

func TestQuery_EmptyFeaturedFallsBackToAll(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{all: sampleRecords()}
	cache := NewCache(source, time.Minute, nil, testLogger())
	cache.Refresh(ctx)

	page, total := cache.Query(ctx, "", 10, 0)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 4)
}

func TestQuery_SearchMatchesSymbolOrName(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{all: sampleRecords()}
	cache := NewCache(source, time.Minute, nil, testLogger())
	cache.Refresh(ctx)

	// Case-insensitive symbol substring
	page, total := cache.Query(ctx, "usd", 10, 0)
	assert.Equal(t, 2, total)
	require.Len(t, page, 2)
	assert.Equal(t, "USDC", page[0].Symbol)
	assert.Equal(t, "USDT", page[1].Symbol)

	// Name substring
	page, total = cache.Query(ctx, "wrapped", 10, 0)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, "SOL", page[0].Symbol)
}

func TestQuery_PaginationBoundaries(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{all: sampleRecords()}
	cache := NewCache(source, time.Minute, nil, testLogger())
	cache.Refresh(ctx)

	// Page inside range
	page, total := cache.Query(ctx, "", 2, 1)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "USDC", page[0].Symbol)

	// limit+offset clipped to available length
	page, total = cache.Query(ctx, "", 10, 3)
	assert.Equal(t, 4, total)
	require.Len(t, page, 1)
	assert.Equal(t, "BONK", page[0].Symbol)

	// Offset past the end yields empty page, correct total
	page, total = cache.Query(ctx, "", 10, 100)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)

	// Zero limit yields empty page
	page, total = cache.Query(ctx, "", 0, 0)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)
}

func TestQuery_FallbackFetchWhenEmpty(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{all: sampleRecords()}
	cache := NewCache(source, time.Minute, nil, testLogger())

	// No Refresh has run; Query should fetch on demand.
	page, total := cache.Query(ctx, "", 10, 0)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 4)
	assert.Equal(t, 1, source.fetchAllCalls)

	// The fallback installs the snapshot, so the next query is served from memory.
	cache.Query(ctx, "", 10, 0)
	assert.Equal(t, 1, source.fetchAllCalls)
}

func TestSnapshotAtomicity_FeaturedAlwaysSubsetOfAll(t *testing.T) {
	ctx := context.Background()
	source := &mockSource{
		all:      sampleRecords(),
		featured: []string{"So11111111111111111111111111111111111111112"},
	}
	cache := NewCache(source, time.Minute, nil, testLogger())
	cache.Refresh(ctx)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// Writer: keep swapping between two catalogs.
	wg.Add(1)
	go func() {
		defer wg.Done()
		alt := []Record{
			{Address: "mintA1111111111111111111111111111111111111", Symbol: "AAA", Name: "Alpha"},
			{Address: "mintB1111111111111111111111111111111111111", Symbol: "BBB", Name: "Beta"},
		}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				source.set(alt, []string{"mintA1111111111111111111111111111111111111"})
			} else {
				source.set(sampleRecords(), []string{"So11111111111111111111111111111111111111112"})
			}
			cache.Refresh(ctx)
		}
	}()

	// Readers: every observed snapshot must be internally consistent.
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := cache.Snapshot()
				if snap == nil {
					continue
				}
				addrs := make(map[string]struct{}, len(snap.All))
				for _, rec := range snap.All {
					addrs[rec.Address] = struct{}{}
				}
				for _, rec := range snap.Featured {
					if _, ok := addrs[rec.Address]; !ok {
						t.Errorf("featured token %s missing from all", rec.Address)
					}
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestLookupByAddress(t *testing.T) {
	source := &mockSource{
		all: []Record{
			{Address: "addr1", Symbol: "AAA", Name: "Asset A"},
			{Address: "addr2", Symbol: "BBB", Name: "Asset B"},
		},
	}
	cache := NewCache(source, time.Minute, nil, testLogger())
	cache.Refresh(context.Background())

	rec, ok := cache.Lookup(context.Background(), "addr2")
	require.True(t, ok)
	assert.Equal(t, "BBB", rec.Symbol)

	_, ok = cache.Lookup(context.Background(), "missing")
	assert.False(t, ok)
}
