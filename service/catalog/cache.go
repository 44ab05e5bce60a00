package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FlipZ3ro/superswapui/service/metrics"
)

// Record describes one tradable token in the directory.
// Records are immutable once a snapshot is installed; a refresh builds a
// whole new snapshot rather than mutating records in place.
type Record struct {
	Address      string  `json:"address"`
	Decimals     int     `json:"decimals"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	IconURI      string  `json:"logoURI"`
	OwnerProgram string  `json:"ownerProgram,omitempty"`
	Balance      *uint64 `json:"balance,omitempty"` // base units, present only for wallet-held tokens
}

// Snapshot is one immutable view of the token directory.
// Featured is always a subset of All by address; All holds no duplicates.
type Snapshot struct {
	All       []Record
	Featured  []Record
	FetchedAt time.Time
}

// Source fetches the raw directory data from the upstream catalog service.
type Source interface {
	// FetchAll returns the full token catalog.
	FetchAll(ctx context.Context) ([]Record, error)

	// FetchFeatured returns the addresses of the featured subset.
	FetchFeatured(ctx context.Context) ([]string, error)
}

// Cache holds the token directory in memory and refreshes it in the
// background. Queries are served from the installed snapshot; a failed
// refresh leaves the previous snapshot in place.
type Cache struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	snapshot   atomic.Pointer[Snapshot]
	refreshing atomic.Bool

	// serializes the empty-snapshot fallback fetch so concurrent queries
	// don't fan out to the upstream
	fallbackMu sync.Mutex
}

// NewCache creates a token directory cache. It holds no data until the
// first Refresh (or an on-demand fallback fetch from Query).
func NewCache(source Source, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Cache {
	return &Cache{
		source:   source,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

// Run refreshes the cache once immediately and then on a fixed period until
// the context is cancelled. Intended to run in its own goroutine.
func (c *Cache) Run(ctx context.Context) {
	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("catalog refresh loop stopped")
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh fetches the catalog and featured list and atomically installs a
// new snapshot. Failures are logged and leave the existing snapshot
// untouched; Refresh never returns an error to its caller. Concurrent
// refreshes are collapsed: if one is already in flight, the call is a no-op.
func (c *Cache) Refresh(ctx context.Context) {
	if !c.refreshing.CompareAndSwap(false, true) {
		c.logger.Debug("catalog refresh already in flight, skipping")
		return
	}
	defer c.refreshing.Store(false)

	start := time.Now()
	snap, err := c.buildSnapshot(ctx)
	duration := time.Since(start).Seconds()

	if err != nil {
		c.metrics.RecordCatalogRefresh("error", duration)
		c.logger.Error("catalog refresh failed, keeping previous snapshot", "error", err)
		return
	}

	c.snapshot.Store(snap)
	c.metrics.RecordCatalogRefresh("success", duration)
	c.metrics.RecordCatalogSnapshotSize(len(snap.All), len(snap.Featured))
	c.logger.Info("catalog refreshed",
		"tokens", len(snap.All),
		"featured", len(snap.Featured),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// buildSnapshot fetches the full catalog and featured list and assembles an
// immutable snapshot. The featured subset preserves catalog order and the
// catalog is de-duplicated by address, first occurrence wins.
func (c *Cache) buildSnapshot(ctx context.Context) (*Snapshot, error) {
	all, err := c.source.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(all))
	deduped := make([]Record, 0, len(all))
	for _, rec := range all {
		if _, ok := seen[rec.Address]; ok {
			continue
		}
		seen[rec.Address] = struct{}{}
		deduped = append(deduped, rec)
	}

	featured := []Record{}
	featuredAddrs, err := c.source.FetchFeatured(ctx)
	if err != nil {
		// The featured list is an enrichment; a full catalog with an empty
		// featured subset is still a usable snapshot.
		c.logger.Warn("failed to fetch featured token list", "error", err)
	} else {
		featured = intersectByAddress(deduped, featuredAddrs)
	}

	return &Snapshot{
		All:       deduped,
		Featured:  featured,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Snapshot returns the currently installed snapshot, or nil if no refresh
// has succeeded yet.
func (c *Cache) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Query returns one page of the directory and the total match count.
//
// With an empty search the source is the featured subset; if that is empty
// the full catalog is used instead. With a search term the source is the
// full catalog filtered case-insensitively on symbol-or-name substring.
// Pagination is applied after filtering; offsets past the end yield an
// empty page, not an error.
//
// If no snapshot is installed yet, Query falls back to fetching the catalog
// on demand.
func (c *Cache) Query(ctx context.Context, search string, limit, offset int) ([]Record, int) {
	snap := c.snapshot.Load()
	if snap == nil {
		snap = c.fallbackFetch(ctx)
	}

	var source []Record
	if search == "" {
		c.metrics.RecordCatalogQuery("featured")
		source = snap.Featured
		if len(source) == 0 {
			source = snap.All
		}
	} else {
		c.metrics.RecordCatalogQuery("search")
		needle := strings.ToLower(search)
		for _, rec := range snap.All {
			if strings.Contains(strings.ToLower(rec.Symbol), needle) ||
				strings.Contains(strings.ToLower(rec.Name), needle) {
				source = append(source, rec)
			}
		}
	}

	total := len(source)
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Record{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return source[offset:end], total
}

// Lookup resolves a record by exact address. It falls back to an on-demand
// fetch when no snapshot is installed yet.
func (c *Cache) Lookup(ctx context.Context, address string) (Record, bool) {
	snap := c.snapshot.Load()
	if snap == nil {
		snap = c.fallbackFetch(ctx)
	}
	for _, rec := range snap.All {
		if rec.Address == address {
			return rec, true
		}
	}
	return Record{}, false
}

// fallbackFetch serves queries arriving before the first successful refresh.
// It fetches the catalog synchronously and installs it, so only the first
// such query pays the upstream round trip.
func (c *Cache) fallbackFetch(ctx context.Context) *Snapshot {
	c.fallbackMu.Lock()
	defer c.fallbackMu.Unlock()

	if snap := c.snapshot.Load(); snap != nil {
		return snap
	}

	snap, err := c.buildSnapshot(ctx)
	if err != nil {
		c.logger.Error("on-demand catalog fetch failed", "error", err)
		return &Snapshot{All: []Record{}, Featured: []Record{}, FetchedAt: time.Now().UTC()}
	}

	c.snapshot.Store(snap)
	c.metrics.RecordCatalogSnapshotSize(len(snap.All), len(snap.Featured))
	return snap
}

// intersectByAddress returns the records whose address appears in addrs,
// preserving the order of records.
func intersectByAddress(records []Record, addrs []string) []Record {
	want := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		want[a] = struct{}{}
	}

	out := make([]Record, 0, len(addrs))
	for _, rec := range records {
		if _, ok := want[rec.Address]; ok {
			out = append(out, rec)
		}
	}
	return out
}
