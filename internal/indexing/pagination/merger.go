// Package pagination accumulates cursor-paged registry results into one
// ordered, de-duplicated sequence.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vietddude/cemetery/internal/core/domain"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 50

var (
	// ErrSuperseded is returned when the query or page size changed while a fetch was in flight.
	ErrSuperseded = errors.New("fetch superseded")

	// ErrNoMorePages is returned by FetchNext after the chain is exhausted.
	ErrNoMorePages = errors.New("no more pages")

	// ErrSearchUnsupported is returned when a query is set but no search source exists.
	ErrSearchUnsupported = errors.New("search fetcher not configured")
)

// Fetcher loads one page of the unfiltered listing.
type Fetcher[T any] func(ctx context.Context, cursor domain.Cursor) (domain.Page[T], error)

// SearchFetcher loads one page of the filtered listing for query.
type SearchFetcher[T any] func(ctx context.Context, query string, cursor domain.Cursor) (domain.Page[T], error)

// Merger keeps the accumulated records of one paginated listing. Pages are
// appended in fetch order, a consumed offset is never requested again and
// records are de-duplicated by key.
type Merger[T any] struct {
	fetch  Fetcher[T]
	search SearchFetcher[T]
	key    func(T) string

	// fetchMu serializes page fetches so cursors are consumed in order.
	fetchMu sync.Mutex

	mu         sync.Mutex
	pageSize   int
	query      string
	items      []T
	seen       map[string]struct{}
	consumed   map[int]struct{}
	next       *domain.Cursor
	started    bool
	total      int
	generation uint64
	cancel     context.CancelFunc
}

// NewMerger creates a merger over fetch. search may be nil when the listing
// has no filtered source.
func NewMerger[T any](fetch Fetcher[T], search SearchFetcher[T], key func(T) string) *Merger[T] {
	m := &Merger[T]{
		fetch:    fetch,
		search:   search,
		key:      key,
		pageSize: DefaultPageSize,
	}
	m.resetLocked()
	return m
}

// FetchNext loads the next page and merges it into the accumulation. It
// returns the page as received. A result that arrives after SetQuery,
// SetPageSize or Reset is discarded with ErrSuperseded.
func (m *Merger[T]) FetchNext(ctx context.Context) (domain.Page[T], error) {
	m.fetchMu.Lock()
	defer m.fetchMu.Unlock()

	m.mu.Lock()
	cursor, ok := m.nextCursorLocked()
	if !ok {
		m.mu.Unlock()
		return domain.Page[T]{}, ErrNoMorePages
	}
	gen := m.generation
	query := m.query
	fetchCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()
	defer cancel()

	var (
		page domain.Page[T]
		err  error
	)
	if query != "" {
		if m.search == nil {
			return domain.Page[T]{}, ErrSearchUnsupported
		}
		page, err = m.search(fetchCtx, query, cursor)
	} else {
		page, err = m.fetch(fetchCtx, cursor)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		slog.Debug("Discarding superseded page", "offset", cursor.Offset, "generation", gen)
		return domain.Page[T]{}, ErrSuperseded
	}
	m.cancel = nil
	if err != nil {
		return domain.Page[T]{}, fmt.Errorf("fetch page at offset %d: %w", cursor.Offset, err)
	}

	m.mergeLocked(cursor, page)
	return page, nil
}

// FetchAll drains the cursor chain and returns the full accumulation.
func (m *Merger[T]) FetchAll(ctx context.Context) ([]T, error) {
	for m.HasMore() {
		if _, err := m.FetchNext(ctx); err != nil {
			if errors.Is(err, ErrNoMorePages) {
				break
			}
			return nil, err
		}
	}
	return m.Items(), nil
}

// HasMore reports whether another page can be fetched. Before the first
// fetch it is true; afterwards it follows the last page's next cursor.
func (m *Merger[T]) HasMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.nextCursorLocked()
	return ok
}

// Items returns a copy of the accumulated records.
func (m *Merger[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// Total returns the total reported by the most recent page.
func (m *Merger[T]) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Query returns the active search query.
func (m *Merger[T]) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// Generation returns the supersession counter.
func (m *Merger[T]) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// SetQuery switches between listing and search mode. A changed query drops
// the accumulation.
func (m *Merger[T]) SetQuery(query string) {
	query = strings.TrimSpace(query)
	m.mu.Lock()
	defer m.mu.Unlock()
	if query == m.query {
		return
	}
	m.query = query
	m.invalidateLocked()
}

// SetPageSize changes the page size. A changed size drops the accumulation.
func (m *Merger[T]) SetPageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid page size %d", n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n == m.pageSize {
		return nil
	}
	m.pageSize = n
	m.invalidateLocked()
	return nil
}

// PageSize returns the configured page size.
func (m *Merger[T]) PageSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageSize
}

// Reset drops the accumulation, e.g. after a mutation invalidated the pages.
func (m *Merger[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateLocked()
}

func (m *Merger[T]) invalidateLocked() {
	m.generation++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.resetLocked()
}

func (m *Merger[T]) resetLocked() {
	m.items = nil
	m.seen = make(map[string]struct{})
	m.consumed = make(map[int]struct{})
	m.next = nil
	m.started = false
	m.total = 0
}

func (m *Merger[T]) nextCursorLocked() (domain.Cursor, bool) {
	if !m.started {
		return domain.Cursor{Offset: 0, PageSize: m.pageSize}, true
	}
	if m.next == nil {
		return domain.Cursor{}, false
	}
	if _, done := m.consumed[m.next.Offset]; done {
		return domain.Cursor{}, false
	}
	return *m.next, true
}

func (m *Merger[T]) mergeLocked(cursor domain.Cursor, page domain.Page[T]) {
	m.started = true
	m.consumed[cursor.Offset] = struct{}{}
	m.total = page.Total

	for _, item := range page.Items {
		k := m.key(item)
		if _, dup := m.seen[k]; dup {
			continue
		}
		m.seen[k] = struct{}{}
		m.items = append(m.items, item)
	}

	if page.NextCursor == nil {
		m.next = nil
		return
	}
	next := *page.NextCursor
	if next.PageSize <= 0 {
		next.PageSize = m.pageSize
	}
	m.next = &next
}
