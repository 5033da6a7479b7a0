// Package cursor provides a stateful, lazily fetched view over a paginated
// and filtered remote collection, addressable by a single zero-based index.
//
// A Cursor holds at most one page in memory and fetches another only when a
// move lands outside it:
//
//	c := cursor.New[client.SessionFile](source, cursor.WithPageSize(20))
//	if err := c.Init(ctx, filter.And(filter.New("session_name", "contains", "2021"))); err != nil {
//	    return err
//	}
//	if _, err := c.Next(ctx, 20); err != nil {
//	    return err
//	}
//	item, _ := c.Item()
//
// A Cursor is not safe for concurrent use.
package cursor

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/xemway/xemway-files/internal/cache"
	"github.com/xemway/xemway-files/pkg/filter"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 20

// Cursor is a positional iterator over a remote collection.
type Cursor[T any] struct {
	fetcher  PageFetcher[T]
	pageSize int
	base     filter.Node
	session  filter.Node
	cache    *cache.PageCache[*Page[T]]
	timeout  time.Duration

	initialized bool
	page        int
	items       []T
	count       int
	index       int

	fetches   int
	cacheHits int
	fetched   *roaring.Bitmap
}

type options struct {
	pageSize     int
	base         filter.Node
	cacheSize    int
	fetchTimeout time.Duration
}

// Option configures a Cursor.
type Option func(*options)

// WithPageSize sets the fixed page stride. Values below one are ignored.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.pageSize = n
		}
	}
}

// WithBaseFilter sets a filter that is and-combined with every filter passed
// to Init.
func WithBaseFilter(n filter.Node) Option {
	return func(o *options) {
		o.base = n
	}
}

// WithPageCache keeps up to maxPages fetched pages in memory so moving back
// to a recently visited page does not hit the network. Only the records are
// cached; Count always comes from the most recent fetch. Values below one
// disable the cache.
func WithPageCache(maxPages int) Option {
	return func(o *options) {
		o.cacheSize = maxPages
	}
}

// WithFetchTimeout bounds every page request. Zero or negative means the
// caller's context is the only limit.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// New creates an uninitialized cursor over fetcher.
func New[T any](fetcher PageFetcher[T], opts ...Option) *Cursor[T] {
	o := &options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(o)
	}

	c := &Cursor[T]{
		fetcher:  fetcher,
		pageSize: o.pageSize,
		base:     o.base,
		timeout:  o.fetchTimeout,
		fetched:  roaring.New(),
	}
	if o.cacheSize > 0 {
		pc, err := cache.NewPageCache[*Page[T]](o.cacheSize)
		if err != nil {
			slog.Debug("page cache disabled",
				slog.Int("max_pages", o.cacheSize),
				slog.String("error", err.Error()),
			)
		} else {
			c.cache = pc
		}
	}
	return c
}

// Init sets the session-level filter and positions the cursor on the first
// record. f may be nil. Init can be called again to restart with another
// filter; on failure the previous state is kept.
//
// An empty collection initializes successfully with a zero Count.
func (c *Cursor[T]) Init(ctx context.Context, f filter.Node) error {
	prevSession := c.session
	c.session = f
	if c.cache != nil {
		c.cache.Purge()
	}

	if err := c.seek(ctx, 0, true); err != nil {
		c.session = prevSession
		return err
	}
	c.initialized = true
	return nil
}

// PageSize returns the fixed page stride.
func (c *Cursor[T]) PageSize() int {
	return c.pageSize
}

// FilterTree returns the combined session and base filter, nil when neither
// is set.
func (c *Cursor[T]) FilterTree() filter.Node {
	return filter.Combine(c.session, c.base)
}

// Count returns the total number of matching records as of the last fetch.
func (c *Cursor[T]) Count() (int, error) {
	if !c.initialized {
		return 0, ErrNotInitialized
	}
	return c.count, nil
}

// Index returns the global position of the current record.
func (c *Cursor[T]) Index() (int, error) {
	if !c.initialized {
		return 0, ErrNotInitialized
	}
	return c.index, nil
}

// Page returns the 1-based number of the page held in memory.
func (c *Cursor[T]) Page() (int, error) {
	if !c.initialized {
		return 0, ErrNotInitialized
	}
	return c.page, nil
}

// Item returns the current record.
func (c *Cursor[T]) Item() (T, error) {
	var zero T
	if !c.initialized {
		return zero, ErrNotInitialized
	}
	if c.count == 0 {
		return zero, &IndexOutOfRangeError{Index: c.index, Count: c.count}
	}
	return c.items[c.offset(c.index, c.page)], nil
}

// Next moves forward by n records and returns the cursor.
// It fails when index+n >= Count; the last valid index is Count-1.
func (c *Cursor[T]) Next(ctx context.Context, n int) (*Cursor[T], error) {
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	if n < 1 {
		return nil, ErrInvalidStep
	}
	return c.moveTo(ctx, c.index+n)
}

// Prev moves back by n records and returns the cursor.
// It fails when index-n < 0.
func (c *Cursor[T]) Prev(ctx context.Context, n int) (*Cursor[T], error) {
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	if n < 1 {
		return nil, ErrInvalidStep
	}
	return c.moveTo(ctx, c.index-n)
}

// Seek moves to the absolute position id and returns the cursor.
func (c *Cursor[T]) Seek(ctx context.Context, id int) (*Cursor[T], error) {
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	return c.moveTo(ctx, id)
}

// All yields every record from the current position to the end of the
// collection, advancing the cursor as it goes. Iteration stops after the
// first error.
func (c *Cursor[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if !c.initialized {
			yield(zero, ErrNotInitialized)
			return
		}
		if c.count == 0 {
			return
		}
		for {
			if !yield(c.items[c.offset(c.index, c.page)], nil) {
				return
			}
			if c.index+1 >= c.count {
				return
			}
			if err := c.seek(ctx, c.index+1, false); err != nil {
				yield(zero, err)
				return
			}
		}
	}
}

// Stats describes the network activity of a cursor.
type Stats struct {
	Fetches      int   // page requests sent to the fetcher
	CacheHits    int   // pages served from the page cache
	PagesFetched []int // distinct page numbers fetched, ascending
}

// Stats returns fetch counters.
func (c *Cursor[T]) Stats() Stats {
	pages := make([]int, 0, c.fetched.GetCardinality())
	for _, p := range c.fetched.ToArray() {
		pages = append(pages, int(p))
	}
	return Stats{
		Fetches:      c.fetches,
		CacheHits:    c.cacheHits,
		PagesFetched: pages,
	}
}

func (c *Cursor[T]) moveTo(ctx context.Context, id int) (*Cursor[T], error) {
	if id < 0 || id >= c.count {
		return nil, &IndexOutOfRangeError{Index: id, Count: c.count}
	}
	if err := c.seek(ctx, id, false); err != nil {
		return nil, err
	}
	return c, nil
}

// seek positions the cursor on id, fetching the page that contains it when
// it is not the one in memory. State is only replaced once the target slot is
// known to exist.
func (c *Cursor[T]) seek(ctx context.Context, id int, force bool) error {
	page := 1
	if id > 0 {
		page = id/c.pageSize + 1
	}

	items, count := c.items, c.count
	if force || page != c.page {
		if cached, ok := c.cached(page); ok && id < c.count && c.offset(id, page) < len(cached) {
			c.cacheHits++
			items = cached
		} else {
			pg, err := c.load(ctx, page)
			if err != nil {
				return err
			}
			items, count = pg.Items, pg.Pagination.Count
		}
	}

	empty := id == 0 && count == 0 && len(items) == 0
	if !empty && (id >= count || c.offset(id, page) >= len(items)) {
		return &FetchError{Page: page, Err: ErrInconsistentPagination}
	}

	c.page = page
	c.items = items
	c.count = count
	c.index = id
	return nil
}

func (c *Cursor[T]) offset(id, page int) int {
	return id - (page-1)*c.pageSize
}

// cached returns the records of page when the page cache holds them. A
// cached page that no longer covers the target slot is fetched again by the
// caller.
func (c *Cursor[T]) cached(page int) ([]T, bool) {
	if c.cache == nil {
		return nil, false
	}
	pg, ok := c.cache.Get(page)
	if !ok {
		return nil, false
	}
	return pg.Items, true
}

func (c *Cursor[T]) load(ctx context.Context, page int) (*Page[T], error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := PageRequest{
		Page:     page,
		PageSize: c.pageSize,
		Filter:   c.session,
		Base:     c.base,
	}

	start := time.Now()
	c.fetches++
	pg, err := c.fetcher.FetchPage(ctx, req)
	if err != nil {
		slog.Debug("page fetch failed",
			slog.Int("page", page),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{Page: page, Err: err}
	}
	if pg == nil {
		return nil, &FetchError{Page: page, Err: errors.New("empty page response")}
	}
	if pg.Pagination.Page != 0 && pg.Pagination.Page != page {
		return nil, &FetchError{Page: page, Err: ErrInconsistentPagination}
	}
	if pg.Pagination.PageSize != 0 && pg.Pagination.PageSize != c.pageSize {
		slog.Debug("server page size differs from cursor stride",
			slog.Int("server_page_size", pg.Pagination.PageSize),
			slog.Int("page_size", c.pageSize),
		)
	}

	c.fetched.Add(uint32(page))
	if c.cache != nil {
		c.cache.Put(page, &Page[T]{
			Items: pg.Items,
			Pagination: Pagination{
				Page:     pg.Pagination.Page,
				PageSize: pg.Pagination.PageSize,
			},
		})
	}

	slog.Debug("page fetched",
		slog.Int("page", page),
		slog.Int("items", len(pg.Items)),
		slog.Int("count", pg.Pagination.Count),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return pg, nil
}
