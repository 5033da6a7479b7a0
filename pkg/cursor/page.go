package cursor

import (
	"context"

	"github.com/xemway/xemway-files/pkg/filter"
)

// PageRequest describes one page to fetch.
type PageRequest struct {
	Page     int         // 1-based page number
	PageSize int         // fixed stride of the cursor
	Filter   filter.Node // session-level filter, nil when absent
	Base     filter.Node // base filter set at construction, nil when absent
}

// Skip returns the number of records before the requested page.
func (r PageRequest) Skip() int {
	return (r.Page - 1) * r.PageSize
}

// Filters returns the present filters in wire order: session filter first,
// then the base filter.
func (r PageRequest) Filters() []filter.Node {
	var out []filter.Node
	if r.Filter != nil {
		out = append(out, r.Filter)
	}
	if r.Base != nil {
		out = append(out, r.Base)
	}
	return out
}

// Pagination is the paging metadata returned with a page.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Count    int `json:"count"`
}

// Page is one fetched slice of the collection.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// PageFetcher fetches pages of a remote collection.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, req PageRequest) (*Page[T], error)
}

// FetcherFunc adapts a function to PageFetcher.
type FetcherFunc[T any] func(ctx context.Context, req PageRequest) (*Page[T], error)

// FetchPage implements PageFetcher.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, req PageRequest) (*Page[T], error) {
	return f(ctx, req)
}
