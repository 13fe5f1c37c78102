package scroll

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/spacex-explorer/pkg/filter"
	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
)

// Querier runs launch queries.
type Querier interface {
	QueryLaunches(ctx context.Context, q spacex.LaunchQuery) (*spacex.LaunchPage, error)
}

// InfiniteQuery loads a filter's launches one fixed-size page at a time
// and keeps every page fetched so far.
type InfiniteQuery struct {
	client Querier
	filter filter.Filter

	mu    sync.Mutex
	pages []*spacex.LaunchPage
}

// NewInfiniteQuery creates a query for f. Each page holds f.Limit items.
func NewInfiniteQuery(client Querier, f filter.Filter) *InfiniteQuery {
	if f.Limit < 1 {
		f.Limit = filter.DefaultLimit
	}
	return &InfiniteQuery{client: client, filter: f}
}

// HasNext reports whether another page can be fetched.
func (q *InfiniteQuery) HasNext() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasNext()
}

func (q *InfiniteQuery) hasNext() bool {
	if len(q.pages) == 0 {
		return true
	}
	return q.pages[len(q.pages)-1].HasMore()
}

// FetchNext loads the next page. It returns false without a request when
// the last page reported no successor. A failed fetch keeps the pages
// loaded so far.
func (q *InfiniteQuery) FetchNext(ctx context.Context) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.hasNext() {
		return false, nil
	}

	offset := len(q.pages) * q.filter.Limit
	query, err := q.filter.Query(offset)
	if err != nil {
		return false, err
	}

	page, err := q.client.QueryLaunches(ctx, query)
	if err != nil {
		return false, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}

	q.pages = append(q.pages, page)
	return true, nil
}

// Pages returns the number of pages loaded.
func (q *InfiniteQuery) Pages() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pages)
}

// Items returns the launches of all loaded pages in order.
func (q *InfiniteQuery) Items() []spacex.Launch {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, p := range q.pages {
		n += len(p.Docs)
	}
	items := make([]spacex.Launch, 0, n)
	for _, p := range q.pages {
		items = append(items, p.Docs...)
	}
	return items
}

// Total returns the total match count reported by the latest page.
func (q *InfiniteQuery) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pages) == 0 {
		return 0
	}
	return q.pages[len(q.pages)-1].TotalDocs
}
