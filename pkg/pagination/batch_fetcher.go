package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration.
type Config struct {
	// PageSize is the limit of every page request.
	PageSize int

	// MaxConcurrency is the maximum number of parallel requests.
	MaxConcurrency int

	// Timeout per page fetch, retries included.
	Timeout time.Duration
}

// DefaultConfig returns a configuration that stays polite to the public API.
func DefaultConfig() Config {
	return Config{
		PageSize:       200,
		MaxConcurrency: 4,
		Timeout:        45 * time.Second,
	}
}

// PageFetcher fetches a single page of a launch query.
type PageFetcher interface {
	FetchPage(ctx context.Context, offset, limit int) (*spacex.LaunchPage, error)
}

// DatasetQuerier runs aggregate launch queries.
type DatasetQuerier interface {
	QueryDataset(ctx context.Context, q spacex.LaunchQuery) (*spacex.LaunchPage, error)
}

// QueryFetcher pages through one launch query.
type QueryFetcher struct {
	client DatasetQuerier
	query  spacex.LaunchQuery
}

// NewQueryFetcher creates a fetcher for q. Its limit and offset are
// replaced on every page.
func NewQueryFetcher(client DatasetQuerier, q spacex.LaunchQuery) *QueryFetcher {
	return &QueryFetcher{client: client, query: q}
}

// FetchPage implements PageFetcher.
func (f *QueryFetcher) FetchPage(ctx context.Context, offset, limit int) (*spacex.LaunchPage, error) {
	q := f.query
	q.Options.Offset = offset
	q.Options.Limit = limit
	return f.client.QueryDataset(ctx, q)
}

// PageResult represents the result of fetching a single page.
type PageResult struct {
	Offset int
	Docs   []spacex.Launch
	Error  error
}

// BatchFetcher handles parallel fetching of multiple pages.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page of the query and returns the launches in
// offset order. On failure it returns the launches of the pages fetched
// so far, in order, together with the error.
func (bf *BatchFetcher) FetchAll(ctx context.Context) ([]spacex.Launch, error) {
	start := time.Now()
	size := bf.config.PageSize

	firstCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	first, err := bf.fetcher.FetchPage(firstCtx, 0, size)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	total := first.TotalDocs
	if !first.HasNextPage || total <= len(first.Docs) {
		log.Debug().
			Int("launches", len(first.Docs)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Docs, nil
	}
	if err := checkPage(0, size, total, len(first.Docs)); err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	var offsets []int
	for offset := size; offset < total; offset += size {
		offsets = append(offsets, offset)
	}

	log.Info().
		Int("total_docs", total).
		Int("pages", len(offsets)+1).
		Msg("Starting parallel page fetch")

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	pageQueue := make(chan int, len(offsets))
	pageResults := make(chan PageResult, len(offsets))
	for _, offset := range offsets {
		pageQueue <- offset
	}
	close(pageQueue)

	var wg sync.WaitGroup
	for i := 0; i < min(bf.config.MaxConcurrency, len(offsets)); i++ {
		wg.Add(1)
		go bf.worker(ctx, total, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	results := map[int][]spacex.Launch{0: first.Docs}
	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fetch offset %d: %w", result.Offset, result.Error)
				stop()
			}
			continue
		}
		results[result.Offset] = result.Docs
	}
	if firstErr == nil && len(results) < len(offsets)+1 {
		// workers drained the queue after cancellation
		firstErr = ctx.Err()
	}

	launches := assemble(results, size)

	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", len(offsets)+1).
			Msg("Page fetch failed - returning partial results")
		return launches, fmt.Errorf("partial data (%d/%d pages): %w", len(results), len(offsets)+1, firstErr)
	}

	log.Info().
		Int("launches", len(launches)).
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return launches, nil
}

// assemble concatenates pages in page order, stopping at the first
// missing page.
func assemble(pages map[int][]spacex.Launch, size int) []spacex.Launch {
	n := 0
	for _, docs := range pages {
		n += len(docs)
	}

	launches := make([]spacex.Launch, 0, n)
	for index := 0; ; index++ {
		docs, ok := pages[index*size]
		if !ok {
			return launches
		}
		launches = append(launches, docs...)
	}
}

// ErrShortPage is returned when a page other than the last holds fewer
// launches than requested. The dataset changed between page requests, so
// the pages no longer line up.
var ErrShortPage = errors.New("short page")

// checkPage verifies that the page at offset is complete.
func checkPage(offset, size, total, got int) error {
	want := min(size, total-offset)
	if got < want {
		return fmt.Errorf("%w at offset %d: got %d of %d launches", ErrShortPage, offset, got, want)
	}
	return nil
}

// worker processes offsets from the queue.
func (bf *BatchFetcher) worker(ctx context.Context, total int, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for offset := range pageQueue {
		if ctx.Err() != nil {
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.FetchPage(pageCtx, offset, bf.config.PageSize)
		cancel()

		if err == nil {
			err = checkPage(offset, bf.config.PageSize, total, len(page.Docs))
		}
		if err != nil {
			results <- PageResult{Offset: offset, Error: err}
			return
		}

		results <- PageResult{Offset: offset, Docs: page.Docs}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
