// Package pagination fetches every page of a launch query in parallel.
//
// The upstream API pages with limit/offset and reports the total number
// of matching documents on every page. The first page is fetched alone to
// learn that total; the remaining offsets are spread over a worker pool
// and the pages are reassembled in offset order.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(
//		pagination.NewQueryFetcher(client, spacex.LaunchQuery{}),
//		pagination.DefaultConfig(),
//	)
//	launches, err := fetcher.FetchAll(ctx)
//
// The batch fetcher:
//   - Fetches the first page to determine the total
//   - Spawns a worker pool (default 4 workers)
//   - Distributes the remaining offsets across workers
//   - Returns the pages fetched so far together with the first error
package pagination
