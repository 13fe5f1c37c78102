//go:build integration

package spacex

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/spacex-explorer/internal/testutil"
	"github.com/Sternrassler/spacex-explorer/pkg/cache"
)

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient := testutil.StartRedis(t)

	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.Enqueue(queryPath, testutil.NewServerErrorResponse())
	mock.SetJSON(queryPath, testutil.PageDoc(45, 20, 0, testutil.Launches(20)...))

	cfg := DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.InitialBackoff = 10 * time.Millisecond
	cfg.Cache = cache.NewManager(redisClient)
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	q := LaunchQuery{
		Query:   map[string]any{},
		Options: QueryOptions{Limit: 20, Sort: map[string]int{"date_utc": -1}},
	}

	// Request 1: retried once, then cached
	t.Log("Request 1: initial request")
	page, err := client.QueryLaunches(ctx, q)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if len(page.Docs) != 20 || !page.HasMore() {
		t.Errorf("Request 1: len=%d hasMore=%v", len(page.Docs), page.HasMore())
	}
	if n := mock.GetPathCount(queryPath); n != 2 {
		t.Errorf("After request 1: requests = %d, want 2", n)
	}

	// Request 2: served from Redis
	t.Log("Request 2: cached request")
	if _, err := client.QueryLaunches(ctx, q); err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if n := mock.GetPathCount(queryPath); n != 2 {
		t.Errorf("After request 2: requests = %d, want 2", n)
	}

	body, _ := client.requestBody(q)
	entry, err := client.cache.Get(ctx, cache.CacheKey{
		Kind:     cache.KindLaunches,
		Endpoint: "/launches/query",
		Body:     body,
	})
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("Cached status = %d, want 200", entry.StatusCode)
	}
	if ttl := entry.TTL(); ttl <= 0 || ttl > cache.KindLaunches.TTL() {
		t.Errorf("Cached TTL = %v, want within (0, %v]", ttl, cache.KindLaunches.TTL())
	}
}

func TestIntegration_UpcomingUsesOwnTTL(t *testing.T) {
	redisClient := testutil.StartRedis(t)

	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetJSON(queryPath, testutil.PageDoc(0, 20, 0))

	cfg := DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.Cache = cache.NewManager(redisClient)
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	q := LaunchQuery{Query: map[string]any{"upcoming": true}}
	if _, err := client.QueryLaunches(ctx, q); err != nil {
		t.Fatalf("QueryLaunches failed: %v", err)
	}

	body, _ := client.requestBody(q)
	entry, err := client.cache.Get(ctx, cache.CacheKey{
		Kind:     cache.KindUpcomingLaunches,
		Endpoint: "/launches/query",
		Body:     body,
	})
	if err != nil {
		t.Fatalf("upcoming query should be cached under its own kind: %v", err)
	}
	if entry.TTL() <= cache.KindLaunches.TTL() {
		t.Errorf("upcoming TTL %v should exceed listing TTL %v", entry.TTL(), cache.KindLaunches.TTL())
	}
}
