package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/spacex-explorer/internal/config"
	"github.com/Sternrassler/spacex-explorer/internal/testutil"
	"github.com/Sternrassler/spacex-explorer/pkg/compare"
	"github.com/Sternrassler/spacex-explorer/pkg/scroll"
	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
	"github.com/Sternrassler/spacex-explorer/pkg/stats"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const queryPath = "/v4/launches/query"

// serveLaunches answers launch queries from fixtures, honouring limit,
// offset and an _id $in selector.
func serveLaunches(fixtures []testutil.LaunchFixture) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var q spacex.LaunchQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		matched := fixtures
		if sel, ok := q.Query["_id"].(map[string]any); ok {
			ids := map[string]bool{}
			for _, id := range sel["$in"].([]any) {
				ids[id.(string)] = true
			}
			matched = nil
			for _, f := range fixtures {
				if ids[f.ID] {
					matched = append(matched, f)
				}
			}
		}

		limit := q.Options.Limit
		if limit <= 0 {
			limit = 10
		}
		offset := min(q.Options.Offset, len(matched))
		end := min(offset+limit, len(matched))

		resp := testutil.NewJSONResponse(testutil.PageDoc(len(matched), limit, offset, matched[offset:end]...))
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		io.WriteString(w, resp.Body)
	}
}

func newTestServer(t *testing.T, mock *testutil.MockSpaceX, redisClient *redis.Client) (*server, http.Handler) {
	t.Helper()

	cfg := config.Default()
	cfg.DatasetPageSize = 10
	cfg.DatasetConcurrency = 2

	clientCfg := spacex.DefaultConfig()
	clientCfg.BaseURL = mock.URL()
	clientCfg.InitialBackoff = 10 * time.Millisecond

	client, err := spacex.New(clientCfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	s := newServer(cfg, client, redisClient, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC) }
	return s, s.routes()
}

// session is a client that keeps the session cookie between requests.
type session struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (s *session) do(method, target string, body string) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			s.cookie = c
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()

	t.Run("without_redis", func(t *testing.T) {
		_, h := newTestServer(t, mock, nil)
		rec := (&session{t: t, h: h}).do("GET", "/ready", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		if got := decode[map[string]string](t, rec)["redis"]; got != "disabled" {
			t.Errorf("Expected redis disabled, got %q", got)
		}
	})

	t.Run("with_redis", func(t *testing.T) {
		_, h := newTestServer(t, mock, testutil.LocalRedis(t))
		rec := (&session{t: t, h: h}).do("GET", "/ready", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
	})

	t.Run("redis_down", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		defer down.Close()

		_, h := newTestServer(t, mock, down)
		rec := (&session{t: t, h: h}).do("GET", "/ready", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", rec.Code)
		}
	})
}

func TestSessionCookie(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	_, h := newTestServer(t, mock, nil)

	s := &session{t: t, h: h}
	s.do("GET", "/api/favorites", "")
	if s.cookie == nil {
		t.Fatal("Expected a session cookie")
	}
	if !s.cookie.HttpOnly {
		t.Error("Expected session cookie to be HttpOnly")
	}

	rec := s.do("GET", "/api/favorites", "")
	if len(rec.Result().Cookies()) != 0 {
		t.Error("Expected existing session to be kept")
	}

	s.cookie = &http.Cookie{Name: sessionCookie, Value: "not-a-uuid"}
	rec = s.do("GET", "/api/favorites", "")
	if len(rec.Result().Cookies()) != 1 {
		t.Error("Expected malformed session to be replaced")
	}
}

func TestListLaunches(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetHandler(queryPath, serveLaunches(testutil.Launches(45)))
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/launches?success=true&sortOrder=asc&bogus=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body)
	}

	resp := decode[launchesResponse](t, rec)
	if len(resp.Launches) != 20 {
		t.Errorf("Expected 20 launches, got %d", len(resp.Launches))
	}
	if !resp.HasMore || resp.Remaining != 25 {
		t.Errorf("Expected more launches with 25 remaining, got hasMore=%v remaining=%d", resp.HasMore, resp.Remaining)
	}
	if resp.Query != "sortOrder=asc&success=true" {
		t.Errorf("Unexpected normalized query %q", resp.Query)
	}
	if resp.ActiveFilters != 2 {
		t.Errorf("Expected 2 active filters, got %d", resp.ActiveFilters)
	}
	if want := "/api/launches?limit=40&sortOrder=asc&success=true"; resp.Next != want {
		t.Errorf("Expected next %q, got %q", want, resp.Next)
	}
	if resp.Restore != nil {
		t.Errorf("Expected no restore on first load, got %+v", resp.Restore)
	}

	var sent spacex.LaunchQuery
	if err := json.Unmarshal(mock.GetLastBody(), &sent); err != nil {
		t.Fatalf("Failed to decode upstream query: %v", err)
	}
	want := spacex.LaunchQuery{
		Query: map[string]any{"success": true},
		Options: spacex.QueryOptions{
			Limit:    20,
			Sort:     map[string]int{"date_utc": 1},
			Populate: []string{"rocket", "launchpad"},
		},
	}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Errorf("upstream query mismatch (-want +got):\n%s", diff)
	}
}

func TestListLaunches_InvalidDate(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/launches?start=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	body := decode[errorBody](t, rec)
	if body.Fields["start"] != "yesterday" {
		t.Errorf("Expected invalid start to be reported, got %+v", body)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("Expected no upstream request, got %d", mock.GetRequestCount())
	}
}

func TestListLaunches_UpstreamFailure(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetResponse(queryPath, testutil.NewServerErrorResponse())
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/launches", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rec.Code)
	}
	if got := decode[errorBody](t, rec).Error; got != "Failed to load launches" {
		t.Errorf("Unexpected error message %q", got)
	}
	if got := mock.GetPathCount(queryPath); got != 3 {
		t.Errorf("Expected 3 upstream attempts, got %d", got)
	}
}

func TestLoadMoreCycle(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetHandler(queryPath, serveLaunches(testutil.Launches(45)))
	_, h := newTestServer(t, mock, nil)

	s := &session{t: t, h: h}
	first := decode[launchesResponse](t, s.do("GET", "/api/launches", ""))
	if len(first.Launches) != 20 {
		t.Fatalf("Expected 20 launches, got %d", len(first.Launches))
	}

	proximity := `{"rendered_count":20,"scroll_y":1200,"has_more":true}`
	rec := s.do("POST", "/api/launches/more", proximity)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body)
	}
	next := decode[map[string]string](t, rec)["next"]
	if want := "/api/launches?limit=40&preserveScroll=true&scrollY=1200"; next != want {
		t.Fatalf("Expected next %q, got %q", want, next)
	}

	if rec := s.do("POST", "/api/launches/more", proximity); rec.Code != http.StatusNoContent {
		t.Errorf("Expected duplicate trigger to be suppressed, got %d", rec.Code)
	}

	second := decode[launchesResponse](t, s.do("GET", next, ""))
	if len(second.Launches) != 40 {
		t.Errorf("Expected 40 launches, got %d", len(second.Launches))
	}
	if diff := cmp.Diff(&scroll.Restore{ScrollY: 1200, Frames: 2}, second.Restore); diff != "" {
		t.Errorf("restore mismatch (-want +got):\n%s", diff)
	}
	if second.Loading {
		t.Error("Expected loading to end with the larger page")
	}

	for i := 0; i < 2; i++ {
		reload := decode[launchesResponse](t, s.do("GET", next, ""))
		if reload.Restore != nil || reload.Loading {
			t.Errorf("Reload %d of %q: expected no restore and no loading, got restore=%+v loading=%v", i+1, next, reload.Restore, reload.Loading)
		}
	}

	rec = s.do("POST", "/api/launches/more", `{"rendered_count":40,"scroll_y":2400,"has_more":true}`)
	if got := decode[map[string]string](t, rec)["next"]; got != "/api/launches?limit=60&preserveScroll=true&scrollY=2400" {
		t.Errorf("Unexpected next %q", got)
	}

	third := decode[launchesResponse](t, s.do("GET", "/api/launches?limit=60&preserveScroll=true&scrollY=2400", ""))
	if len(third.Launches) != 45 || third.HasMore || third.Next != "" {
		t.Errorf("Expected final page of 45, got %d (hasMore=%v next=%q)", len(third.Launches), third.HasMore, third.Next)
	}

	if rec := s.do("POST", "/api/launches/more", `{"rendered_count":45,"scroll_y":3000,"has_more":false}`); rec.Code != http.StatusNoContent {
		t.Errorf("Expected no trigger without more data, got %d", rec.Code)
	}
}

func TestListLaunches_LoadingWhilePending(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetHandler(queryPath, serveLaunches(testutil.Launches(45)))
	_, h := newTestServer(t, mock, nil)

	s := &session{t: t, h: h}
	s.do("GET", "/api/launches", "")
	rec := s.do("POST", "/api/launches/more", `{"rendered_count":20,"scroll_y":600,"has_more":true}`)
	next := decode[map[string]string](t, rec)["next"]

	// the old page answered while the larger one is still outstanding
	pending := decode[launchesResponse](t, s.do("GET", "/api/launches", ""))
	if !pending.Loading || pending.Restore != nil {
		t.Errorf("Expected loading without restore, got loading=%v restore=%+v", pending.Loading, pending.Restore)
	}

	done := decode[launchesResponse](t, s.do("GET", next, ""))
	if done.Loading || done.Restore == nil || done.Restore.ScrollY != 600 {
		t.Errorf("Expected restore to 600 without loading, got loading=%v restore=%+v", done.Loading, done.Restore)
	}
}

func TestListLaunches_FilterChangeResetsLimit(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetHandler(queryPath, serveLaunches(testutil.Launches(100)))
	_, h := newTestServer(t, mock, nil)

	s := &session{t: t, h: h}
	if grown := decode[launchesResponse](t, s.do("GET", "/api/launches?limit=60", "")); len(grown.Launches) != 60 {
		t.Fatalf("Expected 60 launches, got %d", len(grown.Launches))
	}

	changed := decode[launchesResponse](t, s.do("GET", "/api/launches?limit=60&sortOrder=asc", ""))
	if len(changed.Launches) != 20 {
		t.Errorf("Expected 20 launches after a filter change, got %d", len(changed.Launches))
	}
	if changed.Query != "sortOrder=asc" {
		t.Errorf("Unexpected normalized query %q", changed.Query)
	}
	if want := "/api/launches?limit=40&sortOrder=asc"; changed.Next != want {
		t.Errorf("Expected next %q, got %q", want, changed.Next)
	}

	if same := decode[launchesResponse](t, s.do("GET", "/api/launches?limit=40&sortOrder=asc", "")); len(same.Launches) != 40 {
		t.Errorf("Expected the limit to grow under an unchanged filter, got %d launches", len(same.Launches))
	}
}

func TestLoadMore_InvalidBody(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("POST", "/api/launches/more", "{")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetLaunch(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()

	launch := testutil.Launches(1)[0]
	mock.SetJSON("/v4/launches/"+launch.ID, launch.Doc())
	mock.SetJSON("/v4/rockets/falcon9", map[string]any{"id": "falcon9", "name": "Falcon 9", "active": true})
	_, h := newTestServer(t, mock, nil)

	s := &session{t: t, h: h}
	rec := s.do("GET", "/api/launches/"+launch.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Launch    spacex.Launch     `json:"launch"`
		Rocket    *spacex.Rocket    `json:"rocket"`
		Launchpad *spacex.Launchpad `json:"launchpad"`
		Favorite  bool              `json:"favorite"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Launch.ID != launch.ID {
		t.Errorf("Expected launch %s, got %s", launch.ID, resp.Launch.ID)
	}
	if resp.Rocket == nil || resp.Rocket.Name != "Falcon 9" {
		t.Errorf("Expected Falcon 9 rocket, got %+v", resp.Rocket)
	}
	if resp.Launchpad != nil {
		t.Errorf("Expected missing launchpad to be omitted, got %+v", resp.Launchpad)
	}
	if resp.Favorite {
		t.Error("Expected launch not to be a favorite")
	}

	s.do("POST", "/api/favorites/"+launch.ID, "")
	rec = s.do("GET", "/api/launches/"+launch.ID, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Favorite {
		t.Error("Expected launch to be a favorite after toggle")
	}
}

func TestGetLaunch_NotFound(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/launches/does-not-exist", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Launch not found"}` {
		t.Errorf("Unexpected body %s", got)
	}
	if got := mock.GetPathCount("/v4/launches/does-not-exist"); got != 1 {
		t.Errorf("Expected a single attempt for 404, got %d", got)
	}
}

func TestGetLaunch_UpstreamFailure(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetResponse("/v4/launches/launch-1", testutil.NewServerErrorResponse())
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/launches/launch-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	if got := decode[errorBody](t, rec).Error; got != "Launch not found" {
		t.Errorf("Unexpected error message %q", got)
	}
	if got := mock.GetPathCount("/v4/launches/launch-1"); got != 3 {
		t.Errorf("Expected 3 upstream attempts, got %d", got)
	}
}

func TestRocketAndLaunchpad(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetJSON("/v4/rockets/falcon9", map[string]any{"id": "falcon9", "name": "Falcon 9"})
	mock.SetJSON("/v4/launchpads/slc40", map[string]any{"id": "slc40", "name": "CCSFS SLC 40"})
	_, h := newTestServer(t, mock, nil)
	s := &session{t: t, h: h}

	if got := decode[spacex.Rocket](t, s.do("GET", "/api/rockets/falcon9", "")).Name; got != "Falcon 9" {
		t.Errorf("Expected Falcon 9, got %q", got)
	}
	if got := decode[spacex.Launchpad](t, s.do("GET", "/api/launchpads/slc40", "")).Name; got != "CCSFS SLC 40" {
		t.Errorf("Expected CCSFS SLC 40, got %q", got)
	}
	if rec := s.do("GET", "/api/rockets/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestCompare(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()

	launches := testutil.Launches(2)
	launches[1].Success = testutil.Bool(false)
	for _, l := range launches {
		mock.SetJSON("/v4/launches/"+l.ID, l.Doc())
	}
	_, h := newTestServer(t, mock, nil)
	s := &session{t: t, h: h}

	if rec := s.do("GET", "/api/compare?launch1="+launches[0].ID, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 with one launch, got %d", rec.Code)
	}
	if rec := s.do("GET", "/api/compare?launch1="+launches[0].ID+"&launch2=missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown launch, got %d", rec.Code)
	}

	rec := s.do("GET", "/api/compare?launch1="+launches[0].ID+"&launch2="+launches[1].ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body)
	}

	table := decode[compare.Table](t, rec)
	status, ok := table.Row("Mission", "Mission Status")
	if !ok {
		t.Fatal("Expected a Mission Status row")
	}
	want := compare.Row{Label: "Mission Status", Left: "Success", Right: "Failed", Different: true, Highlight: true}
	if diff := cmp.Diff(want, status); diff != "" {
		t.Errorf("status row mismatch (-want +got):\n%s", diff)
	}
}

func TestFavoritesFlow(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetHandler(queryPath, serveLaunches(testutil.Launches(5)))
	_, h := newTestServer(t, mock, nil)

	alice := &session{t: t, h: h}
	bob := &session{t: t, h: h}

	for _, id := range []string{"launch-3", "launch-1"} {
		rec := alice.do("POST", "/api/favorites/"+id, "")
		if got := decode[map[string]any](t, rec)["favorite"]; got != true {
			t.Errorf("Expected %s to become a favorite, got %v", id, got)
		}
	}

	favs := decode[favoritesResponse](t, alice.do("GET", "/api/favorites", ""))
	if diff := cmp.Diff(favoritesResponse{IDs: []string{"launch-1", "launch-3"}, Count: 2}, favs); diff != "" {
		t.Errorf("favorites mismatch (-want +got):\n%s", diff)
	}

	if got := decode[favoritesResponse](t, bob.do("GET", "/api/favorites", "")).Count; got != 0 {
		t.Errorf("Expected sessions to be isolated, bob has %d favorites", got)
	}

	var resolved struct {
		Launches []spacex.Launch `json:"launches"`
	}
	if err := json.Unmarshal(alice.do("GET", "/api/favorites/launches", "").Body.Bytes(), &resolved); err != nil {
		t.Fatalf("Failed to decode favorite launches: %v", err)
	}
	if len(resolved.Launches) != 2 {
		t.Errorf("Expected 2 favorite launches, got %d", len(resolved.Launches))
	}

	if rec := alice.do("DELETE", "/api/favorites/launch-3", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
	rec := alice.do("POST", "/api/favorites/launch-1", "")
	if got := decode[map[string]any](t, rec)["favorite"]; got != false {
		t.Errorf("Expected second toggle to remove favorite, got %v", got)
	}

	before := mock.GetPathCount(queryPath)
	if got := decode[favoritesResponse](t, alice.do("GET", "/api/favorites", "")).Count; got != 0 {
		t.Errorf("Expected no favorites left, got %d", got)
	}
	alice.do("GET", "/api/favorites/launches", "")
	if mock.GetPathCount(queryPath) != before {
		t.Error("Expected no upstream query for an empty favorites list")
	}
}

func TestFavorites_SharedFile(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()

	cfg := config.Default()
	cfg.FavoritesFile = filepath.Join(t.TempDir(), "favorites.json")
	client, err := spacex.New(spacex.Config{BaseURL: mock.URL(), UserAgent: "test", MaxAttempts: 1})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	h := newServer(cfg, client, nil, zerolog.Nop()).routes()

	(&session{t: t, h: h}).do("POST", "/api/favorites/launch-7", "")

	other := decode[favoritesResponse](t, (&session{t: t, h: h}).do("GET", "/api/favorites", ""))
	if diff := cmp.Diff([]string{"launch-7"}, other.IDs); diff != "" {
		t.Errorf("shared favorites mismatch (-want +got):\n%s", diff)
	}
}

func TestFavorites_SharedFileConcurrentAdds(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()

	cfg := config.Default()
	cfg.FavoritesFile = filepath.Join(t.TempDir(), "favorites.json")
	client, err := spacex.New(spacex.Config{BaseURL: mock.URL(), UserAgent: "test", MaxAttempts: 1})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	h := newServer(cfg, client, nil, zerolog.Nop()).routes()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := (&session{t: t, h: h}).do("POST", "/api/favorites/launch-"+strconv.Itoa(i), "")
			if rec.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d: %s", rec.Code, rec.Body)
			}
		}(i)
	}
	wg.Wait()

	got := decode[favoritesResponse](t, (&session{t: t, h: h}).do("GET", "/api/favorites", ""))
	if got.Count != n {
		t.Errorf("Expected %d favorites, got %d", n, got.Count)
	}
}

func TestStats(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetHandler(queryPath, serveLaunches(testutil.Launches(25)))
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body)
	}

	report := decode[stats.Report](t, rec)
	if report.TotalLaunches != 25 {
		t.Errorf("Expected 25 launches, got %d", report.TotalLaunches)
	}
	if report.ThisYearLaunches != 25 {
		t.Errorf("Expected 25 launches this year, got %d", report.ThisYearLaunches)
	}
	if report.SuccessRate != 100 {
		t.Errorf("Expected 100%% success, got %v", report.SuccessRate)
	}
	if got := mock.GetPathCount(queryPath); got != 3 {
		t.Errorf("Expected 3 page requests, got %d", got)
	}
}

func TestStats_UpstreamFailure(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetResponse(queryPath, testutil.NewServerErrorResponse())
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/stats", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	_, h := newTestServer(t, mock, nil)

	rec := (&session{t: t, h: h}).do("GET", "/api/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockSpaceX()
	defer mock.Close()
	mock.SetHandler(queryPath, serveLaunches(testutil.Launches(3)))
	_, h := newTestServer(t, mock, nil)

	s := &session{t: t, h: h}
	s.do("GET", "/api/launches", "")

	rec := s.do("GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "spacex_requests_total") {
		t.Error("Expected spacex_requests_total in metrics output")
	}
}
