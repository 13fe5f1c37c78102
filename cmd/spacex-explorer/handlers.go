package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Sternrassler/spacex-explorer/pkg/compare"
	"github.com/Sternrassler/spacex-explorer/pkg/favorites"
	"github.com/Sternrassler/spacex-explorer/pkg/filter"
	"github.com/Sternrassler/spacex-explorer/pkg/pagination"
	"github.com/Sternrassler/spacex-explorer/pkg/scroll"
	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
	"github.com/Sternrassler/spacex-explorer/pkg/stats"
	"github.com/go-chi/chi/v5"
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) error {
	if s.redis == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "redis": "disabled"})
		return nil
	}
	if err := s.redis.Ping(r.Context()).Err(); err != nil {
		return &httpError{status: http.StatusServiceUnavailable, message: "redis unavailable", err: err}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "redis": "ok"})
	return nil
}

// controller returns the scroll controller of the session's launch list.
func (s *server) controller(ctx context.Context) *scroll.Controller {
	c := scroll.NewController(s.scroll, sessionFrom(ctx)+":launches", s.logger)
	c.SetPendingTimeout(s.cfg.PendingTimeout)
	return c
}

type launchesResponse struct {
	Launches      []spacex.Launch `json:"launches"`
	TotalDocs     int             `json:"totalDocs"`
	HasMore       bool            `json:"hasMore"`
	Remaining     int             `json:"remaining"`
	Query         string          `json:"query"`
	ActiveFilters int             `json:"activeFilters"`
	Next          string          `json:"next,omitempty"`
	Restore       *scroll.Restore `json:"restore,omitempty"`

	// Loading keeps the load-more indicator up: a larger page was
	// requested and this response did not complete it.
	Loading bool `json:"loading"`
}

// handleLaunches serves one growing page of the filtered launch list. A
// scroll handoff in the URL is consumed once the larger page is loaded.
func (s *server) handleLaunches(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	params := r.URL.Query()
	handoff, _ := scroll.DecodeHandoff(params)
	scroll.StripHandoff(params)
	f := filter.Normalize(params)

	if _, err := f.Query(0); errors.Is(err, filter.ErrInvalidDate) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid date", Fields: f.InvalidDates})
		return nil
	}

	ctrl := s.controller(ctx)
	f, err := s.sync(ctx, ctrl, f)
	if err != nil {
		return err
	}
	loading, err := ctrl.Mount(ctx, handoff)
	if err != nil {
		return fmt.Errorf("mount scroll state: %w", err)
	}

	q, err := f.Query(0)
	if err != nil {
		return err
	}
	page, err := s.client.QueryLaunches(ctx, q)
	if err != nil {
		return upstreamError(err, "Launches not found", "Failed to load launches")
	}

	resp := launchesResponse{
		Launches:      page.Docs,
		TotalDocs:     page.TotalDocs,
		HasMore:       page.HasMore(),
		Remaining:     page.Remaining(),
		Query:         f.Values().Encode(),
		ActiveFilters: f.ActiveCount(),
	}
	if resp.HasMore {
		resp.Next = f.NextPage().URL(launchesPath)
	}

	restore, ok, err := ctrl.OnData(ctx, len(page.Docs))
	if err != nil {
		return fmt.Errorf("record loaded page: %w", err)
	}
	if ok {
		resp.Restore = &restore
	}
	resp.Loading = loading && !ok

	writeJSON(w, http.StatusOK, resp)
	return nil
}

// sync records f as the filter the session's list is showing. A changed
// filter starts over at the default page size.
func (s *server) sync(ctx context.Context, ctrl *scroll.Controller, f filter.Filter) (filter.Filter, error) {
	reset, err := ctrl.Sync(ctx, f)
	if err != nil {
		return f, fmt.Errorf("sync scroll state: %w", err)
	}
	if reset {
		f.Limit = filter.DefaultLimit
	}
	return f, nil
}

// handleLoadMore receives a proximity report for the list described by
// the query string and answers with the URL of the next page, or 204.
func (s *server) handleLoadMore(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var p scroll.Proximity
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return &httpError{status: http.StatusBadRequest, message: "Invalid proximity report", err: err}
	}

	params := r.URL.Query()
	scroll.StripHandoff(params)
	f := filter.Normalize(params)

	ctrl := s.controller(ctx)
	f, err := s.sync(ctx, ctrl, f)
	if err != nil {
		return err
	}

	trigger, fired, err := ctrl.OnProximity(ctx, p, f)
	if err != nil {
		return fmt.Errorf("handle proximity: %w", err)
	}
	if !fired {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	writeJSON(w, http.StatusOK, map[string]string{"next": trigger.URL(launchesPath)})
	return nil
}

type launchResponse struct {
	Launch    *spacex.Launch    `json:"launch"`
	Rocket    *spacex.Rocket    `json:"rocket,omitempty"`
	Launchpad *spacex.Launchpad `json:"launchpad,omitempty"`
	Favorite  bool              `json:"favorite"`
}

func (s *server) handleLaunch(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	side, err := s.side(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	store, err := s.openFavorites(ctx)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, launchResponse{
		Launch:    side.Launch,
		Rocket:    side.Rocket,
		Launchpad: side.Launchpad,
		Favorite:  store.Has(side.Launch.ID),
	})
	return nil
}

// side loads a launch with its rocket and launch site. Only the launch is
// required; a rocket or site that fails to load is left out.
func (s *server) side(ctx context.Context, id string) (*compare.Side, error) {
	launch, err := s.client.GetLaunch(ctx, id)
	if errors.Is(err, context.Canceled) {
		return nil, upstreamError(err, "Launch not found", "Failed to load launch")
	}
	if err != nil {
		// a detail lookup that fails for any reason shows the not-found state
		return nil, &httpError{status: http.StatusNotFound, message: "Launch not found", err: err}
	}
	side := &compare.Side{Launch: launch}

	if launch.Rocket.Value != nil {
		side.Rocket = launch.Rocket.Value
	} else if launch.Rocket.ID != "" {
		rocket, err := s.client.GetRocket(ctx, launch.Rocket.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("rocket", launch.Rocket.ID).Msg("Rocket unavailable")
		}
		side.Rocket = rocket
	}

	if launch.Launchpad.Value != nil {
		side.Launchpad = launch.Launchpad.Value
	} else if launch.Launchpad.ID != "" {
		pad, err := s.client.GetLaunchpad(ctx, launch.Launchpad.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("launchpad", launch.Launchpad.ID).Msg("Launchpad unavailable")
		}
		side.Launchpad = pad
	}

	return side, nil
}

func (s *server) handleRocket(w http.ResponseWriter, r *http.Request) error {
	rocket, err := s.client.GetRocket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return upstreamError(err, "Rocket not found", "Failed to load rocket")
	}
	writeJSON(w, http.StatusOK, rocket)
	return nil
}

func (s *server) handleLaunchpad(w http.ResponseWriter, r *http.Request) error {
	pad, err := s.client.GetLaunchpad(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return upstreamError(err, "Launchpad not found", "Failed to load launchpad")
	}
	writeJSON(w, http.StatusOK, pad)
	return nil
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id1 := strings.TrimSpace(r.URL.Query().Get("launch1"))
	id2 := strings.TrimSpace(r.URL.Query().Get("launch2"))
	if id1 == "" || id2 == "" {
		return &httpError{status: http.StatusBadRequest, message: "Select two launches to compare"}
	}

	left, err := s.side(ctx, id1)
	if err != nil {
		return err
	}
	right, err := s.side(ctx, id2)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, compare.Launches(left, right))
	return nil
}

func (s *server) openFavorites(ctx context.Context) (*favorites.Store, error) {
	store, err := favorites.Open(ctx, s.favorites(sessionFrom(ctx)), s.logger)
	if err != nil {
		return nil, fmt.Errorf("open favorites: %w", err)
	}
	return store, nil
}

type favoritesResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func (s *server) handleFavorites(w http.ResponseWriter, r *http.Request) error {
	store, err := s.openFavorites(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, favoritesResponse{IDs: store.IDs(), Count: store.Count()})
	return nil
}

func (s *server) handleFavoriteLaunches(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	store, err := s.openFavorites(ctx)
	if err != nil {
		return err
	}

	launches, err := s.client.GetLaunches(ctx, store.IDs())
	if err != nil {
		return upstreamError(err, "Launches not found", "Failed to load favorite launches")
	}
	writeJSON(w, http.StatusOK, map[string]any{"launches": launches, "count": store.Count()})
	return nil
}

func (s *server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	store, err := s.openFavorites(ctx)
	if err != nil {
		return err
	}

	id := chi.URLParam(r, "id")
	favorite, err := store.Toggle(ctx, id)
	if errors.Is(err, favorites.ErrEmptyID) {
		return &httpError{status: http.StatusBadRequest, message: "Launch id is required", err: err}
	}
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": favorite, "count": store.Count()})
	return nil
}

func (s *server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	store, err := s.openFavorites(ctx)
	if err != nil {
		return err
	}

	if err := store.Remove(ctx, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, favorites.ErrEmptyID) {
			return &httpError{status: http.StatusBadRequest, message: "Launch id is required", err: err}
		}
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleStats aggregates every launch. The dataset is fetched in parallel
// pages; a partial dataset is not reported.
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) error {
	query := spacex.LaunchQuery{
		Options: spacex.QueryOptions{
			Sort:     map[string]int{"date_utc": 1},
			Populate: []string{"rocket"},
		},
	}
	fetcher := pagination.NewBatchFetcher(
		pagination.NewQueryFetcher(s.client, query),
		pagination.Config{
			PageSize:       s.cfg.DatasetPageSize,
			MaxConcurrency: s.cfg.DatasetConcurrency,
		},
	)

	launches, err := fetcher.FetchAll(r.Context())
	if err != nil {
		return upstreamError(err, "Launches not found", "Failed to load statistics")
	}

	writeJSON(w, http.StatusOK, stats.Compute(launches, s.now()))
	return nil
}

// memoryPorts keeps one in-memory favorites port per session.
type memoryPorts struct {
	mu    sync.Mutex
	ports map[string]*favorites.MemoryPort
}

func newMemoryPorts() *memoryPorts {
	return &memoryPorts{ports: make(map[string]*favorites.MemoryPort)}
}

func (m *memoryPorts) get(session string) favorites.Port {
	m.mu.Lock()
	defer m.mu.Unlock()
	port, ok := m.ports[session]
	if !ok {
		port = favorites.NewMemoryPort(nil)
		m.ports[session] = port
	}
	return port
}
