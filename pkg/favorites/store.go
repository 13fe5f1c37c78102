// Package favorites keeps a set of favorite launch ids behind a
// persistence Port.
//
// The set is stored as a JSON array of ids in ascending order, so the
// stored bytes depend only on the set's contents: toggling an id twice
// writes back exactly what was there before.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var togglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spacex_favorites_changes_total",
	Help: "Total number of favorite changes by action",
}, []string{"action"})

// ErrEmptyID is returned for a blank launch id.
var ErrEmptyID = errors.New("launch id is empty")

// Port reads and writes the serialized set. Load returns nil data when
// nothing has been stored yet.
//
// Update reads the stored set, passes it to fn and stores what fn returns,
// with no other write in between. If fn returns an error or nil data,
// nothing is written.
type Port interface {
	Load(ctx context.Context) ([]byte, error)
	Update(ctx context.Context, fn func([]byte) ([]byte, error)) error
}

// Store is a set of favorite launch ids. It is safe for concurrent use.
type Store struct {
	port   Port
	logger zerolog.Logger

	mu  sync.Mutex
	ids map[string]struct{}
}

// NewStore creates an empty store on port. Call Load to read the stored set.
func NewStore(port Port, logger zerolog.Logger) *Store {
	return &Store{
		port:   port,
		logger: logger,
		ids:    make(map[string]struct{}),
	}
}

// Open creates a store on port and loads it.
func Open(ctx context.Context, port Port, logger zerolog.Logger) (*Store, error) {
	s := NewStore(port, logger)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory set with the stored one. A stored value that
// does not decode is logged and treated as empty.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.port.Load(ctx)
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}

	ids := s.decode(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = toSet(ids)
	return nil
}

// Toggle adds id if absent and removes it otherwise. It returns whether id
// is a favorite afterwards. The change is applied to the stored set, so
// concurrent changes through other stores on the same port are kept. The
// set is unchanged if saving fails.
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added bool
	var next map[string]struct{}
	err := s.port.Update(ctx, func(data []byte) ([]byte, error) {
		next = toSet(s.decode(data))
		if _, had := next[id]; had {
			delete(next, id)
			added = false
		} else {
			next[id] = struct{}{}
			added = true
		}
		return Encode(keys(next)), nil
	})
	if err != nil {
		_, has := s.ids[id]
		return has, fmt.Errorf("save favorites: %w", err)
	}
	s.ids = next

	if added {
		togglesTotal.WithLabelValues("add").Inc()
	} else {
		togglesTotal.WithLabelValues("remove").Inc()
	}
	return added, nil
}

// Remove deletes id. Removing an id that is not a favorite is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	var next map[string]struct{}
	err := s.port.Update(ctx, func(data []byte) ([]byte, error) {
		next = toSet(s.decode(data))
		if _, removed = next[id]; !removed {
			return nil, nil
		}
		delete(next, id)
		return Encode(keys(next)), nil
	})
	if err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	s.ids = next

	if removed {
		togglesTotal.WithLabelValues("remove").Inc()
	}
	return nil
}

// Has reports whether id is a favorite.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the favorite ids in ascending order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys(s.ids)
}

// Count returns the number of favorites.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Store) decode(data []byte) []string {
	ids, err := Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load favorites, starting empty")
		return nil
	}
	return ids
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func keys(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Encode serializes ids as a JSON array in ascending order.
func Encode(ids []string) []byte {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if sorted == nil {
		sorted = []string{}
	}
	data, _ := json.Marshal(sorted)
	return data
}

// Decode parses a serialized set. Empty input is an empty set. Blank and
// duplicate ids are dropped.
func Decode(data []byte) ([]string, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}
