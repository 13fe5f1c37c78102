// Package scroll implements the infinite-scroll controller of the launch
// list: when to ask for a bigger page, and which scroll offset to restore
// once the bigger page has rendered.
//
// State is kept per view in a Store so that it survives the navigation
// that reloads the list. The scroll offset itself travels with the
// navigation as a Handoff encoded in the next URL.
package scroll

import (
	"time"
)

// State is the position of a view in the load-more cycle.
type State string

const (
	// Idle waits for the next proximity trigger.
	Idle State = "idle"

	// PendingFetch has requested a larger page that has not rendered yet.
	PendingFetch State = "pending_fetch"

	// Loaded has rendered the larger page. It is transient: the controller
	// moves on to Idle in the same step.
	Loaded State = "loaded"
)

// DefaultPendingTimeout bounds how long a PendingFetch blocks new
// triggers. A navigation that never completes would otherwise pin the
// view in PendingFetch.
const DefaultPendingTimeout = 30 * time.Second

// ViewState is the persisted state of one list view.
type ViewState struct {
	// State is the current load-more state.
	State State `json:"state"`

	// LastTriggeredCount is the rendered item count that fired the last
	// trigger. A second trigger at the same count is a duplicate.
	LastTriggeredCount int `json:"last_triggered_count"`

	// Pending is the scroll marker written by the last trigger and
	// consumed once the larger page renders. At most one exists per view.
	Pending *Handoff `json:"pending,omitempty"`

	// Consumed is set once the marker has been handed back as a Restore.
	// A handoff replayed from the URL after that is not adopted again.
	Consumed bool `json:"consumed,omitempty"`

	// FilterKey identifies the filter the view was showing, limit excluded.
	FilterKey string `json:"filter_key,omitempty"`

	// UpdatedAt is when the state was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewViewState returns the state of a view that has never triggered.
func NewViewState() ViewState {
	return ViewState{State: Idle}
}

// IsStale returns true if the state is older than maxAge.
func (s *ViewState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.UpdatedAt) > maxAge
}

// IsPending reports whether a fetch is in flight and younger than timeout.
func (s *ViewState) IsPending(timeout time.Duration) bool {
	return s.State == PendingFetch && !s.IsStale(timeout)
}

// clear drops the pending marker and returns to Idle.
func (s *ViewState) clear() {
	s.State = Idle
	s.LastTriggeredCount = 0
	s.Pending = nil
	s.Consumed = false
}
