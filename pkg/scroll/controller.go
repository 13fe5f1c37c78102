package scroll

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/spacex-explorer/pkg/filter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for scroll coordination.
var (
	triggersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacex_scroll_triggers_total",
		Help: "Total number of load-more triggers that requested a larger page",
	})

	suppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacex_scroll_suppressed_total",
		Help: "Total number of proximity events that did not trigger, by reason",
	}, []string{"reason"})

	restoresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacex_scroll_restores_total",
		Help: "Total number of scroll offsets handed back after a larger page rendered",
	})

	replayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacex_scroll_replayed_handoffs_total",
		Help: "Total number of handoffs ignored because their marker was already consumed",
	})
)

// RestoreFrames is the number of animation frames a client waits before
// applying a restored scroll offset, so layout has settled.
const RestoreFrames = 2

// Proximity is a report that the end of the list came into view.
type Proximity struct {
	RenderedCount int  `json:"rendered_count"`
	ScrollY       int  `json:"scroll_y"`
	HasMore       bool `json:"has_more"`
}

// Trigger asks for the next, larger page.
type Trigger struct {
	Next    filter.Filter
	Handoff Handoff
}

// URL returns the navigation target for the trigger under path.
func (t Trigger) URL(path string) string {
	v := t.Next.Values()
	t.Handoff.Encode(v)
	if q := v.Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

// Restore is the scroll offset to apply once the larger page has rendered.
type Restore struct {
	ScrollY int `json:"scroll_y"`
	Frames  int `json:"frames"`
}

// Controller drives the load-more cycle of one view.
type Controller struct {
	store   Store
	view    string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewController creates a controller for view backed by store.
func NewController(store Store, view string, logger zerolog.Logger) *Controller {
	return &Controller{
		store:   store,
		view:    view,
		timeout: DefaultPendingTimeout,
		logger:  logger.With().Str("view", view).Logger(),
	}
}

// SetPendingTimeout overrides DefaultPendingTimeout.
func (c *Controller) SetPendingTimeout(d time.Duration) {
	c.timeout = d
}

// errSkip aborts an update without writing.
var errSkip = errors.New("skip")

func (c *Controller) update(ctx context.Context, fn func(*ViewState) error) (bool, error) {
	err := c.store.Update(ctx, c.view, fn)
	if errors.Is(err, errSkip) {
		return false, nil
	}
	return err == nil, err
}

// OnProximity handles the end of the list coming into view. It fires when
// more items exist, no fetch is pending and the rendered count differs
// from the count of the previous trigger.
func (c *Controller) OnProximity(ctx context.Context, p Proximity, current filter.Filter) (Trigger, bool, error) {
	var trigger Trigger

	fired, err := c.update(ctx, func(s *ViewState) error {
		switch {
		case !p.HasMore:
			suppressedTotal.WithLabelValues("no_more").Inc()
			return errSkip
		case s.IsPending(c.timeout):
			suppressedTotal.WithLabelValues("pending").Inc()
			return errSkip
		case p.RenderedCount == s.LastTriggeredCount && s.State != PendingFetch:
			suppressedTotal.WithLabelValues("duplicate").Inc()
			return errSkip
		}

		if s.State == PendingFetch {
			c.logger.Warn().
				Int("last_triggered_count", s.LastTriggeredCount).
				Msg("Abandoning stale pending fetch")
		}

		handoff := Handoff{ScrollY: max(p.ScrollY, 0), Loading: true}
		s.State = PendingFetch
		s.LastTriggeredCount = p.RenderedCount
		s.Pending = &handoff
		s.Consumed = false
		s.FilterKey = filterKey(current)

		trigger = Trigger{Next: current.NextPage(), Handoff: handoff}
		return nil
	})
	if err != nil || !fired {
		return Trigger{}, false, err
	}

	triggersTotal.Inc()
	c.logger.Debug().
		Int("rendered_count", p.RenderedCount).
		Int("scroll_y", p.ScrollY).
		Int("next_limit", trigger.Next.Limit).
		Msg("Requesting larger page")

	return trigger, true, nil
}

// OnData handles a page of count items having rendered. When it completes
// a pending fetch, the stored scroll offset is consumed and returned.
func (c *Controller) OnData(ctx context.Context, count int) (Restore, bool, error) {
	var restore Restore

	done, err := c.update(ctx, func(s *ViewState) error {
		if s.State != PendingFetch || count <= s.LastTriggeredCount {
			return errSkip
		}

		s.State = Loaded
		if s.Pending != nil {
			restore = Restore{ScrollY: s.Pending.ScrollY, Frames: RestoreFrames}
		}
		s.Pending = nil
		s.Consumed = true
		s.State = Idle
		return nil
	})
	if err != nil || !done {
		return Restore{}, false, err
	}

	restoresTotal.Inc()
	c.logger.Debug().
		Int("count", count).
		Int("scroll_y", restore.ScrollY).
		Msg("Larger page rendered, restoring scroll offset")

	return restore, true, nil
}

// Mount handles a freshly navigated view. It reports whether the loading
// indicator must stay up, either because h says so or because the view
// still holds a pending marker. A loading handoff with no pending marker
// is adopted as the view's marker, unless the view already consumed its
// marker: the handoff then comes from a reload or a back navigation.
func (c *Controller) Mount(ctx context.Context, h Handoff) (bool, error) {
	var loading bool

	_, err := c.update(ctx, func(s *ViewState) error {
		if s.Pending != nil && s.IsPending(c.timeout) {
			loading = s.Pending.Loading
			return errSkip
		}
		if !h.Loading {
			return errSkip
		}
		if s.Consumed {
			replayedTotal.Inc()
			return errSkip
		}

		handoff := h
		s.Pending = &handoff
		s.State = PendingFetch
		loading = true
		return nil
	})
	return loading, err
}

// Sync records the filter the view is showing. A change of anything but the
// limit resets the view. Returns true if it did.
func (c *Controller) Sync(ctx context.Context, current filter.Filter) (bool, error) {
	key := filterKey(current)
	var reset bool

	_, err := c.update(ctx, func(s *ViewState) error {
		if s.FilterKey == key {
			return errSkip
		}
		reset = s.FilterKey != ""
		s.clear()
		s.FilterKey = key
		return nil
	})
	if reset {
		c.logger.Debug().Msg("Filter changed, scroll state reset")
	}
	return reset, err
}

// Reset drops the pending marker and returns the view to Idle.
func (c *Controller) Reset(ctx context.Context) error {
	_, err := c.update(ctx, func(s *ViewState) error {
		s.clear()
		return nil
	})
	return err
}

// State returns the current state of the view.
func (c *Controller) State(ctx context.Context) (ViewState, error) {
	return c.store.Get(ctx, c.view)
}

// filterKey is never empty, so an unset FilterKey differs from the
// default filter.
func filterKey(f filter.Filter) string {
	f.Limit = 0
	return "?" + f.Values().Encode()
}
