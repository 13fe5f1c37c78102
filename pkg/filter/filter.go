package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
)

const (
	// DefaultLimit is the page size of a fresh filter.
	DefaultLimit = 20

	// PageStep is added to the limit on every "load more".
	PageStep = 20
)

// ErrInvalidDate is returned by Query when a date bound did not parse.
var ErrInvalidDate = errors.New("invalid date")

// SortField selects the sort key.
type SortField string

// SortOrder selects the sort direction.
type SortOrder string

const (
	SortByDate SortField = "date"
	SortByName SortField = "name"

	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// DateRange bounds launches by date_utc. Either end may be open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Filter is the canonical launch-list filter.
type Filter struct {
	Upcoming  *bool
	Success   *bool
	DateRange *DateRange
	Search    string
	SortBy    SortField
	SortOrder SortOrder
	Limit     int

	// InvalidDates holds the raw start/end values that failed to parse.
	InvalidDates map[string]string
}

// Default returns the filter with no constraints.
func Default() Filter {
	return Filter{
		SortBy:    SortByDate,
		SortOrder: Descending,
		Limit:     DefaultLimit,
	}
}

// Normalize builds a Filter from URL query parameters. Unknown keys are
// ignored and no error is raised.
func Normalize(params url.Values) Filter {
	f := Default()

	f.Upcoming = parseBool(params.Get("upcoming"))
	f.Success = parseBool(params.Get("success"))

	start := f.parseDate("start", params.Get("start"))
	end := f.parseDate("end", params.Get("end"))
	if start != nil || end != nil || len(f.InvalidDates) > 0 {
		f.DateRange = &DateRange{Start: start, End: end}
	}

	f.Search = params.Get("search")

	if params.Get("sortBy") == string(SortByName) {
		f.SortBy = SortByName
	}
	if params.Get("sortOrder") == string(Ascending) {
		f.SortOrder = Ascending
	}

	if n, err := strconv.Atoi(strings.TrimSpace(params.Get("limit"))); err == nil && n >= 1 {
		f.Limit = n
	}

	return f
}

func parseBool(s string) *bool {
	switch s {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (f *Filter) parseDate(key, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if f.InvalidDates == nil {
		f.InvalidDates = make(map[string]string)
	}
	f.InvalidDates[key] = raw
	return nil
}

// Values renders the filter as URL parameters, omitting defaults.
func (f Filter) Values() url.Values {
	v := url.Values{}

	if f.Upcoming != nil {
		v.Set("upcoming", strconv.FormatBool(*f.Upcoming))
	}
	if f.Success != nil {
		v.Set("success", strconv.FormatBool(*f.Success))
	}
	if f.DateRange != nil {
		if f.DateRange.Start != nil {
			v.Set("start", formatDate(*f.DateRange.Start))
		}
		if f.DateRange.End != nil {
			v.Set("end", formatDate(*f.DateRange.End))
		}
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.SortBy != "" && f.SortBy != SortByDate {
		v.Set("sortBy", string(f.SortBy))
	}
	if f.SortOrder != "" && f.SortOrder != Descending {
		v.Set("sortOrder", string(f.SortOrder))
	}
	if f.Limit != DefaultLimit && f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}

	return v
}

// URL returns path with the filter's query string appended.
func (f Filter) URL(path string) string {
	if q := f.Values().Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

// Apply moves from f to next. A change to anything but the limit starts
// over at DefaultLimit; a limit-only change is kept as is.
func (f Filter) Apply(next Filter) Filter {
	if f.Equal(next) {
		return next
	}
	next.Limit = DefaultLimit
	return next
}

// NextPage returns the same filter with room for one more page.
func (f Filter) NextPage() Filter {
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	f.Limit += PageStep
	return f
}

// ActiveCount is the number of fields that differ from their default.
// Limit is not counted.
func (f Filter) ActiveCount() int {
	n := 0
	for _, active := range []bool{
		f.Upcoming != nil,
		f.Success != nil,
		f.DateRange != nil,
		f.Search != "",
		f.SortBy != "" && f.SortBy != SortByDate,
		f.SortOrder != "" && f.SortOrder != Descending,
	} {
		if active {
			n++
		}
	}
	return n
}

// Equal reports whether f and o select the same launches in the same order,
// ignoring the limit.
func (f Filter) Equal(o Filter) bool {
	f.Limit, o.Limit = 0, 0
	return f.Values().Encode() == o.Values().Encode() &&
		fmt.Sprint(f.InvalidDates) == fmt.Sprint(o.InvalidDates)
}

// Query builds the upstream payload for one page starting at offset.
func (f Filter) Query(offset int) (spacex.LaunchQuery, error) {
	if len(f.InvalidDates) > 0 {
		return spacex.LaunchQuery{}, fmt.Errorf("%w: %s", ErrInvalidDate, f.invalidDateList())
	}

	query := map[string]any{}
	if f.Upcoming != nil {
		query["upcoming"] = *f.Upcoming
	}
	if f.Success != nil {
		query["success"] = *f.Success
	}
	if f.DateRange != nil {
		bounds := map[string]any{}
		if f.DateRange.Start != nil {
			bounds["$gte"] = formatDate(*f.DateRange.Start)
		}
		if f.DateRange.End != nil {
			bounds["$lte"] = formatDate(*f.DateRange.End)
		}
		if len(bounds) > 0 {
			query["date_utc"] = bounds
		}
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		query["name"] = map[string]any{
			"$regex":   search,
			"$options": "i",
		}
	}

	limit := f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	return spacex.LaunchQuery{
		Query: query,
		Options: spacex.QueryOptions{
			Limit:    limit,
			Offset:   offset,
			Sort:     map[string]int{f.sortKey(): f.sortDirection()},
			Populate: []string{"rocket", "launchpad"},
		},
	}, nil
}

func (f Filter) sortKey() string {
	if f.SortBy == SortByName {
		return "name"
	}
	return "date_utc"
}

func (f Filter) sortDirection() int {
	if f.SortOrder == Ascending {
		return 1
	}
	return -1
}

func (f Filter) invalidDateList() string {
	parts := make([]string, 0, len(f.InvalidDates))
	for _, key := range []string{"start", "end"} {
		if raw, ok := f.InvalidDates[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%q", key, raw))
		}
	}
	return strings.Join(parts, ", ")
}

// formatDate matches JavaScript's Date.toISOString.
func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
