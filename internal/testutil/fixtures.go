package testutil

import (
	"strconv"
	"time"
)

// LaunchFixture describes a launch document for mock responses.
type LaunchFixture struct {
	ID        string
	Name      string
	Flight    int
	Date      time.Time
	Success   *bool
	Upcoming  bool
	Rocket    string
	Launchpad string
	Crew      int
	Payloads  int
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Doc renders the fixture in the API's JSON shape.
func (f LaunchFixture) Doc() map[string]any {
	crew := make([]string, f.Crew)
	for i := range crew {
		crew[i] = f.ID + "-crew-" + string(rune('a'+i))
	}
	payloads := make([]string, f.Payloads)
	for i := range payloads {
		payloads[i] = f.ID + "-payload-" + string(rune('a'+i))
	}

	var success any
	if f.Success != nil {
		success = *f.Success
	}

	return map[string]any{
		"id":             f.ID,
		"flight_number":  f.Flight,
		"name":           f.Name,
		"date_utc":       f.Date.UTC().Format("2006-01-02T15:04:05.000Z"),
		"date_unix":      f.Date.Unix(),
		"date_precision": "hour",
		"rocket":         f.Rocket,
		"launchpad":      f.Launchpad,
		"success":        success,
		"upcoming":       f.Upcoming,
		"crew":           crew,
		"payloads":       payloads,
		"ships":          []string{},
		"capsules":       []string{},
		"failures":       []any{},
		"cores":          []any{},
		"links":          map[string]any{},
	}
}

// PageDoc renders a page envelope around the given launches.
func PageDoc(total, limit, offset int, launches ...LaunchFixture) map[string]any {
	docs := make([]map[string]any, 0, len(launches))
	for _, l := range launches {
		docs = append(docs, l.Doc())
	}

	if limit <= 0 {
		limit = 10
	}
	page := offset/limit + 1
	totalPages := (total + limit - 1) / limit
	hasNext := offset+len(launches) < total

	return map[string]any{
		"docs":          docs,
		"totalDocs":     total,
		"limit":         limit,
		"offset":        offset,
		"totalPages":    totalPages,
		"page":          page,
		"pagingCounter": offset + 1,
		"hasPrevPage":   offset > 0,
		"hasNextPage":   hasNext,
	}
}

// Launches builds n sequential launch fixtures starting at flight 1.
func Launches(n int) []LaunchFixture {
	base := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]LaunchFixture, n)
	for i := range out {
		out[i] = LaunchFixture{
			ID:        "launch-" + strconv.Itoa(i+1),
			Name:      "Mission " + strconv.Itoa(i+1),
			Flight:    i + 1,
			Date:      base.AddDate(0, 0, 7*i),
			Success:   Bool(true),
			Rocket:    "falcon9",
			Launchpad: "slc40",
		}
	}
	return out
}
