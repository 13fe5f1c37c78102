// Package compare lines up two launches, with their rockets and launch
// sites, as rows of a side-by-side table.
package compare

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
)

// Side is one column of the comparison. Rocket and Launchpad are optional.
type Side struct {
	Launch    *spacex.Launch
	Rocket    *spacex.Rocket
	Launchpad *spacex.Launchpad
}

// Row is one compared attribute. An empty value means not available.
type Row struct {
	Label     string `json:"label"`
	Left      string `json:"left"`
	Right     string `json:"right"`
	Different bool   `json:"different"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Section groups rows under a heading.
type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Table is the full comparison.
type Table struct {
	Sections []Section `json:"sections"`
}

// Row returns the row with label in section title.
func (t Table) Row(title, label string) (Row, bool) {
	for _, s := range t.Sections {
		if s.Title != title {
			continue
		}
		for _, r := range s.Rows {
			if r.Label == label {
				return r, true
			}
		}
	}
	return Row{}, false
}

// Launches compares a and b. Both must carry a launch; rocket and launch
// site sections appear only when at least one side has the record.
func Launches(a, b *Side) Table {
	var t Table
	if a == nil || b == nil || a.Launch == nil || b.Launch == nil {
		return t
	}

	mission := func(label string, fn func(*spacex.Launch) string) Row {
		return row(label, fn(a.Launch), fn(b.Launch))
	}
	vehicle := func(label string, fn func(*spacex.Rocket) string) Row {
		return row(label, rocketValue(a, fn), rocketValue(b, fn))
	}
	site := func(label string, fn func(*spacex.Launchpad) string) Row {
		return row(label, padValue(a, fn), padValue(b, fn))
	}

	t.Sections = append(t.Sections, Section{
		Title: "Mission",
		Rows: []Row{
			mission("Flight Number", flightNumber),
			mission("Launch Date", launchDate),
			mission("Launch Time", launchTime),
			highlight(mission("Mission Status", Status)),
			mission("Crew Size", crewSize),
			mission("Payloads", payloads),
		},
	})

	if a.Rocket != nil || b.Rocket != nil {
		t.Sections = append(t.Sections, Section{
			Title: "Rocket",
			Rows: []Row{
				vehicle("Rocket Name", func(r *spacex.Rocket) string { return r.Name }),
				vehicle("Rocket Type", func(r *spacex.Rocket) string { return r.Type }),
				vehicle("Height", height),
				vehicle("Diameter", diameter),
				vehicle("Mass", mass),
				vehicle("Stages", stages),
				vehicle("Boosters", boosters),
				vehicle("Cost per Launch", cost),
				vehicle("Success Rate", rocketSuccess),
				vehicle("First Flight", func(r *spacex.Rocket) string { return r.FirstFlight }),
			},
		})
	}

	if a.Launchpad != nil || b.Launchpad != nil {
		t.Sections = append(t.Sections, Section{
			Title: "Launch Site",
			Rows: []Row{
				site("Site Name", func(p *spacex.Launchpad) string { return p.Name }),
				site("Full Name", func(p *spacex.Launchpad) string { return p.FullName }),
				site("Location", location),
				site("Status", padStatus),
				site("Launch Attempts", attempts),
				site("Launch Successes", successes),
				site("Success Rate", padSuccess),
			},
		})
	}

	t.Sections = append(t.Sections, Section{
		Title: "Cores",
		Rows: []Row{
			mission("Number of Cores", coreCount),
			mission("Core Reused", anyCore(func(c spacex.Core) *bool { return c.Reused }, "Yes", "No")),
			mission("Landing Attempted", anyCore(func(c spacex.Core) *bool { return c.LandingAttempt }, "Yes", "No")),
			mission("Landing Success", anyCore(func(c spacex.Core) *bool { return c.LandingSuccess }, "Success", "N/A")),
		},
	})

	return t
}

// row marks values as different only when both are present.
func row(label, left, right string) Row {
	return Row{
		Label:     label,
		Left:      left,
		Right:     right,
		Different: left != "" && right != "" && left != right,
	}
}

func highlight(r Row) Row {
	r.Highlight = true
	return r
}

// Status is the mission status label of l.
func Status(l *spacex.Launch) string {
	switch {
	case l.Upcoming:
		return "Upcoming"
	case l.Success == nil:
		return "Unknown"
	case *l.Success:
		return "Success"
	default:
		return "Failed"
	}
}

func rocketValue(s *Side, fn func(*spacex.Rocket) string) string {
	if s.Rocket == nil {
		return ""
	}
	return fn(s.Rocket)
}

func padValue(s *Side, fn func(*spacex.Launchpad) string) string {
	if s.Launchpad == nil {
		return ""
	}
	return fn(s.Launchpad)
}

func flightNumber(l *spacex.Launch) string { return "#" + strconv.Itoa(l.FlightNumber) }
func launchDate(l *spacex.Launch) string   { return l.DateUTC.UTC().Format("January 2, 2006") }
func launchTime(l *spacex.Launch) string   { return l.DateUTC.UTC().Format("15:04:05") + " UTC" }
func payloads(l *spacex.Launch) string     { return strconv.Itoa(len(l.Payloads)) }
func coreCount(l *spacex.Launch) string    { return strconv.Itoa(len(l.Cores)) }

func crewSize(l *spacex.Launch) string {
	if len(l.Crew) == 0 {
		return "Uncrewed"
	}
	return fmt.Sprintf("%d astronauts", len(l.Crew))
}

func anyCore(field func(spacex.Core) *bool, yes, no string) func(*spacex.Launch) string {
	return func(l *spacex.Launch) string {
		for _, c := range l.Cores {
			if v := field(c); v != nil && *v {
				return yes
			}
		}
		return no
	}
}

func dimension(d spacex.Dimension) string {
	if d.Meters == nil || d.Feet == nil {
		return ""
	}
	return fmt.Sprintf("%sm / %sft", number(*d.Meters), number(*d.Feet))
}

func height(r *spacex.Rocket) string   { return dimension(r.Height) }
func diameter(r *spacex.Rocket) string { return dimension(r.Diameter) }
func stages(r *spacex.Rocket) string   { return strconv.Itoa(r.Stages) }
func boosters(r *spacex.Rocket) string { return strconv.Itoa(r.Boosters) }

func mass(r *spacex.Rocket) string {
	return grouped(int64(math.Round(r.Mass.KG))) + " kg"
}

func cost(r *spacex.Rocket) string {
	return fmt.Sprintf("$%.0fM", float64(r.CostPerLaunch)/1e6)
}

func rocketSuccess(r *spacex.Rocket) string {
	return strconv.Itoa(r.SuccessRatePct) + "%"
}

func location(p *spacex.Launchpad) string {
	switch {
	case p.Locality != "" && p.Region != "":
		return p.Locality + ", " + p.Region
	default:
		return p.Locality + p.Region
	}
}

func padStatus(p *spacex.Launchpad) string {
	if p.Status == "active" {
		return "Active"
	}
	if p.Status == "" {
		return ""
	}
	return "Inactive"
}

func attempts(p *spacex.Launchpad) string  { return strconv.Itoa(p.LaunchAttempts) }
func successes(p *spacex.Launchpad) string { return strconv.Itoa(p.LaunchSuccesses) }

func padSuccess(p *spacex.Launchpad) string {
	if p.LaunchAttempts <= 0 {
		return "N/A"
	}
	rate := math.Round(float64(p.LaunchSuccesses) / float64(p.LaunchAttempts) * 100)
	return strconv.Itoa(int(rate)) + "%"
}

// number drops a trailing ".0" from whole numbers.
func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// grouped formats n with comma thousands separators.
func grouped(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
