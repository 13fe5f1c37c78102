// Package stats aggregates launches into the figures behind the
// statistics view.
package stats

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
)

// TopRockets is the number of rockets listed in Report.Rockets.
const TopRockets = 5

// PayloadSample is the number of launches listed in Report.Payloads.
const PayloadSample = 10

// Outcome colors used by the outcome chart.
const (
	ColorSuccess  = "#10b981"
	ColorFailure  = "#ef4444"
	ColorUpcoming = "#3b82f6"
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Year counts the launches of one calendar year.
type Year struct {
	Year    int `json:"year"`
	Total   int `json:"total"`
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// SuccessRate is the rounded success percentage of one year.
type SuccessRate struct {
	Year     int `json:"year"`
	Rate     int `json:"rate"`
	Launches int `json:"launches"`
}

// Rocket counts the launches of one rocket.
type Rocket struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Success     int    `json:"success"`
	Failure     int    `json:"failure"`
	SuccessRate int    `json:"successRate"`
}

// Slice is one segment of the outcome chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// Month counts launches in one calendar month across all years.
type Month struct {
	Month    string `json:"month"`
	Launches int    `json:"launches"`
}

// Payload is the payload and crew count of one launch.
type Payload struct {
	Name     string `json:"name"`
	Payloads int    `json:"payloads"`
	Crew     int    `json:"crew"`
}

// Report is the full set of statistics.
type Report struct {
	TotalLaunches    int           `json:"totalLaunches"`
	SuccessRate      float64       `json:"successRate"`
	ThisYearLaunches int           `json:"thisYearLaunches"`
	UpcomingCount    int           `json:"upcomingCount"`
	Yearly           []Year        `json:"yearly"`
	SuccessRates     []SuccessRate `json:"successRates"`
	Rockets          []Rocket      `json:"rockets"`
	Outcomes         []Slice       `json:"outcomes"`
	Monthly          []Month       `json:"monthly"`
	Payloads         []Payload     `json:"payloads"`
}

// Compute aggregates launches. Dates are bucketed in UTC and now selects
// the current year.
func Compute(launches []spacex.Launch, now time.Time) Report {
	report := Report{
		TotalLaunches: len(launches),
		Yearly:        []Year{},
		SuccessRates:  []SuccessRate{},
		Rockets:       []Rocket{},
		Monthly:       []Month{},
		Payloads:      []Payload{},
	}

	years := map[int]*Year{}
	rockets := map[string]*Rocket{}
	var months [12]int
	var success, failure, upcoming int
	currentYear := now.UTC().Year()

	for _, l := range launches {
		date := l.DateUTC.UTC()

		y, ok := years[date.Year()]
		if !ok {
			y = &Year{Year: date.Year()}
			years[date.Year()] = y
		}
		y.Total++

		name := rocketName(l)
		r, ok := rockets[name]
		if !ok {
			r = &Rocket{Name: name}
			rockets[name] = r
		}
		r.Count++

		if l.Success != nil {
			if *l.Success {
				success++
				y.Success++
				r.Success++
			} else {
				failure++
				y.Failure++
				r.Failure++
			}
		}
		if l.Upcoming {
			upcoming++
		}
		if date.Year() == currentYear {
			report.ThisYearLaunches++
		}
		months[date.Month()-1]++
	}

	for _, y := range years {
		report.Yearly = append(report.Yearly, *y)
	}
	slices.SortFunc(report.Yearly, func(a, b Year) int { return cmp.Compare(a.Year, b.Year) })

	for _, y := range report.Yearly {
		report.SuccessRates = append(report.SuccessRates, SuccessRate{
			Year:     y.Year,
			Rate:     percent(y.Success, y.Total),
			Launches: y.Total,
		})
	}

	for _, r := range rockets {
		r.SuccessRate = percent(r.Success, r.Count)
		report.Rockets = append(report.Rockets, *r)
	}
	slices.SortFunc(report.Rockets, func(a, b Rocket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(report.Rockets) > TopRockets {
		report.Rockets = report.Rockets[:TopRockets]
	}

	report.Outcomes = []Slice{
		{Name: "Success", Value: success, Color: ColorSuccess},
		{Name: "Failure", Value: failure, Color: ColorFailure},
		{Name: "Upcoming", Value: upcoming, Color: ColorUpcoming},
	}

	for i, n := range months {
		if n > 0 {
			report.Monthly = append(report.Monthly, Month{Month: monthNames[i], Launches: n})
		}
	}

	for _, l := range launches[:min(len(launches), PayloadSample)] {
		report.Payloads = append(report.Payloads, Payload{
			Name:     l.Name,
			Payloads: len(l.Payloads),
			Crew:     len(l.Crew),
		})
	}

	if known := success + failure; known > 0 {
		report.SuccessRate = float64(success) / float64(known) * 100
	}
	report.UpcomingCount = upcoming

	return report
}

// rocketName prefers the populated rocket name over its id.
func rocketName(l spacex.Launch) string {
	if l.Rocket.Value != nil && l.Rocket.Value.Name != "" {
		return l.Rocket.Value.Name
	}
	return l.Rocket.ID
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
