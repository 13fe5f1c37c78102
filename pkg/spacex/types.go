package spacex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Launch is a launch record as returned by /v4/launches.
type Launch struct {
	ID                 string         `json:"id"`
	FlightNumber       int            `json:"flight_number"`
	Name               string         `json:"name"`
	DateUTC            time.Time      `json:"date_utc"`
	DateUnix           int64          `json:"date_unix"`
	DateLocal          string         `json:"date_local"`
	DatePrecision      string         `json:"date_precision"`
	StaticFireDateUTC  *time.Time     `json:"static_fire_date_utc"`
	StaticFireDateUnix *int64         `json:"static_fire_date_unix"`
	TBD                bool           `json:"tbd"`
	NET                bool           `json:"net"`
	Window             *int           `json:"window"`
	Rocket             Ref[Rocket]    `json:"rocket"`
	Success            *bool          `json:"success"`
	Failures           []Failure      `json:"failures"`
	Upcoming           bool           `json:"upcoming"`
	Details            *string        `json:"details"`
	Fairings           *Fairings      `json:"fairings"`
	Crew               []string       `json:"crew"`
	Ships              []string       `json:"ships"`
	Capsules           []string       `json:"capsules"`
	Payloads           []string       `json:"payloads"`
	Launchpad          Ref[Launchpad] `json:"launchpad"`
	Cores              []Core         `json:"cores"`
	Links              Links          `json:"links"`
	AutoUpdate         bool           `json:"auto_update"`
}

// Failure describes why a launch failed.
type Failure struct {
	Time     int    `json:"time"`
	Altitude *int   `json:"altitude"`
	Reason   string `json:"reason"`
}

// Fairings holds fairing recovery information.
type Fairings struct {
	Reused          *bool    `json:"reused"`
	RecoveryAttempt *bool    `json:"recovery_attempt"`
	Recovered       *bool    `json:"recovered"`
	Ships           []string `json:"ships"`
}

// Core holds first stage core information for a launch.
type Core struct {
	Core           *string `json:"core"`
	Flight         *int    `json:"flight"`
	Gridfins       *bool   `json:"gridfins"`
	Legs           *bool   `json:"legs"`
	Reused         *bool   `json:"reused"`
	LandingAttempt *bool   `json:"landing_attempt"`
	LandingSuccess *bool   `json:"landing_success"`
	LandingType    *string `json:"landing_type"`
	Landpad        *string `json:"landpad"`
}

// Links groups media and article links.
type Links struct {
	Patch struct {
		Small *string `json:"small"`
		Large *string `json:"large"`
	} `json:"patch"`
	Reddit struct {
		Campaign *string `json:"campaign"`
		Launch   *string `json:"launch"`
		Media    *string `json:"media"`
		Recovery *string `json:"recovery"`
	} `json:"reddit"`
	Flickr struct {
		Small    []string `json:"small"`
		Original []string `json:"original"`
	} `json:"flickr"`
	Presskit  *string `json:"presskit"`
	Webcast   *string `json:"webcast"`
	YoutubeID *string `json:"youtube_id"`
	Article   *string `json:"article"`
	Wikipedia *string `json:"wikipedia"`
}

// Images returns the original flickr images followed by the large patch, if any.
func (l Links) Images() []string {
	images := make([]string, 0, len(l.Flickr.Original)+1)
	images = append(images, l.Flickr.Original...)
	if l.Patch.Large != nil && *l.Patch.Large != "" {
		images = append(images, *l.Patch.Large)
	}
	return images
}

// Rocket is a launch vehicle record.
type Rocket struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Active         bool            `json:"active"`
	Stages         int             `json:"stages"`
	Boosters       int             `json:"boosters"`
	CostPerLaunch  int64           `json:"cost_per_launch"`
	SuccessRatePct int             `json:"success_rate_pct"`
	FirstFlight    string          `json:"first_flight"`
	Country        string          `json:"country"`
	Company        string          `json:"company"`
	Height         Dimension       `json:"height"`
	Diameter       Dimension       `json:"diameter"`
	Mass           Mass            `json:"mass"`
	PayloadWeights []PayloadWeight `json:"payload_weights"`
	Engines        Engines         `json:"engines"`
	FlickrImages   []string        `json:"flickr_images"`
	Wikipedia      string          `json:"wikipedia"`
	Description    string          `json:"description"`
}

// Dimension is a length in both unit systems.
type Dimension struct {
	Meters *float64 `json:"meters"`
	Feet   *float64 `json:"feet"`
}

// Mass is a mass in both unit systems.
type Mass struct {
	KG float64 `json:"kg"`
	LB float64 `json:"lb"`
}

// PayloadWeight is a rocket's payload capacity to a given orbit.
type PayloadWeight struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	KG   float64 `json:"kg"`
	LB   float64 `json:"lb"`
}

// Thrust is a thrust figure in both unit systems.
type Thrust struct {
	KN  float64 `json:"kN"`
	LBF float64 `json:"lbf"`
}

// Engines describes a rocket's engines.
type Engines struct {
	Number         int     `json:"number"`
	Type           string  `json:"type"`
	Version        string  `json:"version"`
	Layout         *string `json:"layout"`
	EngineLossMax  *int    `json:"engine_loss_max"`
	Propellant1    string  `json:"propellant_1"`
	Propellant2    string  `json:"propellant_2"`
	ThrustSeaLevel Thrust  `json:"thrust_sea_level"`
	ThrustVacuum   Thrust  `json:"thrust_vacuum"`
	ThrustToWeight float64 `json:"thrust_to_weight"`
}

// Launchpad is a launch site record.
type Launchpad struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Status          string   `json:"status"`
	Locality        string   `json:"locality"`
	Region          string   `json:"region"`
	Timezone        string   `json:"timezone"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	LaunchAttempts  int      `json:"launch_attempts"`
	LaunchSuccesses int      `json:"launch_successes"`
	Rockets         []string `json:"rockets"`
	Launches        []string `json:"launches"`
}

// Ref is a reference to another record. The API sends a bare id unless the
// query asked to populate the field, in which case the whole object is sent.
type Ref[T any] struct {
	ID    string
	Value *T
}

// UnmarshalJSON accepts either a JSON string id or an object with an "id" field.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref[T]{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode ref id: %w", err)
		}
		*r = Ref[T]{ID: id}
		return nil
	}

	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode ref object: %w", err)
	}
	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("decode ref object: %w", err)
	}
	*r = Ref[T]{ID: head.ID, Value: value}
	return nil
}

// MarshalJSON writes the populated object when present, the id otherwise.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Value != nil {
		return json.Marshal(r.Value)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// LaunchQuery is the body of POST /v4/launches/query.
type LaunchQuery struct {
	Query   map[string]any `json:"query"`
	Options QueryOptions   `json:"options"`
}

// QueryOptions holds the pagination, sort and populate options of a query.
type QueryOptions struct {
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
	Sort     map[string]int `json:"sort,omitempty"`
	Populate []string       `json:"populate,omitempty"`
}

// LaunchPage is the page envelope returned by a launch query.
type LaunchPage struct {
	Docs          []Launch `json:"docs"`
	TotalDocs     int      `json:"totalDocs"`
	Limit         int      `json:"limit"`
	Offset        int      `json:"offset"`
	TotalPages    int      `json:"totalPages"`
	Page          int      `json:"page"`
	PagingCounter int      `json:"pagingCounter"`
	HasPrevPage   bool     `json:"hasPrevPage"`
	HasNextPage   bool     `json:"hasNextPage"`
	PrevPage      *int     `json:"prevPage"`
	NextPage      *int     `json:"nextPage"`
}

// HasMore reports whether another page is available after this one.
func (p *LaunchPage) HasMore() bool {
	return p != nil && p.HasNextPage
}

// Remaining returns how many matching launches are not on this page.
func (p *LaunchPage) Remaining() int {
	if p == nil || p.TotalDocs < len(p.Docs) {
		return 0
	}
	return p.TotalDocs - len(p.Docs)
}
