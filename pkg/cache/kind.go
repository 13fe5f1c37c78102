package cache

import "time"

// Kind classifies cached responses by how quickly they go stale.
type Kind string

const (
	KindLaunches         Kind = "launches"
	KindUpcomingLaunches Kind = "launches_upcoming"
	KindLaunch           Kind = "launch"
	KindRocket           Kind = "rocket"
	KindLaunchpad        Kind = "launchpad"
	KindDataset          Kind = "dataset"
)

// DefaultTTL is used for kinds without an explicit stale time.
const DefaultTTL = 1 * time.Minute

// TTL returns the stale time for the kind.
func (k Kind) TTL() time.Duration {
	switch k {
	case KindLaunches:
		return 1 * time.Minute
	case KindUpcomingLaunches:
		return 5 * time.Minute
	case KindLaunch:
		return 5 * time.Minute
	case KindRocket, KindLaunchpad, KindDataset:
		// vehicles and sites rarely change
		return 1 * time.Hour
	default:
		return DefaultTTL
	}
}
