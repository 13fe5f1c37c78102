package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey represents a unique identifier for a cached SpaceX response.
type CacheKey struct {
	// Kind selects the stale time of the entry.
	Kind Kind

	// Endpoint is the API path (e.g., "/v4/launches/query")
	Endpoint string

	// QueryParams are URL query parameters, if any.
	QueryParams url.Values

	// Body is the request payload for POST queries.
	Body []byte
}

// String generates a deterministic cache key string.
// Format: spacex:kind:endpoint:query1=val1:body=<sha256 prefix>
//
// Example:
//
//	spacex:launches:v4/launches/query:body=1f3a9c0e2b7d4a55
func (k CacheKey) String() string {
	parts := []string{"spacex"}

	if k.Kind != "" {
		parts = append(parts, string(k.Kind))
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	if len(k.Body) > 0 {
		sum := sha256.Sum256(k.Body)
		parts = append(parts, "body="+hex.EncodeToString(sum[:8]))
	}

	return strings.Join(parts, ":")
}
