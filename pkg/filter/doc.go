// Package filter turns launch-list URL parameters into a typed Filter and
// a Filter into the upstream query payload.
//
// Normalization never fails: malformed values degrade to their defaults.
// The one exception is a date that does not parse, which is kept on the
// Filter and reported by Query so the caller can decide how to surface it.
//
// Page size grows in steps of PageStep while the rest of the filter stays
// the same; any other change starts over at DefaultLimit:
//
//	f := filter.Normalize(r.URL.Query())
//	more := f.NextPage()               // limit 40
//	narrowed := more.Apply(withSearch) // limit back to 20
//	q, err := narrowed.Query(0)
package filter
