package ranking

import (
	"errors"
	"fmt"
)

// ErrMalformedUpstream is returned when the index response lacks its required top-level structure
// It is fatal for the query: no partial page is produced.
var ErrMalformedUpstream = errors.New("malformed upstream response")

// ErrMalformedGroup marks a single site group that could not be turned into a hit
var ErrMalformedGroup = errors.New("malformed group data")

// GroupError describes a dropped site group
type GroupError struct {
	SiteID string
	Err    error
}

func (e GroupError) Error() string {
	if e.SiteID == "" {
		return fmt.Sprintf("%v: %v", ErrMalformedGroup, e.Err)
	}
	return fmt.Sprintf("%v for %s: %v", ErrMalformedGroup, e.SiteID, e.Err)
}

// Unwrap lets errors.Is match both ErrMalformedGroup and the underlying cause
func (e GroupError) Unwrap() []error {
	return []error{ErrMalformedGroup, e.Err}
}
