package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDetailUnavailable is returned when the detail page of a patent could not
	// be retrieved. It is a per-patent condition, not a crawl failure: the
	// citation resolver drops such patents from its result.
	ErrDetailUnavailable = errors.New("patent detail unavailable")

	// ErrNoSource is returned when a Patent built without a Source is asked to
	// fetch anything.
	ErrNoSource = errors.New("patent has no source to fetch from")
)

// DateError is returned by ParseDate when the input matches none of the
// accepted layouts. It signals a markup change upstream and must not be
// swallowed.
type DateError struct {
	// Input is the offending string after whitespace cleanup.
	Input string
}

// Error implements the error interface.
func (e *DateError) Error() string {
	return fmt.Sprintf("unrecognized date format: %q", e.Input)
}
