package crawler

import (
	"errors"
	"fmt"

	"github.com/nao1215/patentcrawl/internal/cache"
)

var (
	// ErrEmptyAssignee is returned when a listing is requested without an
	// assignee key.
	ErrEmptyAssignee = errors.New("assignee key must not be empty")

	// ErrEmptyID is returned when a patent is requested without an id.
	ErrEmptyID = errors.New("patent id must not be empty")
)

// FetchError reports a listing page that could not be retrieved.
// It is fatal to the walk that requested the page.
type FetchError struct {
	// Kind is the kind of page that was requested.
	Kind cache.Kind

	// URL is the requested URL.
	URL string

	// StatusCode is the final HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the transport error, if any.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s page %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s page %s: status %d", e.Kind, e.URL, e.StatusCode)
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// MissingFieldError reports a required field absent from a record.
type MissingFieldError struct {
	// ID is the id of the record, or "" when the id itself is missing.
	ID string

	// Field names the missing field.
	Field string
}

// Error implements error.
func (e *MissingFieldError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("record is missing required field %q", e.Field)
	}
	return fmt.Sprintf("patent %s is missing required field %q", e.ID, e.Field)
}
