package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryMax is returned when the retry count is negative.
	ErrInvalidRetryMax = errors.New("invalid retry count: must be non-negative")

	// ErrInvalidRetryWait is returned when the backoff bounds are not positive
	// or the maximum is below the minimum.
	ErrInvalidRetryWait = errors.New("invalid retry wait: bounds must be positive and max must not be below min")

	// ErrInvalidConcurrency is returned when the citation concurrency is not
	// positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownCacheBackend is returned for a cache backend other than
	// "file" or "sqlite".
	ErrUnknownCacheBackend = errors.New("unknown cache backend: must be file or sqlite")

	// ErrEmptyCacheDir is returned when no cache directory is configured.
	ErrEmptyCacheDir = errors.New("cache directory must not be empty")

	// ErrInvalidFiledSince is returned when the filed-since year is negative.
	ErrInvalidFiledSince = errors.New("invalid filed-since year: must be non-negative")

	// ErrInvalidLimit is returned when the record limit is negative.
	ErrInvalidLimit = errors.New("invalid limit: must be non-negative")
)
