package transport

import "errors"

var (
	// ErrRetriesExhausted is returned when every attempt of a request failed
	// with a network error.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrBodyTooLarge is returned when a response body exceeds the session's
	// maximum body size. Such a response is never retried.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
