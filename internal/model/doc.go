// Package model defines the patent entity shared by the crawler, the
// citation resolver and the report writers.
//
// This package contains the following main types:
//   - Patent: one patent record with lazily fetched detail content
//   - Source: the back-reference a Patent uses for further fetches
//   - DateError: the failure returned when a date matches no known layout
//
// Summary fields of a Patent are immutable after NewPatent. Only the detail
// content transitions, once, from absent to populated.
package model
