// Package log builds the slog loggers used by patentcrawl.
//
// Extra request headers come from the configuration file and commonly carry
// session cookies for the listing service. RedactingHandler masks such
// values before any handler formats them, so even verbose output can be
// shared:
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	logger.Debug("headers configured", "cookie", "sid=abc123") // cookie=***REDACTED***
//
// The logger is passed to components through their WithLogger options.
package log
