// Package transport provides the HTTP session shared by every fetch of a crawl.
//
// A Session sends identifying headers with each request and retries transient
// server failures (overload, unavailable, gateway errors) with exponential
// backoff. Non-transient statuses such as 404 are returned to the caller
// untouched; deciding whether they are fatal is the caller's business.
//
// # Usage
//
//	session, err := transport.NewSession(
//	    transport.WithUserAgent(cfg.UserAgent),
//	    transport.WithRetry(cfg.RetryMax, cfg.RetryWaitMin, cfg.RetryWaitMax),
//	)
//	resp, err := session.Get(ctx, "https://patents.justia.com/patent/12039383")
//
// One Session is safe for concurrent use and reuses connections across all
// workers of a crawl.
package transport
