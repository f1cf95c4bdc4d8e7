// Package crawler retrieves patent records from the paginated listing service
// and resolves their citations.
//
// # Components
//
//   - Fetcher: cache-first page retrieval over a transport session
//   - Parser: turns listing and detail markup into model.Patent values
//   - Pool: identity map that makes equal ids share one Patent
//   - Crawler: the crawl session tying the above together
//
// # Pagination
//
// Crawler.ListPatents walks listing pages 1, 2, ... sequentially and yields
// records in page order. It stops when a page has no "next" control, when the
// caller stops ranging, or on the first fatal error, which is yielded once as
// (nil, err).
//
// # Citations
//
// Crawler.ResolveCitations reads the cited ids from a patent's detail page and
// resolves them concurrently, one hop only. Citations whose detail page cannot
// be retrieved are dropped; every other failure is returned.
//
// # Usage
//
//	c := crawler.New(session, store, crawler.WithConcurrency(10))
//	for p, err := range c.ListPatents(ctx, "meta-platforms-inc") {
//		if err != nil {
//			return err
//		}
//		cited, err := p.Citations(ctx)
//		...
//	}
package crawler
