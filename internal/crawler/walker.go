package crawler

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/nao1215/patentcrawl/internal/model"
)

// ListPatents returns the patents of assignee in listing order.
//
// Every call starts again at page 1; pages already cached are not downloaded
// again. Pages are fetched lazily: a page is requested only once the records
// of the previous one have been consumed, and nothing more is fetched after
// the caller stops ranging. A fatal error is yielded once as (nil, err) and
// ends the sequence.
func (c *Crawler) ListPatents(ctx context.Context, assignee string) iter.Seq2[*model.Patent, error] {
	return func(yield func(*model.Patent, error) bool) {
		if assignee == "" {
			yield(nil, ErrEmptyAssignee)
			return
		}

		for page := 1; ; page++ {
			content, err := c.fetcher.Listing(ctx, assignee, page)
			if err != nil {
				yield(nil, err)
				return
			}

			listing, err := c.parser.ParseListing(content)
			if err != nil {
				yield(nil, fmt.Errorf("failed to parse page %d of %s: %w", page, assignee, err))
				return
			}
			c.logger.Debug("listing page parsed",
				"assignee", assignee,
				"page", page,
				"records", len(listing.Records),
				"has_next", listing.HasNext,
			)

			for _, record := range listing.Records {
				p, err := c.pool.GetOrCreate(record.ID, func() (*model.Patent, error) {
					return record, nil
				})
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(p, nil) {
					return
				}
			}

			if !listing.HasNext {
				return
			}
		}
	}
}

// FiledSince filters seq down to patents filed on or after since.
// Errors pass through.
func FiledSince(seq iter.Seq2[*model.Patent, error], since time.Time) iter.Seq2[*model.Patent, error] {
	return func(yield func(*model.Patent, error) bool) {
		for p, err := range seq {
			if err == nil && p.Filed.Before(since) {
				continue
			}
			if !yield(p, err) {
				return
			}
		}
	}
}
