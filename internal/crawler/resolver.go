package crawler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/patentcrawl/internal/model"
)

// ResolveCitations implements model.Source. It returns the patents cited by
// p, in citation order.
//
// When the detail page of p is unavailable the result is empty. Cited patents
// whose detail page is unavailable are left out. Any other failure, such as a
// cache write or parse error, fails the whole resolution.
func (c *Crawler) ResolveCitations(ctx context.Context, p *model.Patent) ([]*model.Patent, error) {
	content, err := p.Detail(ctx)
	if err != nil {
		if errors.Is(err, model.ErrDetailUnavailable) {
			c.logger.Debug("detail unavailable, no citations", "id", p.ID, "error", err)
			return []*model.Patent{}, nil
		}
		return nil, err
	}

	ids, err := c.parser.CitedIDs(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read citations of %s: %w", p.ID, err)
	}

	resolved := make([]*model.Patent, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			cited, err := c.Patent(gctx, id)
			if errors.Is(err, model.ErrDetailUnavailable) {
				c.logger.Debug("dropping unavailable citation", "id", p.ID, "cited", id, "error", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to resolve citation %s of %s: %w", id, p.ID, err)
			}
			resolved[i] = cited
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	citations := make([]*model.Patent, 0, len(resolved))
	for _, cited := range resolved {
		if cited != nil {
			citations = append(citations, cited)
		}
	}
	return citations, nil
}
