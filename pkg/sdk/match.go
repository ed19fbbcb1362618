package artisanmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/craftbridge/artisanmatch/internal/domain/match/query"
)

// Match runs one search end to end: semantic ranking when the embedding
// provider is configured and healthy, deterministic keyword matching
// otherwise. Only catalog unavailability is returned as an error.
func (c *Client) Match(ctx context.Context, req MatchRequest) (resp MatchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("match", start, err) }()

	q, err := query.New(
		req.Query,
		req.Filters.toDomain(),
		req.MaxResults,
		req.MinScore,
		query.SortBy(req.SortBy),
		req.Explain,
	)
	if err != nil {
		return MatchResponse{}, fmt.Errorf("match: %w", err)
	}

	r, err := c.matchSvc.Match(ctx, &q)
	if err != nil {
		return MatchResponse{}, fmt.Errorf("match: %w", err)
	}
	return responseFromDomain(r), nil
}
