package search

import (
	"context"
	"strings"

	"newsletter/api/internal/store"
)

// SQLSearcher implements Searcher over the newsletter table with LIKE
// matching. It is the fallback when Meilisearch is unavailable.
type SQLSearcher struct {
	store *store.SQLStore
}

func NewSQLSearcher(s *store.SQLStore) *SQLSearcher {
	return &SQLSearcher{store: s}
}

// Healthy always returns true; if the database is down the whole app is down.
func (p *SQLSearcher) Healthy() bool {
	return true
}

func (p *SQLSearcher) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	hits, total, err := p.store.SearchNewsletters(ctx, q.Text, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			ID:        hit.ID,
			Title:     hit.Title,
			Snippet:   hit.Snippet,
			UpdatedAt: hit.UpdatedAt,
		})
	}
	return results, total, nil
}
