package search

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Result is one search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Search runs a free-text query over the index and returns matching paper
// ids by descending relevance. The query matches analyzed text fields and,
// for the last term, a prefix, so search-as-you-type works.
func (i *Index) Search(ctx context.Context, q string, limit int) ([]Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}

	matchQuery := bleve.NewMatchQuery(q)
	matchQuery.SetFuzziness(1)

	queries := []query.Query{matchQuery}
	terms := strings.Fields(strings.ToLower(q))
	if len(terms) > 0 {
		prefixQuery := bleve.NewPrefixQuery(terms[len(terms)-1])
		queries = append(queries, prefixQuery)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = limit

	i.mu.RLock()
	res, err := i.index.SearchInContext(ctx, req)
	i.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, Result{ID: hit.ID, Score: hit.Score})
	}
	return results, nil
}
