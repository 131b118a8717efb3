package api

import (
	"net/http"
	"strconv"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/http/response"
)

// searchHit pairs a matched paper with its relevance score.
type searchHit struct {
	Paper *domain.Draft `json:"paper"`
	Score float64       `json:"score"`
}

// handleSearch runs a full-text query and resolves the hits to papers. Hits
// whose paper has been removed since the index was last written are skipped.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, "limit must be a non-negative integer", s.logger)
			return
		}
		limit = n
	}

	results, err := s.index.Search(ctx, q, limit)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		d, err := s.papers.Get(ctx, res.ID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			response.HandleError(w, err, s.logger)
			return
		}
		hits = append(hits, searchHit{Paper: d, Score: res.Score})
	}
	response.Success(w, hits, s.logger)
}

// handleReindex rebuilds the search index from the store.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Reindex(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	count, err := s.index.DocumentCount()
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]uint64{"indexed": count}, s.logger)
}
