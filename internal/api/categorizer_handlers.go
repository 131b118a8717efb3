package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	"github.com/paperbaseapp/paperbase-server/internal/http/response"
)

// handleListCategorizers returns all categorizers of one kind, most
// referenced first. An unknown kind in the path is a validation error.
func (s *Server) handleListCategorizers(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(chi.URLParam(r, "kind"))

	cats, err := s.store.ListCategorizers(r.Context(), kind)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, cats, s.logger)
}

// handleCategorizerPapers returns the papers referencing one categorizer.
func (s *Server) handleCategorizerPapers(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "categorizer id is required", s.logger)
		return
	}

	papers, err := s.papers.ListByCategorizer(r.Context(), kind, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, papers, s.logger)
}

// handleCreateFeed creates a feed subscription. Unlike tags and folders,
// feeds exist independently of the papers referencing them.
func (s *Server) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if req.Name == "" {
		response.BadRequest(w, "name is required", s.logger)
		return
	}

	feed, err := s.store.CreateFeed(r.Context(), req.Name, req.URL)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, feed, s.logger)
}

// handleUpdateFeed updates a feed's source URL.
func (s *Server) handleUpdateFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "feed id is required", s.logger)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	if err := s.store.UpdateFeedURL(r.Context(), id, req.URL); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	feed, err := s.store.GetCategorizer(r.Context(), domain.KindFeed, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, feed, s.logger)
}

// handleDeleteFeed deletes a feed. A feed still referenced by papers cannot
// be deleted.
func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "feed id is required", s.logger)
		return
	}

	if err := s.store.DeleteFeed(r.Context(), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
