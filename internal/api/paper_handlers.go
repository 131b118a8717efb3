package api

import (
	"encoding/json/v2"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	"github.com/paperbaseapp/paperbase-server/internal/http/response"
	"github.com/paperbaseapp/paperbase-server/internal/ingest"
)

// addPaperResponse reports whether a submission was committed or skipped by
// the duplicate guard.
type addPaperResponse struct {
	Added bool          `json:"added"`
	Paper *domain.Draft `json:"paper,omitempty"`
}

// handleCreatePaper stages a new paper from a JSON object of draft fields and
// commits it. A submission whose title/authors pair is already in the library
// is skipped, reported with added=false rather than an error.
func (s *Server) handleCreatePaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var fields map[string]any
	if err := json.UnmarshalRead(r.Body, &fields); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	d := domain.NewDraft()
	d.SetStrip(s.strip)
	for key, value := range fields {
		if err := d.SetField(key, value, false); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
	}

	added, err := s.papers.Add(ctx, d)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if !added {
		response.Success(w, addPaperResponse{Added: false}, s.logger)
		return
	}

	committed, err := s.papers.Get(ctx, d.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, addPaperResponse{Added: true, Paper: committed}, s.logger)
}

// handleCreatePaperFromURL downloads a PDF, drafts it from the file's
// identifiers, completes the draft through the scraper pipeline, and commits
// it like a regular submission.
func (s *Server) handleCreatePaperFromURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		URL string `json:"url"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if req.URL == "" {
		response.BadRequest(w, "url is required", s.logger)
		return
	}

	path, err := s.downloader.Fetch(ctx, req.URL)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	d, err := ingest.DraftFromPDF(ctx, ingest.RawReader{}, path, s.allowMeta)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	d.SetStrip(s.strip)
	s.pipeline.Scrape(ctx, d)

	// A PDF with no usable identifiers still gets a title to live under.
	if d.Title == "" {
		base := filepath.Base(path)
		_ = d.SetField("title", strings.TrimSuffix(base, filepath.Ext(base)), false)
	}

	added, err := s.papers.Add(ctx, d)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if !added {
		response.Success(w, addPaperResponse{Added: false}, s.logger)
		return
	}

	committed, err := s.papers.Get(ctx, d.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, addPaperResponse{Added: true, Paper: committed}, s.logger)
}

// handleListPapers returns all papers, newest first.
func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	papers, err := s.papers.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, papers, s.logger)
}

// handleGetPaper returns a single paper as a draft, with categorizer ids
// resolved back to names.
func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "paper id is required", s.logger)
		return
	}

	d, err := s.papers.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, d, s.logger)
}

// handleUpdatePaper applies a JSON object of draft fields to an existing
// paper. Fields absent from the body keep their current values; fields
// present with empty values are cleared.
func (s *Server) handleUpdatePaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "paper id is required", s.logger)
		return
	}

	var fields map[string]any
	if err := json.UnmarshalRead(r.Body, &fields); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	d, err := s.papers.Get(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	d.SetStrip(s.strip)
	for key, value := range fields {
		if err := d.SetField(key, value, true); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
	}

	if err := s.papers.Update(ctx, d); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	updated, err := s.papers.Get(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

// removePaperResponse reports whether every attachment file of a removed
// paper was actually deleted from disk.
type removePaperResponse struct {
	FilesRemoved bool `json:"filesRemoved"`
}

// removePapersResponse holds the per-paper file outcomes of a batch delete,
// in request order.
type removePapersResponse struct {
	FilesRemoved []bool `json:"filesRemoved"`
}

// handleDeletePaper removes a paper and its attachment files. The record is
// always gone on success; the response reports whether the files were too.
func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "paper id is required", s.logger)
		return
	}

	filesRemoved, err := s.papers.Remove(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, removePaperResponse{FilesRemoved: filesRemoved}, s.logger)
}

// handleDeletePapers removes a batch of papers in one request, reporting a
// file outcome per id.
func (s *Server) handleDeletePapers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if len(req.IDs) == 0 {
		response.BadRequest(w, "ids is required", s.logger)
		return
	}

	filesRemoved, err := s.papers.RemoveMany(r.Context(), req.IDs)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, removePapersResponse{FilesRemoved: filesRemoved}, s.logger)
}
