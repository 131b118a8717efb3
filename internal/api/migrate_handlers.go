package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/paperbaseapp/paperbase-server/internal/http/response"
	"github.com/paperbaseapp/paperbase-server/internal/migrate"
)

// handleMigrate imports papers from a legacy SQLite database. The import is
// idempotent: rows already examined in a previous run are not touched again,
// so re-posting the same database is safe.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		DBPath string `json:"db_path"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if req.DBPath == "" {
		response.BadRequest(w, "db_path is required", s.logger)
		return
	}

	src, err := migrate.OpenSource(req.DBPath)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	defer src.Close()

	report, err := migrate.New(src, s.papers, s.store, s.logger).Run(ctx)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, report, s.logger)
}
