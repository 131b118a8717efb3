package migrate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/normalize"
	"github.com/paperbaseapp/paperbase-server/internal/service"
	"github.com/paperbaseapp/paperbase-server/internal/store"
)

const legacyTimeLayout = "2006-01-02 15:04:05"

// Migrator imports a legacy library into the current one. Each legacy row
// leaves a marker in the store keyed on its legacy id, so running the same
// migration twice imports nothing twice.
type Migrator struct {
	src    *Source
	papers *service.PaperService
	store  *store.Store
	logger *slog.Logger
}

// New creates a migrator reading from src.
func New(src *Source, papers *service.PaperService, s *store.Store, logger *slog.Logger) *Migrator {
	return &Migrator{src: src, papers: papers, store: s, logger: logger}
}

// Report summarizes one migration run.
type Report struct {
	// Imported counts rows that became new papers.
	Imported int
	// Skipped counts rows rejected by the duplicate guard.
	Skipped int
	// AlreadyImported counts rows whose marker showed a previous run
	// handled them.
	AlreadyImported int
	// MissingFile lists titles of imported papers that had no main file.
	MissingFile []string
}

// Run imports every unimported legacy row. Row-level failures are logged and
// collected; they do not stop the run.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	legacy, err := m.src.Papers(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var errs []error

	for _, lp := range legacy {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		marker := m.markerKey(lp)
		done, err := m.store.HasLegacyMarker(ctx, marker)
		if err != nil {
			return report, err
		}
		if done {
			report.AlreadyImported++
			continue
		}

		d, hasFile := m.buildDraft(lp)
		if !hasFile {
			report.MissingFile = append(report.MissingFile, d.Title)
		}

		added, err := m.papers.Add(ctx, d)
		if err != nil {
			m.logger.Warn("failed to import legacy paper", "legacy_id", lp.ID, "title", lp.Title, "error", err)
			errs = append(errs, err)
			continue
		}
		if !added {
			report.Skipped++
			// Mark with an empty paper id so the duplicate is not
			// re-examined next run.
			if err := m.store.SetLegacyMarker(ctx, marker, ""); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		report.Imported++
		if err := m.store.SetLegacyMarker(ctx, marker, d.ID); err != nil {
			errs = append(errs, err)
		}
	}

	m.logger.Info("legacy migration finished",
		"imported", report.Imported,
		"skipped", report.Skipped,
		"already_imported", report.AlreadyImported,
		"missing_file", len(report.MissingFile))

	return report, apperrors.Join(errs...)
}

// markerKey derives the idempotency key for a legacy row. Rows that had no
// id in the source get a random one during completion, so those fall back to
// the (title, authors) pair, which is stable across runs.
func (m *Migrator) markerKey(lp *LegacyPaper) string {
	if lp.GeneratedID {
		return normalize.DuplicateKey(lp.Title, lp.Authors)
	}
	return lp.ID
}

// buildDraft maps a legacy row onto a draft. The second result reports
// whether a main file could be located.
func (m *Migrator) buildDraft(lp *LegacyPaper) (*domain.Draft, bool) {
	d := domain.NewDraft()

	if t, err := time.Parse(legacyTimeLayout, lp.AddTime); err == nil {
		d.AddTime = t
	}

	_ = d.SetField("title", lp.Title, false)
	_ = d.SetField("authors", strings.ReplaceAll(lp.Authors, " and ", ", "), false)
	_ = d.SetField("publication", lp.Pub, false)
	_ = d.SetField("pubTime", lp.PubTime, false)
	_ = d.SetField("pubType", lp.PubType, false)
	_ = d.SetField("doi", lp.DOI, false)
	_ = d.SetField("arxiv", lp.Arxiv, false)
	_ = d.SetField("note", lp.Note, false)
	_ = d.SetField("flag", lp.Flag != 0, false)
	_ = d.SetField("tags", lp.Tags, false)

	rating := lp.Rating
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	d.Rating = rating

	hasFile := false
	if lp.PaperFile != "" {
		if path := m.resolveFile(lp.PaperFile); path != "" {
			d.MainURL = path
			hasFile = true
		}
	}
	for _, att := range lp.Attachments {
		if !strings.EqualFold(filepath.Ext(baseName(att)), ".pdf") {
			continue
		}
		if path := m.resolveFile(att); path != "" {
			d.AddSupURL(path)
		}
	}

	return d, hasFile
}

// resolveFile locates a legacy attachment on disk. Legacy rows may carry
// full paths from another machine (including Windows paths); when the path
// as given does not exist, the file is looked up by basename next to the
// legacy database.
func (m *Migrator) resolveFile(path string) string {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	local := filepath.Join(m.src.Dir(), baseName(path))
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return ""
}

// baseName returns the last path element, splitting on both separators so
// Windows-origin paths resolve correctly on any platform.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
