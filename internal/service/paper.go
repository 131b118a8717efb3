// Package service implements the library's business operations on top of the
// store and the file store.
package service

import (
	"context"
	"log/slog"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/filestore"
	"github.com/paperbaseapp/paperbase-server/internal/store"
)

// PaperService coordinates the database and the attachment files so both
// always describe the same library. Files move before the record commits:
// a failed move leaves the database untouched, and a failed commit cleans
// the moved files up again.
type PaperService struct {
	store  *store.Store
	files  *filestore.FileStore
	logger *slog.Logger
}

// NewPaperService creates a paper service.
func NewPaperService(s *store.Store, f *filestore.FileStore, logger *slog.Logger) *PaperService {
	return &PaperService{store: s, files: f, logger: logger}
}

// Add commits a draft as a new paper. The boolean result reports whether the
// paper was added; false means the (title, authors) duplicate guard rejected
// it, which is not an error. Attachments are relocated into the library
// before the record is written.
func (s *PaperService) Add(ctx context.Context, d *domain.Draft) (bool, error) {
	if err := d.Validate(); err != nil {
		return false, err
	}

	// Cheap pre-check so an obvious duplicate never touches the filesystem.
	dup, err := s.store.HasDuplicate(ctx, d.Title, d.Authors)
	if err != nil {
		return false, err
	}
	if dup {
		s.logger.Debug("duplicate paper skipped", "title", d.Title)
		return false, nil
	}

	p := d.ToPaper()
	if err := s.files.MovePaper(ctx, p); err != nil {
		return false, err
	}

	added, err := s.store.AddPaper(ctx, p, names(d))
	if err != nil {
		s.cleanupFiles(ctx, p)
		return false, err
	}
	if !added {
		// A concurrent add won the duplicate slot between the pre-check and
		// the transaction. Remove the files this call moved in.
		s.cleanupFiles(ctx, p)
		s.logger.Debug("duplicate paper lost the add race", "title", d.Title)
		return false, nil
	}

	s.logger.Info("paper added", "paper_id", p.ID, "title", p.Title)
	return true, nil
}

// AddMany commits a batch of drafts. Duplicates are skipped; the returned
// slice reports per-draft whether it was added, and the error joins any real
// failures.
func (s *PaperService) AddMany(ctx context.Context, drafts []*domain.Draft) ([]bool, error) {
	added := make([]bool, len(drafts))
	var errs []error
	for i, d := range drafts {
		ok, err := s.Add(ctx, d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		added[i] = ok
	}
	return added, apperrors.Join(errs...)
}

// Update replaces a paper's metadata and categorizer attachments from a
// draft. A title change renames the attachment files to their new canonical
// names before the record is rewritten; if the record write then fails, the
// rename is undone best-effort so files keep matching the stored record.
func (s *PaperService) Update(ctx context.Context, d *domain.Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}

	old, err := s.store.GetPaper(ctx, d.ID)
	if err != nil {
		return err
	}

	p := d.ToPaper()
	if p.AddTime.IsZero() {
		p.AddTime = old.AddTime
	}
	// A draft without attachment paths keeps the paper's current files.
	if p.MainURL == "" {
		p.MainURL = old.MainURL
	}
	if len(p.SupURLs) == 0 {
		p.SupURLs = append([]string(nil), old.SupURLs...)
	}

	if err := s.files.MovePaper(ctx, p); err != nil {
		return err
	}

	if err := s.store.UpdatePaper(ctx, p, names(d)); err != nil {
		s.revertMove(ctx, old, p)
		return err
	}

	s.logger.Info("paper updated", "paper_id", p.ID, "title", p.Title)
	return nil
}

// Remove deletes a paper and its attachment files. The record goes first;
// once it is gone, file removal failures are logged rather than surfaced,
// since the database no longer references the files. The boolean reports
// whether every attachment file was actually deleted from disk: a file
// that had already gone missing counts against it.
func (s *PaperService) Remove(ctx context.Context, paperID string) (bool, error) {
	removed, err := s.store.RemovePaper(ctx, paperID)
	if err != nil {
		return false, err
	}
	filesRemoved, err := s.files.RemovePaper(ctx, removed)
	if err != nil {
		s.logger.Warn("failed to remove attachment files", "paper_id", paperID, "error", err)
	}
	s.logger.Info("paper removed", "paper_id", paperID, "title", removed.Title)
	return filesRemoved, nil
}

// RemoveMany deletes a batch of papers, fanning file removal out over the
// file store's worker pool. The returned slice reports per-id, in input
// order, whether all of that paper's files were removed; an id whose record
// removal failed reports false, and the error joins those failures.
func (s *PaperService) RemoveMany(ctx context.Context, paperIDs []string) ([]bool, error) {
	filesRemoved := make([]bool, len(paperIDs))
	var removed []*domain.Paper
	var indices []int
	var errs []error
	for i, paperID := range paperIDs {
		p, err := s.store.RemovePaper(ctx, paperID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, p)
		indices = append(indices, i)
	}

	outcomes, fileErrs := s.files.RemovePapers(ctx, removed)
	for i, ok := range outcomes {
		filesRemoved[indices[i]] = ok
		if fileErrs[i] != nil {
			s.logger.Warn("failed to remove attachment files", "paper_id", removed[i].ID, "error", fileErrs[i])
		}
	}
	return filesRemoved, apperrors.Join(errs...)
}

// Get returns a paper as an editable draft with its categorizer names
// resolved.
func (s *PaperService) Get(ctx context.Context, paperID string) (*domain.Draft, error) {
	p, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	return s.draftFor(ctx, p)
}

// List returns all papers, newest first.
func (s *PaperService) List(ctx context.Context) ([]*domain.Paper, error) {
	return s.store.ListPapers(ctx)
}

// ListByCategorizer returns the papers referencing one categorizer.
func (s *PaperService) ListByCategorizer(ctx context.Context, kind domain.Kind, catID string) ([]*domain.Paper, error) {
	return s.store.ListPapersByCategorizer(ctx, kind, catID)
}

// draftFor rebuilds the editable draft form of a persisted paper.
func (s *PaperService) draftFor(ctx context.Context, p *domain.Paper) (*domain.Draft, error) {
	tags, err := s.store.NamesForIDs(ctx, domain.KindTag, p.TagIDs)
	if err != nil {
		return nil, err
	}
	folders, err := s.store.NamesForIDs(ctx, domain.KindFolder, p.FolderIDs)
	if err != nil {
		return nil, err
	}
	feeds, err := s.store.NamesForIDs(ctx, domain.KindFeed, p.FeedIDs)
	if err != nil {
		return nil, err
	}
	return domain.FromPaper(p, tags, folders, feeds), nil
}

// cleanupFiles removes files that were moved in for a paper whose record
// never committed.
func (s *PaperService) cleanupFiles(ctx context.Context, p *domain.Paper) {
	if _, err := s.files.RemovePaper(ctx, p); err != nil {
		s.logger.Warn("failed to clean up files after aborted add", "paper_id", p.ID, "error", err)
	}
}

// revertMove renames files back to their pre-update names after a failed
// record write. Best effort: the rename uses the old title against the new
// on-disk names.
func (s *PaperService) revertMove(ctx context.Context, old, updated *domain.Paper) {
	revert := *old
	revert.MainURL = updated.MainURL
	revert.SupURLs = append([]string(nil), updated.SupURLs...)
	if err := s.files.MovePaper(ctx, &revert); err != nil {
		s.logger.Warn("failed to revert file rename after aborted update", "paper_id", old.ID, "error", err)
	}
}

func names(d *domain.Draft) store.Names {
	return store.Names{Tags: d.Tags, Folders: d.Folders, Feeds: d.Feeds}
}
