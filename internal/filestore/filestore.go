// Package filestore manages the attachment files of the paper library. Every
// attachment lives under the library root with a name derived from its
// paper's title and id, so the filesystem layout is reproducible from the
// database alone.
package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/normalize"
)

// FileStore relocates and removes attachment files under the library root.
// Paths stored on papers are always relative to the root.
type FileStore struct {
	root         string
	deleteSource bool
	workers      int
	logger       *slog.Logger
}

// New creates a FileStore rooted at cfg.Root, creating the directory if
// needed.
func New(cfg config.LibraryConfig, logger *slog.Logger) (*FileStore, error) {
	if cfg.Root == "" {
		return nil, apperrors.Validation("library root cannot be empty")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create library root: %w", err)
	}

	workers := cfg.FileWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &FileStore{
		root:         cfg.Root,
		deleteSource: cfg.DeleteSourceOnMove,
		workers:      workers,
		logger:       logger,
	}, nil
}

// Root returns the library root directory.
func (f *FileStore) Root() string { return f.root }

// Absolute resolves a library-relative attachment path.
func (f *FileStore) Absolute(rel string) string {
	return filepath.Join(f.root, rel)
}

// MainFileName returns the canonical library name for a paper's main
// attachment, keeping the source file's extension.
func MainFileName(p *domain.Paper, source string) string {
	return normalize.FileStem(p.Title, p.ID) + "_main" + filepath.Ext(source)
}

// SupFileName returns the canonical library name for the i-th supplementary
// attachment.
func SupFileName(p *domain.Paper, i int, source string) string {
	return fmt.Sprintf("%s_sup%d%s", normalize.FileStem(p.Title, p.ID), i, filepath.Ext(source))
}

// pendingMove is one source→target relocation within a MovePaper call.
type pendingMove struct {
	source    string // absolute or library-relative, as given on the paper
	targetRel string
}

// MovePaper relocates a paper's attachments into the library under their
// canonical names and rewrites MainURL/SupURLs to library-relative paths.
// The call either fully succeeds or leaves the paper untouched: targets
// created by this call are deleted again on failure. A target that already
// exists counts as done (idempotent re-move) and is never rolled back.
//
// Absolute sources are outside the library; they are copied, and the
// original is deleted only when the store is configured to delete sources.
// Relative sources are existing library files being renamed (a title
// change), and the old file is always removed.
func (f *FileStore) MovePaper(ctx context.Context, p *domain.Paper) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	moves := make([]pendingMove, 0, 1+len(p.SupURLs))
	if p.MainURL != "" {
		moves = append(moves, pendingMove{p.MainURL, MainFileName(p, p.MainURL)})
	}
	for i, sup := range p.SupURLs {
		moves = append(moves, pendingMove{sup, SupFileName(p, i, sup)})
	}

	var created []string // target rel paths created by this call
	var sources []string // source abs paths to delete after full success

	rollback := func() {
		for _, rel := range created {
			if err := os.Remove(f.Absolute(rel)); err != nil && !os.IsNotExist(err) {
				f.logger.Warn("rollback failed to remove target", "path", rel, "error", err)
			}
		}
	}

	for _, m := range moves {
		if err := ctx.Err(); err != nil {
			rollback()
			return err
		}
		didCreate, source, err := f.moveOne(m)
		if err != nil {
			rollback()
			return err
		}
		if didCreate {
			created = append(created, m.targetRel)
		}
		if source != "" {
			sources = append(sources, source)
		}
	}

	// All targets are in place; source cleanup failures no longer fail the
	// move.
	for _, src := range sources {
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			f.logger.Warn("failed to remove source after move", "path", src, "error", err)
		}
	}

	if p.MainURL != "" {
		p.MainURL = MainFileName(p, p.MainURL)
	}
	for i, sup := range p.SupURLs {
		p.SupURLs[i] = SupFileName(p, i, sup)
	}
	return nil
}

// moveOne performs a single relocation. It returns whether a new target was
// created and, when the source should be deleted after the whole move
// succeeds, the source's absolute path.
func (f *FileStore) moveOne(m pendingMove) (created bool, deleteSource string, err error) {
	targetAbs := f.Absolute(m.targetRel)

	internal := !filepath.IsAbs(m.source)
	sourceAbs := m.source
	if internal {
		sourceAbs = f.Absolute(m.source)
	}

	if sourceAbs == targetAbs {
		// Already under its canonical name.
		return false, "", nil
	}

	if _, err := os.Stat(targetAbs); err == nil {
		// A file is already at the target; treat the relocation as done.
		return false, "", nil
	} else if !os.IsNotExist(err) {
		return false, "", apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to stat target %s", m.targetRel)
	}

	info, err := os.Stat(sourceAbs)
	if err != nil {
		return false, "", apperrors.Wrapf(err, apperrors.CodeFileOperation, "source file missing: %s", m.source)
	}
	if info.IsDir() {
		return false, "", apperrors.Wrapf(nil, apperrors.CodeFileOperation, "source is a directory: %s", m.source)
	}

	if err := copyFile(sourceAbs, targetAbs); err != nil {
		return false, "", apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to copy %s", m.source)
	}

	if internal || f.deleteSource {
		return true, sourceAbs, nil
	}
	return true, "", nil
}

// RemovePaper deletes a paper's attachment files. Every file is attempted
// regardless of earlier outcomes; the boolean is the AND across them, true
// only when each file existed and was deleted. Unlike a move, removing an
// already-absent file does not count as done.
func (f *FileStore) RemovePaper(ctx context.Context, p *domain.Paper) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	paths := make([]string, 0, 1+len(p.SupURLs))
	if p.MainURL != "" {
		paths = append(paths, p.MainURL)
	}
	paths = append(paths, p.SupURLs...)

	removed := true
	var errs []error
	for _, rel := range paths {
		ok, err := f.RemoveFile(ctx, rel)
		if err != nil {
			errs = append(errs, err)
		}
		removed = removed && ok
	}
	return removed, apperrors.Join(errs...)
}

// RemoveFile deletes one library-relative attachment. The boolean reports
// whether the file was actually removed: an absent file, or a path naming a
// directory, yields false without an error.
func (f *FileStore) RemoveFile(ctx context.Context, rel string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	abs := f.Absolute(rel)
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to stat %s", rel)
	}
	if info.IsDir() {
		return false, nil
	}

	if err := os.Remove(abs); err != nil {
		return false, apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to remove %s", rel)
	}
	return true, nil
}

// MovePapers relocates attachments for a batch of papers concurrently, one
// worker job per paper. Files within a paper move sequentially so its
// rollback stays self-contained. The returned slice holds the per-paper
// results in input order.
func (f *FileStore) MovePapers(ctx context.Context, papers []*domain.Paper) []error {
	return f.forEach(ctx, papers, func(ctx context.Context, _ int, p *domain.Paper) error {
		return f.MovePaper(ctx, p)
	})
}

// RemovePapers removes attachments for a batch of papers concurrently. Both
// slices hold per-paper results in input order; a paper's boolean is the AND
// across its files, as in RemovePaper.
func (f *FileStore) RemovePapers(ctx context.Context, papers []*domain.Paper) ([]bool, []error) {
	removed := make([]bool, len(papers))
	errs := f.forEach(ctx, papers, func(ctx context.Context, i int, p *domain.Paper) error {
		ok, err := f.RemovePaper(ctx, p)
		removed[i] = ok
		return err
	})
	return removed, errs
}

func (f *FileStore) forEach(ctx context.Context, papers []*domain.Paper, op func(context.Context, int, *domain.Paper) error) []error {
	errs := make([]error, len(papers))
	if len(papers) == 0 {
		return errs
	}

	type job struct {
		p     *domain.Paper
		index int
	}

	jobs := make(chan job, len(papers))
	done := make(chan struct{})

	workers := f.workers
	if workers > len(papers) {
		workers = len(papers)
	}

	for range workers {
		go func() {
			for j := range jobs {
				errs[j.index] = op(ctx, j.index, j.p)
				done <- struct{}{}
			}
		}()
	}

	for i, p := range papers {
		jobs <- job{p: p, index: i}
	}
	close(jobs)

	for range papers {
		<-done
	}
	return errs
}

// copyFile copies source to target and syncs the target before closing.
// O_EXCL guards against two moves racing onto the same target name.
func copyFile(source, target string) error {
	in, err := os.Open(source) //#nosec G304 -- paths are derived from library state
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //#nosec G304
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(target)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		_ = os.Remove(target)
		return err
	}
	return out.Close()
}
