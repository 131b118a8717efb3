package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/ingest"
	"github.com/paperbaseapp/paperbase-server/internal/logger"
	"github.com/paperbaseapp/paperbase-server/internal/service"
	"github.com/paperbaseapp/paperbase-server/internal/watcher"
)

// InboxWatcherHandle wraps the inbox watcher with shutdown capability. The
// inner watcher is nil when no inbox path is configured.
type InboxWatcherHandle struct {
	*watcher.InboxWatcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *InboxWatcherHandle) Shutdown() error {
	if h.InboxWatcher == nil {
		return nil
	}
	h.cancel()
	h.Stop()
	return nil
}

// ProvideInboxWatcher provides the inbox directory watcher. PDFs dropped
// into the inbox are drafted from their contents, completed by the scraper
// pipeline, and added to the library.
func ProvideInboxWatcher(i do.Injector) (*InboxWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Library.InboxPath == "" {
		return &InboxWatcherHandle{}, nil
	}

	log := do.MustInvoke[*logger.Logger](i)
	papers := do.MustInvoke[*service.PaperService](i)
	pipeline := do.MustInvoke[*ingest.Pipeline](i)

	handler := func(ctx context.Context, path string) {
		d, err := ingest.DraftFromPDF(ctx, ingest.RawReader{}, path, cfg.Ingest.AllowPDFMetadata)
		if err != nil {
			log.Warn("Failed to read inbox file", "path", path, "error", err)
			return
		}
		d.SetStrip(cfg.Library.StripString)
		pipeline.Scrape(ctx, d)

		added, err := papers.Add(ctx, d)
		if err != nil {
			log.Warn("Failed to add inbox file", "path", path, "error", err)
			return
		}
		if !added {
			log.Info("Inbox file skipped as duplicate", "path", path)
			return
		}
		log.Info("Inbox file added", "path", path, "paper_id", d.ID)
	}

	w, err := watcher.New(cfg.Library.InboxPath, handler, log.Logger, watcher.Options{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	return &InboxWatcherHandle{InboxWatcher: w, cancel: cancel}, nil
}
