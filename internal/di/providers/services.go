package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/filestore"
	"github.com/paperbaseapp/paperbase-server/internal/logger"
	"github.com/paperbaseapp/paperbase-server/internal/search"
	"github.com/paperbaseapp/paperbase-server/internal/service"
)

// ProvideFileStore provides the managed attachment file store.
func ProvideFileStore(i do.Injector) (*filestore.FileStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return filestore.New(cfg.Library, log.Logger)
}

// ProvidePaperService provides the paper orchestration service.
func ProvidePaperService(i do.Injector) (*service.PaperService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	files := do.MustInvoke[*filestore.FileStore](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPaperService(storeHandle.Store, files, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds the search index from the store when
// the index is empty but the library is not, which happens after a mapping
// bump or index corruption wiped the on-disk index.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	idxHandle := do.MustInvoke[*SearchIndexHandle](i)
	indexer := do.MustInvoke[*search.Indexer](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	count, err := idxHandle.DocumentCount()
	if err != nil || count > 0 {
		return
	}

	ctx := context.Background()
	papers, err := storeHandle.ListPapers(ctx)
	if err != nil || len(papers) == 0 {
		return
	}

	log.Info("Search index empty, rebuilding", "papers", len(papers))
	go func() {
		if err := indexer.Reindex(ctx); err != nil {
			log.Warn("Search reindex failed", "error", err)
		}
	}()
}
