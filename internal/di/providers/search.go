package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/logger"
	"github.com/paperbaseapp/paperbase-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the full-text search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := search.NewIndex(filepath.Join(cfg.Library.Root, "search"), log.Logger)
	if err != nil {
		return nil, err
	}

	return &SearchIndexHandle{Index: idx}, nil
}

// ProvideSearchIndexer provides the store-to-index bridge. Registering it
// also hooks paper writes up to the index.
func ProvideSearchIndexer(i do.Injector) (*search.Indexer, error) {
	idxHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	indexer := search.NewIndexer(idxHandle.Index, storeHandle.Store)
	storeHandle.SetSearchIndexer(indexer)

	return indexer, nil
}
