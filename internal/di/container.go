// Package di provides dependency injection configuration for the PaperBase
// server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/di/providers"
	"github.com/paperbaseapp/paperbase-server/internal/filestore"
	"github.com/paperbaseapp/paperbase-server/internal/ingest"
	"github.com/paperbaseapp/paperbase-server/internal/logger"
	"github.com/paperbaseapp/paperbase-server/internal/search"
	"github.com/paperbaseapp/paperbase-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchIndexer)

	// Files and business services
	do.Provide(injector, providers.ProvideFileStore)
	do.Provide(injector, providers.ProvidePaperService)

	// Ingestion
	do.Provide(injector, providers.ProvideScraperPipeline)
	do.Provide(injector, providers.ProvideDownloader)
	do.Provide(injector, providers.ProvideInboxWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is up.
// This triggers lazy initialization of every provider.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*search.Indexer](injector)
	_ = do.MustInvoke[*filestore.FileStore](injector)
	_ = do.MustInvoke[*service.PaperService](injector)
	_ = do.MustInvoke[*ingest.Pipeline](injector)
	_ = do.MustInvoke[*ingest.Downloader](injector)
	_ = do.MustInvoke[*providers.InboxWatcherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the search index from the store if it came up empty.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
