package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/ingest"
	"github.com/paperbaseapp/paperbase-server/internal/logger"
)

// ProvideScraperPipeline provides the metadata scraper chain.
func ProvideScraperPipeline(i do.Injector) (*ingest.Pipeline, error) {
	log := do.MustInvoke[*logger.Logger](i)

	return ingest.NewPipeline(log.Logger,
		ingest.NewArxivScraper(),
		ingest.NewDOIScraper(),
	), nil
}

// ProvideDownloader provides the rate-limited PDF downloader.
func ProvideDownloader(i do.Injector) (*ingest.Downloader, error) {
	cfg := do.MustInvoke[*config.Config](i)

	dir := cfg.Ingest.DownloadsPath
	if dir == "" {
		dir = filepath.Join(cfg.Library.Root, "downloads")
	}
	return ingest.NewDownloader(dir, cfg.Ingest.DownloadRatePerSec)
}
