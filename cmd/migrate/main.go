// Command migrate imports a legacy SQLite paper library into PaperBase.
//
// Usage:
//
//	migrate -legacy-db /path/to/library.db [-library-root ~/PaperBase]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/filestore"
	"github.com/paperbaseapp/paperbase-server/internal/logger"
	"github.com/paperbaseapp/paperbase-server/internal/migrate"
	"github.com/paperbaseapp/paperbase-server/internal/service"
	"github.com/paperbaseapp/paperbase-server/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Migrate.LegacyDBPath == "" {
		return fmt.Errorf("-legacy-db is required")
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	s, err := store.New(filepath.Join(cfg.Library.Root, "db"), log.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	files, err := filestore.New(cfg.Library, log.Logger)
	if err != nil {
		return err
	}

	src, err := migrate.OpenSource(cfg.Migrate.LegacyDBPath)
	if err != nil {
		return err
	}
	defer src.Close()

	papers := service.NewPaperService(s, files, log.Logger)
	report, err := migrate.New(src, papers, s, log.Logger).Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Imported:         %d\n", report.Imported)
	fmt.Printf("Skipped:          %d\n", report.Skipped)
	fmt.Printf("Already imported: %d\n", report.AlreadyImported)
	if len(report.MissingFile) > 0 {
		fmt.Printf("Missing files (%d):\n", len(report.MissingFile))
		for _, title := range report.MissingFile {
			fmt.Printf("  %s\n", title)
		}
	}
	return nil
}
