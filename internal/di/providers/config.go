// Package providers contains dependency injection providers for the
// PaperBase server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	log.Info("Starting PaperBase Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"library_root", cfg.Library.Root,
	)

	return log, nil
}
