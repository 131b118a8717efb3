// Package config provides application configuration loaded from command-line
// flags, environment variables, and an optional .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration. It is built once at startup
// and passed explicitly into the stores and services that need it; no
// component reads ambient global state.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Library LibraryConfig
	Server  ServerConfig
	Ingest  IngestConfig
	Migrate MigrateConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// LibraryConfig holds the managed paper library configuration.
type LibraryConfig struct {
	// Root is the directory under which the database and all managed
	// attachment files live. Attachment paths are stored relative to it, so
	// the whole root is relocatable.
	Root string
	// InboxPath is watched for dropped PDFs; empty disables the watcher.
	InboxPath string
	// DeleteSourceOnMove selects move (true) vs copy (false) when an
	// attachment is relocated into the library.
	DeleteSourceOnMove bool
	// StripString is removed from title/authors values during draft
	// normalization.
	StripString string
	// FileWorkers is the number of concurrent file-operation workers.
	FileWorkers int
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// IngestConfig holds PDF ingestion and download configuration.
type IngestConfig struct {
	// AllowPDFMetadata enables prefill of title/authors from PDF document
	// attributes when reading a dropped file.
	AllowPDFMetadata bool
	// DownloadsPath receives files fetched by the downloader; defaults to
	// {root}/downloads.
	DownloadsPath string
	// DownloadRatePerSec limits outbound fetches per second.
	DownloadRatePerSec float64
}

// MigrateConfig holds legacy import configuration.
type MigrateConfig struct {
	// LegacyDBPath points at the legacy SQLite database; empty means no
	// migration is offered at startup.
	LegacyDBPath string
}

// Load builds configuration with precedence: flags > environment > .env file
// > defaults.
func Load() (*Config, error) {
	env := flag.String("env", "", "Environment (development, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	libraryRoot := flag.String("library-root", "", "Path to the paper library root")
	inboxPath := flag.String("inbox-path", "", "Directory watched for dropped PDFs")
	deleteSource := flag.String("delete-source-on-move", "", "Delete source files after moving into the library (default: true)")
	stripString := flag.String("strip-string", "", "Substring removed from title/authors during normalization (default: .)")
	fileWorkers := flag.String("file-workers", "", "Concurrent file-operation workers (default: 4)")
	serverPort := flag.String("port", "", "HTTP API port (default: 21227)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowPDFMeta := flag.String("allow-pdf-metadata", "", "Prefill title/authors from PDF attributes (default: true)")
	downloadsPath := flag.String("downloads-path", "", "Directory for downloaded PDFs (default: {library-root}/downloads)")
	legacyDB := flag.String("legacy-db", "", "Path to a legacy SQLite database to import")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// .env values fill in behind real environment variables.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: value(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: value(*logLevel, "LOG_LEVEL", "info"),
		},
		Library: LibraryConfig{
			Root:               value(*libraryRoot, "LIBRARY_ROOT", ""),
			InboxPath:          value(*inboxPath, "INBOX_PATH", ""),
			DeleteSourceOnMove: boolValue(*deleteSource, "DELETE_SOURCE_ON_MOVE", true),
			StripString:        value(*stripString, "STRIP_STRING", "."),
			FileWorkers:        intValue(*fileWorkers, "FILE_WORKERS", 4),
		},
		Server: ServerConfig{
			Port: value(*serverPort, "SERVER_PORT", "21227"),
		},
		Ingest: IngestConfig{
			AllowPDFMetadata:   boolValue(*allowPDFMeta, "ALLOW_PDF_METADATA", true),
			DownloadsPath:      value(*downloadsPath, "DOWNLOADS_PATH", ""),
			DownloadRatePerSec: 2,
		},
		Migrate: MigrateConfig{
			LegacyDBPath: value(*legacyDB, "LEGACY_DB_PATH", ""),
		},
	}

	for _, d := range []struct {
		dst  *time.Duration
		flag string
		env  string
		def  string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
	} {
		raw := value(d.flag, d.env, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.env, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that required values are present and well formed.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "production": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.App.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Library.Root == "" {
		return errors.New("library root cannot be empty after expansion")
	}
	if c.Library.FileWorkers < 1 {
		return fmt.Errorf("file workers must be at least 1, got %d", c.Library.FileWorkers)
	}
	return nil
}

// expandPaths expands ~ and applies path defaults derived from the root.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultRoot := filepath.Join(homeDir, "PaperBase")

	if c.Library.Root, err = expandPath(c.Library.Root, defaultRoot); err != nil {
		return fmt.Errorf("invalid library root: %w", err)
	}
	if c.Library.InboxPath != "" {
		if c.Library.InboxPath, err = expandPath(c.Library.InboxPath, ""); err != nil {
			return fmt.Errorf("invalid inbox path: %w", err)
		}
	}
	defaultDownloads := filepath.Join(c.Library.Root, "downloads")
	if c.Ingest.DownloadsPath, err = expandPath(c.Ingest.DownloadsPath, defaultDownloads); err != nil {
		return fmt.Errorf("invalid downloads path: %w", err)
	}
	if c.Migrate.LegacyDBPath != "" {
		if c.Migrate.LegacyDBPath, err = expandPath(c.Migrate.LegacyDBPath, ""); err != nil {
			return fmt.Errorf("invalid legacy db path: %w", err)
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute. An empty path falls back
// to defaultPath unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

// value returns the first non-empty of flag, env var, default.
func value(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// boolValue accepts "true", "1", "yes" (case-insensitive) as true.
func boolValue(flagValue, envKey string, defaultValue bool) bool {
	raw := value(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	raw = strings.ToLower(raw)
	return raw == "true" || raw == "1" || raw == "yes"
}

func intValue(flagValue, envKey string, defaultValue int) int {
	raw := value(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return defaultValue
	}
	return n
}

// loadEnvFile loads KEY=value lines from a .env file. Existing environment
// variables win over file values.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- path comes from the operator
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, val); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
