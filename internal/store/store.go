// Package store persists papers and categorizers in an embedded Badger
// database. All multi-record invariants (the duplicate guard, categorizer
// reference counts) are enforced inside single Badger transactions.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
)

// SearchIndexer keeps the full-text index in sync with store changes.
// Index updates run asynchronously after the transaction commits; a failed
// index update never fails the store operation.
type SearchIndexer interface {
	IndexPaper(ctx context.Context, p *domain.Paper) error
	DeletePaper(ctx context.Context, paperID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexPaper is a no-op.
func (NoopSearchIndexer) IndexPaper(context.Context, *domain.Paper) error { return nil }

// DeletePaper is a no-op.
func (NoopSearchIndexer) DeletePaper(context.Context, string) error { return nil }

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Search indexer for keeping search in sync with store changes.
	// Set via SetSearchIndexer after store creation to avoid circular
	// dependencies.
	searchIndexer SearchIndexer
}

// New opens (or creates) the database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:            db,
		logger:        logger,
		searchIndexer: NoopSearchIndexer{},
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// This is set after store creation to avoid circular dependencies (the store
// must exist before the search service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	if indexer == nil {
		indexer = NoopSearchIndexer{}
	}
	s.searchIndexer = indexer
}

// indexAsync pushes a paper into the search index after a successful commit.
func (s *Store) indexAsync(ctx context.Context, p *domain.Paper) {
	go func(ctx context.Context, p *domain.Paper) {
		if err := s.searchIndexer.IndexPaper(ctx, p); err != nil && s.logger != nil {
			s.logger.Warn("search index update failed", "paper_id", p.ID, "error", err)
		}
	}(context.WithoutCancel(ctx), p)
}

// unindexAsync removes a paper from the search index after a successful commit.
func (s *Store) unindexAsync(ctx context.Context, paperID string) {
	go func(ctx context.Context) {
		if err := s.searchIndexer.DeletePaper(ctx, paperID); err != nil && s.logger != nil {
			s.logger.Warn("search index delete failed", "paper_id", paperID, "error", err)
		}
	}(context.WithoutCancel(ctx))
}

// Transaction helpers.

// getJSON reads and unmarshals the value at key within txn.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setJSON marshals and writes value at key within txn.
func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// unmarshalInto decodes a raw Badger value into dest.
func unmarshalInto(val []byte, dest any) error {
	return json.Unmarshal(val, dest)
}

// isNotFound reports whether err is Badger's missing-key error.
func isNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}
