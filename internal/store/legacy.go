package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// Legacy import markers. Each imported legacy row leaves a marker keyed on
// its legacy id, so re-running a migration against the same source skips
// rows that already landed and the import stays idempotent.

// HasLegacyMarker reports whether a legacy row was already imported.
func (s *Store) HasLegacyMarker(ctx context.Context, legacyID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(legacyKey(legacyID))
		return err
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetLegacyMarker records that a legacy row was imported as paperID. An
// empty paperID is valid: it marks rows that were examined and skipped (for
// example as duplicates), so they are not re-examined on the next run.
func (s *Store) SetLegacyMarker(ctx context.Context, legacyID, paperID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(legacyKey(legacyID), []byte(paperID))
	})
}

// LegacyPaperID returns the paper id a legacy row was imported as, or ""
// when the row is unknown or was skipped.
func (s *Store) LegacyPaperID(ctx context.Context, legacyID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var paperID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(legacyKey(legacyID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			paperID = string(val)
			return nil
		})
	})
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return paperID, nil
}
