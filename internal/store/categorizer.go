package store

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/id"
)

// Categorizer reference counting.
//
// Categorizers exist only while papers reference them (feeds are the
// exception: they represent subscriptions and survive at count zero). Both
// directions of the invariant are enforced inside the paper transactions:
// attaching finds-or-creates and increments, releasing decrements and deletes
// tags/folders whose count reaches zero. A categorizer is never created or
// destroyed outside the transaction that changes its count.

// getCategorizerTxn loads a categorizer record within txn.
func getCategorizerTxn(txn *badger.Txn, kind domain.Kind, catID string) (*domain.Categorizer, error) {
	var c domain.Categorizer
	if err := getJSON(txn, catKey(kind, catID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// findCategorizerByNameTxn resolves a typed key to its record via the name
// index. Returns (nil, nil) when no categorizer has that name.
func findCategorizerByNameTxn(txn *badger.Txn, key domain.Key) (*domain.Categorizer, error) {
	item, err := txn.Get(catNameKey(key))
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var catID string
	if err := item.Value(func(val []byte) error {
		catID = string(val)
		return nil
	}); err != nil {
		return nil, err
	}
	c, err := getCategorizerTxn(txn, key.Kind, catID)
	if isNotFound(err) {
		// Index points at a missing record; treat as integrity violation so
		// the enclosing transaction aborts instead of silently recreating.
		return nil, apperrors.Categorizer("name index points at missing " + string(key.Kind) + " " + catID)
	}
	return c, err
}

// attachCategorizerTxn finds or creates the categorizer for key and
// increments its count, persisting record and name index in txn.
func attachCategorizerTxn(txn *badger.Txn, key domain.Key) (*domain.Categorizer, error) {
	c, err := findCategorizerByNameTxn(txn, key)
	if err != nil {
		return nil, err
	}
	if c == nil {
		catID, err := id.New(string(key.Kind))
		if err != nil {
			return nil, err
		}
		now := time.Now()
		c = &domain.Categorizer{
			ID:        catID,
			Kind:      key.Kind,
			Name:      key.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := txn.Set(catNameKey(key), []byte(c.ID)); err != nil {
			return nil, err
		}
	}
	c.Count++
	c.Touch()
	if err := setJSON(txn, catKey(c.Kind, c.ID), c); err != nil {
		return nil, err
	}
	return c, nil
}

// releaseCategorizerTxn decrements the categorizer's count. Tags and folders
// are deleted, together with their name index entry, in the same transaction
// that takes their count to zero. Feeds floor at zero and keep their record.
// Releasing an already-missing categorizer is a no-op so remove paths stay
// idempotent.
func releaseCategorizerTxn(txn *badger.Txn, kind domain.Kind, catID string) error {
	c, err := getCategorizerTxn(txn, kind, catID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	c.Count--
	if c.Count <= 0 && kind != domain.KindFeed {
		if err := txn.Delete(catKey(kind, catID)); err != nil {
			return err
		}
		return txn.Delete(catNameKey(c.Key()))
	}
	if c.Count < 0 {
		c.Count = 0 // Safety guard.
	}
	c.Touch()
	return setJSON(txn, catKey(kind, catID), c)
}

// GetCategorizer retrieves a categorizer by kind and id.
func (s *Store) GetCategorizer(ctx context.Context, kind domain.Kind, catID string) (*domain.Categorizer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c *domain.Categorizer
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		c, err = getCategorizerTxn(txn, kind, catID)
		return err
	})
	if isNotFound(err) {
		return nil, apperrors.NotFoundf("%s %s not found", kind, catID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategorizerByName retrieves a categorizer by its typed natural key.
func (s *Store) GetCategorizerByName(ctx context.Context, key domain.Key) (*domain.Categorizer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c *domain.Categorizer
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		c, err = findCategorizerByNameTxn(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NotFoundf("%s %q not found", key.Kind, key.Name)
	}
	return c, nil
}

// ListCategorizers returns all categorizers of one kind, ordered by paper
// count (descending), then name for stability.
func (s *Store) ListCategorizers(ctx context.Context, kind domain.Kind) ([]*domain.Categorizer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperrors.Validationf("unknown categorizer kind %q", kind)
	}

	prefix := catPrefixFor(kind)
	var cats []*domain.Categorizer

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var c domain.Categorizer
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &c)
			}); err != nil {
				continue
			}
			cats = append(cats, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Count != cats[j].Count {
			return cats[i].Count > cats[j].Count
		}
		return cats[i].Name < cats[j].Name
	})

	return cats, nil
}

// NamesForIDs resolves categorizer ids to names, skipping ids that no longer
// resolve. Used when rebuilding a draft from a persisted paper.
func (s *Store) NamesForIDs(ctx context.Context, kind domain.Kind, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, catID := range ids {
			c, err := getCategorizerTxn(txn, kind, catID)
			if isNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			names = append(names, c.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// CreateFeed creates a feed subscription with no paper references yet. Feeds
// are the one categorizer kind created explicitly rather than on attach.
func (s *Store) CreateFeed(ctx context.Context, name, url string) (*domain.Categorizer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.Validation("feed name cannot be empty")
	}

	feedID, err := id.New(string(domain.KindFeed))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	feed := &domain.Categorizer{
		ID:        feedID,
		Kind:      domain.KindFeed,
		Name:      name,
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		existing, err := findCategorizerByNameTxn(txn, feed.Key())
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.Duplicate("feed " + name + " already exists")
		}
		if err := txn.Set(catNameKey(feed.Key()), []byte(feed.ID)); err != nil {
			return err
		}
		return setJSON(txn, catKey(feed.Kind, feed.ID), feed)
	})
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// UpdateFeedURL changes the subscription URL of a feed.
func (s *Store) UpdateFeedURL(ctx context.Context, feedID, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		feed, err := getCategorizerTxn(txn, domain.KindFeed, feedID)
		if err != nil {
			return err
		}
		feed.URL = url
		feed.Touch()
		return setJSON(txn, catKey(feed.Kind, feed.ID), feed)
	})
	if isNotFound(err) {
		return apperrors.NotFoundf("feed %s not found", feedID)
	}
	return err
}

// DeleteFeed removes a feed subscription. A feed still referenced by papers
// cannot be deleted; detach it from its papers first.
func (s *Store) DeleteFeed(ctx context.Context, feedID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		feed, err := getCategorizerTxn(txn, domain.KindFeed, feedID)
		if err != nil {
			return err
		}
		if feed.Count > 0 {
			return apperrors.Conflict("feed " + feed.Name + " is still referenced by papers")
		}
		if err := txn.Delete(catNameKey(feed.Key())); err != nil {
			return err
		}
		return txn.Delete(catKey(feed.Kind, feed.ID))
	})
	if isNotFound(err) {
		return apperrors.NotFoundf("feed %s not found", feedID)
	}
	return err
}
