package store

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/normalize"
)

// Names groups the categorizer name lists being attached to a paper. The
// store resolves them to records inside the paper's own transaction.
type Names struct {
	Tags    []string
	Folders []string
	Feeds   []string
}

// HasDuplicate reports whether a paper with the same normalized (title,
// authors) pair already exists. This is a point-in-time read; AddPaper
// re-checks inside its transaction.
func (s *Store) HasDuplicate(ctx context.Context, title, authors string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := paperDupKey(normalize.DuplicateKey(title, authors))
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
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

// AddPaper persists a new paper together with its categorizer attachments in
// one transaction. The boolean result reports whether the paper was added:
// false means the (title, authors) duplicate guard rejected it, which is not
// an error. The guard is an index entry written in the same transaction as
// the record, so two concurrent adds of the same paper cannot both succeed.
func (s *Store) AddPaper(ctx context.Context, p *domain.Paper, names Names) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	dupKey := paperDupKey(normalize.DuplicateKey(p.Title, p.Authors))

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(dupKey); err == nil {
			return apperrors.ErrDuplicate
		} else if !isNotFound(err) {
			return err
		}

		var err error
		if p.TagIDs, err = attachAllTxn(txn, domain.KindTag, names.Tags); err != nil {
			return err
		}
		if p.FolderIDs, err = attachAllTxn(txn, domain.KindFolder, names.Folders); err != nil {
			return err
		}
		if p.FeedIDs, err = attachAllTxn(txn, domain.KindFeed, names.Feeds); err != nil {
			return err
		}

		if err := txn.Set(dupKey, []byte(p.ID)); err != nil {
			return err
		}
		return setJSON(txn, paperKey(p.ID), p)
	})
	if apperrors.Is(err, apperrors.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.indexAsync(ctx, p)
	return true, nil
}

// UpdatePaper replaces a paper record and reconciles its categorizer
// attachments in one transaction. Categorizers kept across the update retain
// their identity and count; dropped ones are released (and garbage collected
// at zero), new ones are attached. The duplicate-guard index follows any
// title/authors change, and moving onto a pair owned by another paper fails
// with a duplicate error.
func (s *Store) UpdatePaper(ctx context.Context, p *domain.Paper, names Names) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var old domain.Paper
		if err := getJSON(txn, paperKey(p.ID), &old); err != nil {
			if isNotFound(err) {
				return apperrors.NotFoundf("paper %s not found", p.ID)
			}
			return err
		}

		oldDup := normalize.DuplicateKey(old.Title, old.Authors)
		newDup := normalize.DuplicateKey(p.Title, p.Authors)
		if oldDup != newDup {
			item, err := txn.Get(paperDupKey(newDup))
			if err == nil {
				var owner string
				if err := item.Value(func(val []byte) error {
					owner = string(val)
					return nil
				}); err != nil {
					return err
				}
				if owner != p.ID {
					return apperrors.Duplicate("another paper already has this title and authors")
				}
			} else if !isNotFound(err) {
				return err
			}
			if err := txn.Delete(paperDupKey(oldDup)); err != nil && !isNotFound(err) {
				return err
			}
			if err := txn.Set(paperDupKey(newDup), []byte(p.ID)); err != nil {
				return err
			}
		}

		var err error
		if p.TagIDs, err = reconcileTxn(txn, domain.KindTag, old.TagIDs, names.Tags); err != nil {
			return err
		}
		if p.FolderIDs, err = reconcileTxn(txn, domain.KindFolder, old.FolderIDs, names.Folders); err != nil {
			return err
		}
		if p.FeedIDs, err = reconcileTxn(txn, domain.KindFeed, old.FeedIDs, names.Feeds); err != nil {
			return err
		}

		return setJSON(txn, paperKey(p.ID), p)
	})
	if err != nil {
		return err
	}

	s.indexAsync(ctx, p)
	return nil
}

// RemovePaper deletes a paper, releases all its categorizer references, and
// drops its duplicate-guard entry, all in one transaction. The removed record
// is returned so callers can clean up its attachment files.
func (s *Store) RemovePaper(ctx context.Context, paperID string) (*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var removed domain.Paper
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, paperKey(paperID), &removed); err != nil {
			if isNotFound(err) {
				return apperrors.NotFoundf("paper %s not found", paperID)
			}
			return err
		}

		for _, ref := range []struct {
			kind domain.Kind
			ids  []string
		}{
			{domain.KindTag, removed.TagIDs},
			{domain.KindFolder, removed.FolderIDs},
			{domain.KindFeed, removed.FeedIDs},
		} {
			for _, catID := range ref.ids {
				if err := releaseCategorizerTxn(txn, ref.kind, catID); err != nil {
					return err
				}
			}
		}

		dupKey := paperDupKey(normalize.DuplicateKey(removed.Title, removed.Authors))
		if err := txn.Delete(dupKey); err != nil && !isNotFound(err) {
			return err
		}
		return txn.Delete(paperKey(paperID))
	})
	if err != nil {
		return nil, err
	}

	s.unindexAsync(ctx, paperID)
	return &removed, nil
}

// GetPaper retrieves a paper by id.
func (s *Store) GetPaper(ctx context.Context, paperID string) (*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p domain.Paper
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, paperKey(paperID), &p)
	})
	if isNotFound(err) {
		return nil, apperrors.NotFoundf("paper %s not found", paperID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPapers returns all papers, newest first.
func (s *Store) ListPapers(ctx context.Context) ([]*domain.Paper, error) {
	return s.listPapers(ctx, nil)
}

// ListPapersByCategorizer returns all papers referencing a categorizer,
// newest first.
func (s *Store) ListPapersByCategorizer(ctx context.Context, kind domain.Kind, catID string) ([]*domain.Paper, error) {
	return s.listPapers(ctx, func(p *domain.Paper) bool {
		switch kind {
		case domain.KindTag:
			return containsID(p.TagIDs, catID)
		case domain.KindFolder:
			return containsID(p.FolderIDs, catID)
		case domain.KindFeed:
			return containsID(p.FeedIDs, catID)
		}
		return false
	})
}

func (s *Store) listPapers(ctx context.Context, keep func(*domain.Paper) bool) ([]*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(paperPrefix)
	var papers []*domain.Paper

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			// The duplicate-guard index shares the "paper:" prefix; its keys
			// carry the idx marker and are skipped here.
			if len(it.Item().Key()) >= len(paperDupPrefix) &&
				string(it.Item().Key()[:len(paperDupPrefix)]) == paperDupPrefix {
				continue
			}
			var p domain.Paper
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalInto(val, &p)
			}); err != nil {
				continue
			}
			if keep == nil || keep(&p) {
				papers = append(papers, &p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(papers, func(i, j int) bool {
		if !papers[i].AddTime.Equal(papers[j].AddTime) {
			return papers[i].AddTime.After(papers[j].AddTime)
		}
		return papers[i].ID < papers[j].ID
	})

	return papers, nil
}

// attachAllTxn attaches every name of one kind, returning the categorizer ids
// in name order.
func attachAllTxn(txn *badger.Txn, kind domain.Kind, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		c, err := attachCategorizerTxn(txn, domain.Key{Kind: kind, Name: name})
		if err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// reconcileTxn diffs a paper's previous categorizer ids against the new name
// list. Names kept across the update reuse their existing record without
// touching its count; new names are attached, dropped ids are released.
func reconcileTxn(txn *badger.Txn, kind domain.Kind, oldIDs, newNames []string) ([]string, error) {
	oldByName := make(map[string]string, len(oldIDs))
	for _, oid := range oldIDs {
		c, err := getCategorizerTxn(txn, kind, oid)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		oldByName[c.Name] = oid
	}

	kept := make(map[string]bool, len(newNames))
	ids := make([]string, 0, len(newNames))
	for _, name := range newNames {
		if oid, ok := oldByName[name]; ok && !kept[oid] {
			ids = append(ids, oid)
			kept[oid] = true
			continue
		}
		c, err := attachCategorizerTxn(txn, domain.Key{Kind: kind, Name: name})
		if err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}

	for _, oid := range oldIDs {
		if kept[oid] {
			continue
		}
		if err := releaseCategorizerTxn(txn, kind, oid); err != nil {
			return nil, err
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
