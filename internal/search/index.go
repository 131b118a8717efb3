// Package search provides full-text search over the paper library, backed by
// a Bleve index kept in sync with the store.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
)

// Index wraps a Bleve index with paper-specific operations.
//
// Thread safety: all public methods are safe for concurrent use. The mutex
// protects against index corruption during rebuild operations.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// mappingVersion is incremented whenever the index mapping changes, which
// triggers an automatic rebuild on startup.
const mappingVersion = "1"

// NewIndex creates or opens a search index under dataPath. A corrupted index
// or one built with an outdated mapping is removed and recreated.
func NewIndex(dataPath string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(dataPath, "search.bleve")
	versionPath := filepath.Join(dataPath, "search.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(existingVersion) != mappingVersion {
			logger.Info("search index mapping outdated, will rebuild",
				"new_version", mappingVersion)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath, "error", err)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

// IndexDocument indexes a single paper document.
func (i *Index) IndexDocument(doc *PaperDocument) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes multiple documents in one batch.
func (i *Index) IndexDocuments(docs []*PaperDocument) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	batch := i.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	return i.index.Batch(batch)
}

// DeleteDocument removes a paper from the index.
func (i *Index) DeleteDocument(id string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Delete(id)
}

// DocumentCount returns the number of indexed papers.
func (i *Index) DocumentCount() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// PaperStore is the slice of the store the indexer needs to resolve
// categorizer names and enumerate papers.
type PaperStore interface {
	NamesForIDs(ctx context.Context, kind domain.Kind, ids []string) ([]string, error)
	ListPapers(ctx context.Context) ([]*domain.Paper, error)
}

// Indexer adapts the index to the store's SearchIndexer seam, resolving
// categorizer ids to names before indexing.
type Indexer struct {
	index *Index
	store PaperStore
}

// NewIndexer creates the store-facing indexer.
func NewIndexer(index *Index, store PaperStore) *Indexer {
	return &Indexer{index: index, store: store}
}

// IndexPaper implements store.SearchIndexer.
func (x *Indexer) IndexPaper(ctx context.Context, p *domain.Paper) error {
	doc, err := x.document(ctx, p)
	if err != nil {
		return err
	}
	return x.index.IndexDocument(doc)
}

// DeletePaper implements store.SearchIndexer.
func (x *Indexer) DeletePaper(_ context.Context, paperID string) error {
	return x.index.DeleteDocument(paperID)
}

// Reindex rebuilds the index contents from the store. Used at startup when
// the mapping version changed.
func (x *Indexer) Reindex(ctx context.Context) error {
	papers, err := x.store.ListPapers(ctx)
	if err != nil {
		return err
	}
	docs := make([]*PaperDocument, 0, len(papers))
	for _, p := range papers {
		doc, err := x.document(ctx, p)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	return x.index.IndexDocuments(docs)
}

func (x *Indexer) document(ctx context.Context, p *domain.Paper) (*PaperDocument, error) {
	tags, err := x.store.NamesForIDs(ctx, domain.KindTag, p.TagIDs)
	if err != nil {
		return nil, err
	}
	folders, err := x.store.NamesForIDs(ctx, domain.KindFolder, p.FolderIDs)
	if err != nil {
		return nil, err
	}
	return DocumentFromPaper(p, tags, folders), nil
}
