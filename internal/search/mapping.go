package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for paper documents:
// full-text search with English stemming on title/authors/publication/note,
// exact keyword matching on tags, folders and identifiers, and a numeric
// year for range queries.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Title - primary search target.
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Authors - searchable, stored for display.
	authorsFieldMapping := bleve.NewTextFieldMapping()
	authorsFieldMapping.Analyzer = en.AnalyzerName
	authorsFieldMapping.Store = true
	authorsFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("authors", authorsFieldMapping)

	// Publication venue.
	pubFieldMapping := bleve.NewTextFieldMapping()
	pubFieldMapping.Analyzer = en.AnalyzerName
	pubFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("publication", pubFieldMapping)

	// Note - searchable but not stored.
	noteFieldMapping := bleve.NewTextFieldMapping()
	noteFieldMapping.Analyzer = en.AnalyzerName
	noteFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("note", noteFieldMapping)

	// Identifiers - exact match only.
	doiFieldMapping := bleve.NewTextFieldMapping()
	doiFieldMapping.Analyzer = keyword.Name
	doiFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("doi", doiFieldMapping)

	arxivFieldMapping := bleve.NewTextFieldMapping()
	arxivFieldMapping.Analyzer = keyword.Name
	arxivFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("arxiv", arxivFieldMapping)

	// Tag and folder names - keyword analyzer keeps multi-word names intact.
	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	foldersFieldMapping := bleve.NewTextFieldMapping()
	foldersFieldMapping.Analyzer = keyword.Name
	foldersFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("folders", foldersFieldMapping)

	// Publication year - for range filtering.
	yearFieldMapping := bleve.NewNumericFieldMapping()
	yearFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("year", yearFieldMapping)

	// Added timestamp - for sorting by recency.
	addedFieldMapping := bleve.NewNumericFieldMapping()
	addedFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("added_at", addedFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
