// Package ingest turns dropped or downloaded PDF files into paper drafts:
// it extracts identifiers (DOI, arXiv id) from the file, optionally prefills
// title and authors from the document attributes, and hands the draft to a
// scraper for metadata completion.
package ingest

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
)

var (
	// doiPattern matches a DOI in free text. Trailing punctuation that PDF
	// extraction tends to glue on is trimmed afterwards.
	doiPattern = regexp.MustCompile(`10\.\d{4,9}(?:\.\d+)*/[^%"#?\s]+`)

	// arxivPattern matches modern (2007+) and old-style arXiv identifiers,
	// with or without the "arXiv:" prefix on the old style.
	arxivPattern = regexp.MustCompile(`(?i)arXiv:\s*(\d{4}\.\d{4,5}(?:v\d+)?|[a-z][a-z-]*(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)`)

	// pdfInfoPattern pulls literal-string entries out of the PDF info
	// dictionary, e.g. /Title (Deep Learning).
	pdfInfoPattern = regexp.MustCompile(`/(Title|Author)\s*\(([^)]*)\)`)
)

// ExtractDOI returns the first DOI found in text, or "".
func ExtractDOI(text string) string {
	m := doiPattern.FindString(text)
	return strings.TrimRight(m, ".,;:)]}>")
}

// ExtractArxivID returns the first arXiv identifier found in text, or "".
func ExtractArxivID(text string) string {
	m := arxivPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// Metadata is what a reader could recover from a PDF file.
type Metadata struct {
	Title   string
	Authors string
	DOI     string
	ArxivID string
}

// MetadataReader extracts metadata from a PDF file on disk.
type MetadataReader interface {
	Read(ctx context.Context, path string) (*Metadata, error)
}

// rawReadLimit bounds how much of a PDF is scanned. Identifiers and the
// info dictionary sit near the start or end of real-world files.
const rawReadLimit = 4 << 20

// RawReader scans the raw bytes of a PDF for identifiers and info-dictionary
// attributes. It needs no PDF parser: DOIs and arXiv ids appear as plain
// text in the file, and simple info dictionaries store title/author as
// literal strings.
type RawReader struct{}

// Read implements MetadataReader.
func (RawReader) Read(ctx context.Context, path string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path) //#nosec G304 -- path comes from the watched inbox
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to open %s", path)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, rawReadLimit))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to read %s", path)
	}
	text := string(raw)

	meta := &Metadata{
		DOI:     ExtractDOI(text),
		ArxivID: ExtractArxivID(text),
	}
	for _, m := range pdfInfoPattern.FindAllStringSubmatch(text, -1) {
		switch m[1] {
		case "Title":
			if meta.Title == "" {
				meta.Title = strings.TrimSpace(m[2])
			}
		case "Author":
			if meta.Authors == "" {
				meta.Authors = strings.TrimSpace(m[2])
			}
		}
	}
	return meta, nil
}

// DraftFromPDF builds a draft for a PDF file. Identifiers are always taken;
// title and authors prefill only when allowMetadata is set, since embedded
// attributes are frequently junk ("untitled", the typesetter's name).
func DraftFromPDF(ctx context.Context, reader MetadataReader, path string, allowMetadata bool) (*domain.Draft, error) {
	meta, err := reader.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	d := domain.NewDraft()
	d.MainURL = path
	_ = d.SetField("doi", meta.DOI, false)
	_ = d.SetField("arxiv", meta.ArxivID, false)
	if allowMetadata {
		_ = d.SetField("title", meta.Title, false)
		_ = d.SetField("authors", meta.Authors, false)
	}
	return d, nil
}
