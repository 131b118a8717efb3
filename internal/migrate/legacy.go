// Package migrate imports papers from a legacy SQLite library database.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
)

// LegacyPaper is one row of the legacy PaperMetas table, joined with its
// Files rows.
type LegacyPaper struct {
	ID          string
	AddTime     string // "2006-01-02 15:04:05"
	Title       string
	Authors     string // " and "-separated
	Pub         string
	PubType     string // free-form venue name
	PubTime     string
	CiteKey     string
	Note        string
	Rating      int
	DOI         string
	Arxiv       string
	Flag        int
	Tags        string // ";"-separated
	PaperFile   string
	Attachments []string
	Bib         string // BibTeX entry, synthesized by Complete when empty

	// GeneratedID reports that the source row had no id and Complete
	// assigned a random one.
	GeneratedID bool
}

// Complete fills the derivable fields the legacy app left empty: a fresh
// uuid when the row has no id, a cite key from the first author (or the
// first title word) plus the publication year, and a synthesized BibTeX
// entry matching the venue type.
func (p *LegacyPaper) Complete() {
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.GeneratedID = true
	}

	if p.CiteKey == "" {
		switch {
		case p.Authors != "":
			first := strings.SplitN(p.Authors, " and ", 2)[0]
			p.CiteKey = strings.ReplaceAll(first, " ", "_") + "_" + p.PubTime
		case p.Title != "":
			p.CiteKey = strings.SplitN(p.Title, " ", 2)[0] + "_" + p.PubTime
		}
	}

	if p.Bib == "" {
		p.Bib = p.bibEntry()
	}
}

// bibEntry synthesizes a BibTeX entry for the row. Conference-like venue
// types become @inproceedings, everything else @article.
func (p *LegacyPaper) bibEntry() string {
	switch p.PubType {
	case "inproceedings", "incollection", "conference":
		return fmt.Sprintf("@inproceedings{%s,\n  year = {%s},\n  title = {{%s}},\n  author = {%s},\n  booktitle = {%s},\n}",
			p.CiteKey, p.PubTime, p.Title, p.Authors, p.Pub)
	default:
		return fmt.Sprintf("@article{%s,\n  year = {%s},\n  title = {{%s}},\n  author = {%s},\n  journal = {%s},\n}",
			p.CiteKey, p.PubTime, p.Title, p.Authors, p.Pub)
	}
}

// Source reads a legacy SQLite library database. The attachment files of a
// legacy library live next to the database file.
type Source struct {
	db  *sql.DB
	dir string
}

// OpenSource opens the legacy database at path read-only.
func OpenSource(path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeMigrationSource, "legacy database not found: %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeMigrationSource, "failed to open legacy database %s", path)
	}

	return &Source{db: db, dir: filepath.Dir(path)}, nil
}

// Close closes the database.
func (s *Source) Close() error { return s.db.Close() }

// Dir returns the directory containing the legacy database, where its
// attachment files live.
func (s *Source) Dir() string { return s.dir }

// Papers reads all legacy rows with their files, completing derivable
// fields.
func (s *Source) Papers(ctx context.Context) ([]*LegacyPaper, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, addTime, title, authors, pub, pubType, pubTime,
		       citeKey, note, rating, doi, arxiv, flag, tags
		FROM PaperMetas`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeMigrationSource, "failed to read PaperMetas")
	}
	defer rows.Close()

	var papers []*LegacyPaper
	for rows.Next() {
		var p LegacyPaper
		var addTime, title, authors, pub, pubType, pubTime, citeKey, note, doi, arxiv, tags sql.NullString
		var id sql.NullString
		var rating, flag sql.NullInt64

		if err := rows.Scan(&id, &addTime, &title, &authors, &pub, &pubType, &pubTime,
			&citeKey, &note, &rating, &doi, &arxiv, &flag, &tags); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeMigrationSource, "failed to scan PaperMetas row")
		}

		p.ID = id.String
		p.AddTime = addTime.String
		p.Title = title.String
		p.Authors = authors.String
		p.Pub = pub.String
		p.PubType = pubType.String
		p.PubTime = pubTime.String
		p.CiteKey = citeKey.String
		p.Note = note.String
		p.Rating = int(rating.Int64)
		p.DOI = doi.String
		p.Arxiv = arxiv.String
		p.Flag = int(flag.Int64)
		p.Tags = tags.String

		papers = append(papers, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeMigrationSource, "failed to iterate PaperMetas")
	}

	for _, p := range papers {
		if err := s.loadFiles(ctx, p); err != nil {
			return nil, err
		}
		p.Complete()
	}
	return papers, nil
}

// loadFiles attaches the Files rows of one paper: type "paper" becomes the
// main file, type "attachment" a supplementary file.
func (s *Source) loadFiles(ctx context.Context, p *LegacyPaper) error {
	if p.ID == "" {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, type FROM Files WHERE paperID = ?`, p.ID)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeMigrationSource, "failed to read Files for %s", p.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var path, fileType sql.NullString
		if err := rows.Scan(&path, &fileType); err != nil {
			return apperrors.Wrap(err, apperrors.CodeMigrationSource, "failed to scan Files row")
		}
		switch fileType.String {
		case "paper":
			p.PaperFile = path.String
		case "attachment":
			if path.String != "" && !contains(p.Attachments, path.String) {
				p.Attachments = append(p.Attachments, path.String)
			}
		}
	}
	return rows.Err()
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
