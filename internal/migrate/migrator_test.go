package migrate

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/domain"
	"github.com/paperbaseapp/paperbase-server/internal/filestore"
	"github.com/paperbaseapp/paperbase-server/internal/service"
	"github.com/paperbaseapp/paperbase-server/internal/store"
)

// legacyRow mirrors one PaperMetas insert in tests.
type legacyRow struct {
	id, addTime, title, authors, pub, pubType, pubTime string
	rating, flag                                       int
	tags                                               string
	paperFile                                          string
	attachments                                        []string
}

func writeLegacyDB(t *testing.T, dir string, rows []legacyRow) string {
	t.Helper()

	path := filepath.Join(dir, "library.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE PaperMetas (
			id TEXT, addTime TEXT, title TEXT, authors TEXT, pub TEXT,
			pubType TEXT, pubTime TEXT, citeKey TEXT, note TEXT,
			rating INTEGER, doi TEXT, arxiv TEXT, flag INTEGER, tags TEXT
		);
		CREATE TABLE Files (paperID TEXT, path TEXT, type TEXT);`)
	require.NoError(t, err)

	for _, r := range rows {
		_, err = db.Exec(`INSERT INTO PaperMetas
			(id, addTime, title, authors, pub, pubType, pubTime, citeKey, note, rating, doi, arxiv, flag, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, '', '', ?, '', '', ?, ?)`,
			r.id, r.addTime, r.title, r.authors, r.pub, r.pubType, r.pubTime, r.rating, r.flag, r.tags)
		require.NoError(t, err)

		if r.paperFile != "" {
			_, err = db.Exec(`INSERT INTO Files (paperID, path, type) VALUES (?, ?, 'paper')`, r.id, r.paperFile)
			require.NoError(t, err)
		}
		for _, att := range r.attachments {
			_, err = db.Exec(`INSERT INTO Files (paperID, path, type) VALUES (?, ?, 'attachment')`, r.id, att)
			require.NoError(t, err)
		}
	}
	return path
}

func setupMigration(t *testing.T, rows []legacyRow, legacyFiles []string) (*Migrator, *store.Store, string) {
	t.Helper()

	legacyDir := t.TempDir()
	for _, name := range legacyFiles {
		require.NoError(t, os.WriteFile(filepath.Join(legacyDir, name), []byte("pdf"), 0o644))
	}
	dbPath := writeLegacyDB(t, legacyDir, rows)

	s, err := store.New(filepath.Join(t.TempDir(), "new.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	root := t.TempDir()
	fs, err := filestore.New(config.LibraryConfig{
		Root:               root,
		DeleteSourceOnMove: false,
		FileWorkers:        2,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	svc := service.NewPaperService(s, fs, slog.New(slog.DiscardHandler))

	src, err := OpenSource(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	return New(src, svc, s, slog.New(slog.DiscardHandler)), s, root
}

func TestMigrationImportsRows(t *testing.T) {
	rows := []legacyRow{
		{
			id:          "legacy-1",
			addTime:     "2019-05-01 10:30:00",
			title:       "Deep Learning",
			authors:     "Y LeCun and Y Bengio and G Hinton",
			pub:         "Nature",
			pubType:     "journal",
			pubTime:     "2015",
			rating:      4,
			flag:        1,
			tags:        "ml;classic",
			paperFile:   "deep.pdf",
			attachments: []string{"appendix.pdf", "slides.pptx"},
		},
		{
			id:      "legacy-2",
			addTime: "2020-01-15 09:00:00",
			title:   "No File Paper",
			authors: "Solo Author",
			pubType: "conference",
		},
	}

	m, s, root := setupMigration(t, rows, []string{"deep.pdf", "appendix.pdf", "slides.pptx"})
	ctx := context.Background()

	report, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, []string{"No File Paper"}, report.MissingFile)

	papers, err := s.ListPapers(ctx)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	var deep *domain.Paper
	for _, p := range papers {
		if p.Title == "Deep Learning" {
			deep = p
		}
	}
	require.NotNil(t, deep)

	assert.Equal(t, "Y LeCun, Y Bengio, G Hinton", deep.Authors)
	assert.Equal(t, domain.PubTypeJournal, deep.PubType)
	assert.Equal(t, "2015", deep.PubTime)
	assert.Equal(t, 4, deep.Rating)
	assert.True(t, deep.Flag)
	assert.Equal(t, 2019, deep.AddTime.Year())
	assert.Len(t, deep.TagIDs, 2)

	// Main file moved under its canonical name; only .pdf attachments came
	// along.
	assert.Contains(t, deep.MainURL, "_main.pdf")
	require.Len(t, deep.SupURLs, 1)
	assert.Contains(t, deep.SupURLs[0], "_sup0.pdf")
	_, err = os.Stat(filepath.Join(root, deep.MainURL))
	assert.NoError(t, err)
}

func TestMigrationIdempotent(t *testing.T) {
	rows := []legacyRow{
		{id: "legacy-1", title: "Once Only", authors: "A Author", pubType: "journal", paperFile: "p.pdf"},
	}
	m, s, _ := setupMigration(t, rows, []string{"p.pdf"})
	ctx := context.Background()

	report, err := m.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)

	report, err = m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.AlreadyImported)

	papers, err := s.ListPapers(ctx)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
}

func TestMigrationSkipsDuplicates(t *testing.T) {
	rows := []legacyRow{
		{id: "legacy-1", title: "Same Paper", authors: "A Author", paperFile: "a.pdf"},
		{id: "legacy-2", title: "Same Paper", authors: "A Author", paperFile: "b.pdf"},
	}
	m, _, _ := setupMigration(t, rows, []string{"a.pdf", "b.pdf"})
	ctx := context.Background()

	report, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Skipped)

	// The skipped duplicate is marked too and not re-examined.
	report, err = m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 2, report.AlreadyImported)
}

func TestMigrationUnknownPubType(t *testing.T) {
	rows := []legacyRow{
		{id: "legacy-1", title: "Weird Venue", authors: "A Author", pubType: "inproceedings"},
	}
	m, s, _ := setupMigration(t, rows, nil)

	_, err := m.Run(context.Background())
	require.NoError(t, err)

	papers, err := s.ListPapers(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, domain.PubTypeOthers, papers[0].PubType)
}

func TestOpenSourceMissing(t *testing.T) {
	_, err := OpenSource(filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
}

func TestLegacyPaperComplete(t *testing.T) {
	p := &LegacyPaper{
		Title:   "Deep Learning",
		Authors: "Yann LeCun and Yoshua Bengio",
		PubTime: "2015",
		Pub:     "Nature",
		PubType: "journal",
	}
	p.Complete()

	assert.True(t, p.GeneratedID)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Yann_LeCun_2015", p.CiteKey)
	assert.Contains(t, p.Bib, "@article{Yann_LeCun_2015")
	assert.Contains(t, p.Bib, "journal = {Nature}")

	// Conference-like venues synthesize @inproceedings.
	conf := &LegacyPaper{Title: "Attention", PubTime: "2017", Pub: "NeurIPS", PubType: "conference"}
	conf.Complete()
	assert.Equal(t, "Attention_2017", conf.CiteKey)
	assert.Contains(t, conf.Bib, "@inproceedings{")
	assert.Contains(t, conf.Bib, "booktitle = {NeurIPS}")

	// An existing id, cite key, and bib are kept.
	keep := &LegacyPaper{ID: "legacy-9", CiteKey: "custom_key", Bib: "@misc{custom_key,\n}", Title: "X"}
	keep.Complete()
	assert.False(t, keep.GeneratedID)
	assert.Equal(t, "legacy-9", keep.ID)
	assert.Equal(t, "custom_key", keep.CiteKey)
	assert.Equal(t, "@misc{custom_key,\n}", keep.Bib)
}
