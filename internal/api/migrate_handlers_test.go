package api

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	"github.com/paperbaseapp/paperbase-server/internal/migrate"
)

// writeLegacyLibrary creates a minimal legacy database with one importable
// paper and its file on disk, returning the database path.
func writeLegacyLibrary(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "library.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE PaperMetas (
			id TEXT, addTime TEXT, title TEXT, authors TEXT, pub TEXT,
			pubType TEXT, pubTime TEXT, citeKey TEXT, note TEXT,
			rating INTEGER, doi TEXT, arxiv TEXT, flag INTEGER, tags TEXT
		);
		CREATE TABLE Files (paperID TEXT, path TEXT, type TEXT);
		INSERT INTO PaperMetas VALUES
			('legacy-1', '2019-05-27 10:00:00', 'Deep Learning',
			 'Y LeCun and Y Bengio', 'Nature', 'journal', '2015', '',
			 '', 3, '', '', 0, 'ml');
		INSERT INTO Files VALUES ('legacy-1', 'deep.pdf', 'paper');
	`)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "deep.pdf"), []byte("pdf"), 0o644))
	return dbPath
}

func TestMigrate(t *testing.T) {
	ts := setupTestServer(t)
	dbPath := writeLegacyLibrary(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/migrate", map[string]any{
		"db_path": dbPath,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decodeData[*migrate.Report](t, rec)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 0, report.Skipped)

	rec = ts.do(t, http.MethodGet, "/api/v1/papers", nil)
	papers := decodeData[[]*domain.Paper](t, rec)
	require.Len(t, papers, 1)
	assert.Equal(t, "Y LeCun, Y Bengio", papers[0].Authors)

	// Re-posting the same database is a no-op.
	rec = ts.do(t, http.MethodPost, "/api/v1/migrate", map[string]any{
		"db_path": dbPath,
	})
	report = decodeData[*migrate.Report](t, rec)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 1, report.AlreadyImported)
}

func TestMigrateMissingDatabase(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/migrate", map[string]any{
		"db_path": filepath.Join(t.TempDir(), "nope.db"),
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "MIGRATION_SOURCE", decodeError(t, rec))
}

func TestMigrateMissingPath(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/migrate", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
