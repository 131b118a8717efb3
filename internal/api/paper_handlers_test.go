package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
)

func TestCreatePaper(t *testing.T) {
	ts := setupTestServer(t)

	d := submitPaper(t, ts, "Deep Learning", map[string]any{
		"tags":    "ml; vision",
		"pubType": "conference",
		"rating":  4,
	})

	assert.Equal(t, "Deep Learning", d.Title)
	assert.Equal(t, domain.PubTypeConference, d.PubType)
	assert.Equal(t, 4, d.Rating)
	assert.ElementsMatch(t, []string{"ml", "vision"}, d.Tags)
	// The attachment was moved into the library under its canonical name.
	assert.FileExists(t, filepath.Join(ts.root, d.MainURL))
}

func TestCreatePaperUnknownField(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/papers", map[string]any{
		"title":  "Some Paper",
		"virtue": "patience",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_FIELD", decodeError(t, rec))
}

func TestCreatePaperDuplicateSkipped(t *testing.T) {
	ts := setupTestServer(t)
	submitPaper(t, ts, "Deep Learning", nil)

	source := filepath.Join(t.TempDir(), "again.pdf")
	require.NoError(t, os.WriteFile(source, []byte("pdf"), 0o644))

	rec := ts.do(t, http.MethodPost, "/api/v1/papers", map[string]any{
		"title":   "Deep Learning",
		"authors": "A Author; B Author",
		"mainURL": source,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeData[addPaperResponse](t, rec)
	assert.False(t, resp.Added)
	assert.Nil(t, resp.Paper)
	// The rejected submission's file stays where it was.
	assert.FileExists(t, source)
}

func TestCreatePaperFromURL(t *testing.T) {
	ts := setupTestServer(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`%PDF-1.4 body 10.1038/nature14539`))
	}))
	defer srv.Close()

	rec := ts.do(t, http.MethodPost, "/api/v1/papers/from-url", map[string]any{
		"url": srv.URL + "/papers/resnet.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeData[addPaperResponse](t, rec)
	require.True(t, resp.Added)
	assert.Equal(t, "10.1038/nature14539", resp.Paper.DOI)
	// No embedded title, so the download's file name stands in.
	assert.Contains(t, resp.Paper.Title, "resnet_")
	assert.FileExists(t, filepath.Join(ts.root, resp.Paper.MainURL))
}

func TestListPapers(t *testing.T) {
	ts := setupTestServer(t)
	for i := range 3 {
		submitPaper(t, ts, fmt.Sprintf("Paper %d", i), nil)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/papers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	papers := decodeData[[]*domain.Paper](t, rec)
	assert.Len(t, papers, 3)
}

func TestGetPaper(t *testing.T) {
	ts := setupTestServer(t)
	created := submitPaper(t, ts, "Deep Learning", map[string]any{"tags": "ml"})

	rec := ts.do(t, http.MethodGet, "/api/v1/papers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	d := decodeData[*domain.Draft](t, rec)
	assert.Equal(t, created.ID, d.ID)
	assert.Equal(t, []string{"ml"}, d.Tags)
}

func TestGetPaperNotFound(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/papers/paper-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec))
}

func TestUpdatePaper(t *testing.T) {
	ts := setupTestServer(t)
	created := submitPaper(t, ts, "Old Title", map[string]any{"tags": "ml; nlp"})

	rec := ts.do(t, http.MethodPut, "/api/v1/papers/"+created.ID, map[string]any{
		"title": "New Title",
		"tags":  "ml",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	d := decodeData[*domain.Draft](t, rec)
	assert.Equal(t, "New Title", d.Title)
	assert.Equal(t, []string{"ml"}, d.Tags)
	// Fields absent from the body survive the update.
	assert.Equal(t, created.Authors, d.Authors)
	// The attachment was renamed to match the new title.
	assert.Contains(t, d.MainURL, "New_Title")
	assert.FileExists(t, filepath.Join(ts.root, d.MainURL))
}

func TestUpdatePaperClearsWithEmptyValue(t *testing.T) {
	ts := setupTestServer(t)
	created := submitPaper(t, ts, "Deep Learning", map[string]any{"note": "read me"})
	require.Equal(t, "read me", created.Note)

	rec := ts.do(t, http.MethodPut, "/api/v1/papers/"+created.ID, map[string]any{
		"note": "",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	d := decodeData[*domain.Draft](t, rec)
	assert.Empty(t, d.Note)
}

func TestDeletePaper(t *testing.T) {
	ts := setupTestServer(t)
	created := submitPaper(t, ts, "Deep Learning", nil)
	mainPath := filepath.Join(ts.root, created.MainURL)

	rec := ts.do(t, http.MethodDelete, "/api/v1/papers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeData[removePaperResponse](t, rec)
	assert.True(t, resp.FilesRemoved)
	assert.NoFileExists(t, mainPath)

	rec = ts.do(t, http.MethodGet, "/api/v1/papers/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePaperReportsMissingFile(t *testing.T) {
	ts := setupTestServer(t)
	created := submitPaper(t, ts, "Deep Learning", nil)
	// The attachment vanished between add and delete.
	require.NoError(t, os.Remove(filepath.Join(ts.root, created.MainURL)))

	rec := ts.do(t, http.MethodDelete, "/api/v1/papers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeData[removePaperResponse](t, rec)
	assert.False(t, resp.FilesRemoved)

	// The record is gone regardless.
	rec = ts.do(t, http.MethodGet, "/api/v1/papers/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePapersBatch(t *testing.T) {
	ts := setupTestServer(t)
	a := submitPaper(t, ts, "Paper A", nil)
	b := submitPaper(t, ts, "Paper B", nil)
	// Paper B's attachment is already gone, so its slot reports false.
	require.NoError(t, os.Remove(filepath.Join(ts.root, b.MainURL)))

	rec := ts.do(t, http.MethodPost, "/api/v1/papers/batch-delete", map[string]any{
		"ids": []string{a.ID, b.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeData[removePapersResponse](t, rec)
	assert.Equal(t, []bool{true, false}, resp.FilesRemoved)

	rec = ts.do(t, http.MethodGet, "/api/v1/papers", nil)
	papers := decodeData[[]*domain.Paper](t, rec)
	assert.Empty(t, papers)
}
