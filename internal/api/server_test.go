package api

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbaseapp/paperbase-server/internal/config"
	"github.com/paperbaseapp/paperbase-server/internal/domain"
	"github.com/paperbaseapp/paperbase-server/internal/filestore"
	"github.com/paperbaseapp/paperbase-server/internal/ingest"
	"github.com/paperbaseapp/paperbase-server/internal/search"
	"github.com/paperbaseapp/paperbase-server/internal/service"
	"github.com/paperbaseapp/paperbase-server/internal/store"
)

// testServer bundles the server with the directories the tests write into.
type testServer struct {
	server *Server
	store  *store.Store
	root   string
}

// setupTestServer wires a server against a real store, file store, and
// search index in temp directories.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	s, err := store.New(filepath.Join(root, "db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	idx, err := search.NewIndex(filepath.Join(root, "index"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	indexer := search.NewIndexer(idx, s)
	s.SetSearchIndexer(indexer)

	cfg := &config.Config{
		Library: config.LibraryConfig{
			Root:               root,
			DeleteSourceOnMove: true,
			StripString:        domain.DefaultStripString,
		},
	}

	files, err := filestore.New(cfg.Library, logger)
	require.NoError(t, err)

	downloader, err := ingest.NewDownloader(filepath.Join(root, "downloads"), 100)
	require.NoError(t, err)
	pipeline := ingest.NewPipeline(logger)

	papers := service.NewPaperService(s, files, logger)
	return &testServer{
		server: NewServer(s, papers, idx, indexer, downloader, pipeline, cfg, logger),
		store:  s,
		root:   root,
	}
}

// do runs one request through the router and returns the recorder.
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the data field of a success envelope into T.
func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var env struct {
		Success bool           `json:"success"`
		Data    jsontext.Value `json:"data"`
		Error   string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success, "expected success envelope, got error: %s", env.Error)

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// decodeError returns the code field of an error envelope.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var env struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	return env.Code
}

// submitPaper posts a paper with a real source file and returns the
// committed draft.
func submitPaper(t *testing.T, ts *testServer, title string, extra map[string]any) *domain.Draft {
	t.Helper()

	source := filepath.Join(t.TempDir(), "src.pdf")
	require.NoError(t, os.WriteFile(source, []byte("pdf"), 0o644))

	fields := map[string]any{
		"title":   title,
		"authors": "A Author; B Author",
		"mainURL": source,
	}
	for k, v := range extra {
		fields[k] = v
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/papers", fields)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeData[addPaperResponse](t, rec)
	require.True(t, resp.Added)
	require.NotNil(t, resp.Paper)
	return resp.Paper
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	data := decodeData[map[string]string](t, rec)
	assert.Equal(t, "healthy", data["status"])
}
