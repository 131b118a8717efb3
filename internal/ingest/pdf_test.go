package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
)

func TestExtractDOI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "doi: 10.1038/nature14539", "10.1038/nature14539"},
		{"in sentence", "see https://doi.org/10.1109/CVPR.2016.90 for details", "10.1109/CVPR.2016.90"},
		{"trailing period", "10.1038/nature14539.", "10.1038/nature14539"},
		{"none", "no identifier here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDOI(tt.in))
		})
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"modern", "arXiv:1706.03762", "1706.03762"},
		{"versioned", "arXiv:1706.03762v5", "1706.03762v5"},
		{"spaced", "arXiv: 2103.00020", "2103.00020"},
		{"old style", "arXiv:cs.CL/0108005", "cs.CL/0108005"},
		{"case insensitive", "ARXIV:1706.03762", "1706.03762"},
		{"none", "plain text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractArxivID(tt.in))
		})
	}
}

func writePDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRawReader(t *testing.T) {
	path := writePDF(t, `%PDF-1.4
/Title (Attention Is All You Need)
/Author (Ashish Vaswani)
body text arXiv:1706.03762 and doi 10.48550/arXiv.1706.03762`)

	meta, err := RawReader{}.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", meta.Title)
	assert.Equal(t, "Ashish Vaswani", meta.Authors)
	assert.Equal(t, "1706.03762", meta.ArxivID)
	assert.Equal(t, "10.48550/arXiv.1706.03762", meta.DOI)
}

func TestDraftFromPDF(t *testing.T) {
	path := writePDF(t, `/Title (Junk Title) text 10.1038/nature14539`)
	ctx := context.Background()

	d, err := DraftFromPDF(ctx, RawReader{}, path, false)
	require.NoError(t, err)
	assert.Equal(t, path, d.MainURL)
	assert.Equal(t, "10.1038/nature14539", d.DOI)
	assert.Empty(t, d.Title, "metadata prefill disabled")

	d, err = DraftFromPDF(ctx, RawReader{}, path, true)
	require.NoError(t, err)
	assert.Equal(t, "Junk Title", d.Title)
}

func TestArxivScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1706.03762", r.URL.Query().Get("id_list"))
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Attention Is All You Need</title>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
</feed>`))
	}))
	defer srv.Close()

	s := NewArxivScraper()
	s.baseURL = srv.URL

	d := domain.NewDraft()
	require.NoError(t, d.SetField("arxiv", "1706.03762", false))
	require.True(t, s.CanScrape(d))

	require.NoError(t, s.Scrape(context.Background(), d))
	assert.Equal(t, "Attention Is All You Need", d.Title)
	assert.Equal(t, "Ashish Vaswani, Noam Shazeer", d.Authors)
	assert.Equal(t, "2017", d.PubTime)
	assert.Equal(t, "arXiv", d.Publication)
}

func TestDOIScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.citationstyles.csl+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{
			"title": "Deep Residual Learning for Image Recognition",
			"container-title": "CVPR",
			"type": "proceedings-article",
			"author": [{"given": "Kaiming", "family": "He"}],
			"issued": {"date-parts": [[2016, 6]]}
		}`))
	}))
	defer srv.Close()

	s := NewDOIScraper()
	s.baseURL = srv.URL + "/"

	d := domain.NewDraft()
	require.NoError(t, d.SetField("doi", "10.1109/CVPR.2016.90", false))
	require.True(t, s.CanScrape(d))

	require.NoError(t, s.Scrape(context.Background(), d))
	assert.Equal(t, "Deep Residual Learning for Image Recognition", d.Title)
	assert.Equal(t, "Kaiming He", d.Authors)
	assert.Equal(t, "CVPR", d.Publication)
	assert.Equal(t, "2016", d.PubTime)
	assert.Equal(t, domain.PubTypeConference, d.PubType)
}

func TestDownloader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pdf bytes"))
	}))
	defer srv.Close()

	dl, err := NewDownloader(t.TempDir(), 100)
	require.NoError(t, err)

	path, err := dl.Fetch(context.Background(), srv.URL+"/papers/attention.pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
	assert.Contains(t, filepath.Base(path), "attention_")
	assert.Equal(t, ".pdf", filepath.Ext(path))
}

func TestDownloaderBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dl, err := NewDownloader(t.TempDir(), 100)
	require.NoError(t, err)

	_, err = dl.Fetch(context.Background(), srv.URL+"/gone.pdf")
	assert.Error(t, err)
}
