package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/id"
)

// Downloader fetches remote PDFs into the downloads directory. Fetches are
// rate limited so scraping a feed does not hammer the upstream host.
type Downloader struct {
	client  *http.Client
	dir     string
	limiter *rate.Limiter
}

// NewDownloader creates a downloader writing into dir at most ratePerSec
// fetches per second.
func NewDownloader(dir string, ratePerSec float64) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create downloads dir: %w", err)
	}
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Downloader{
		client:  &http.Client{Timeout: 2 * time.Minute},
		dir:     dir,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}, nil
}

// Fetch downloads rawURL and returns the absolute path of the stored file.
// The file name keeps the URL's basename when it has one, made unique with a
// generated suffix.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeValidation, "invalid download url %s", rawURL)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeFileOperation, "download failed: %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.Wrapf(nil, apperrors.CodeFileOperation, "download failed: %s returned %d", rawURL, resp.StatusCode)
	}

	target := filepath.Join(d.dir, d.fileName(rawURL))
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //#nosec G304
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to create %s", target)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(target)
		return "", apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to write %s", target)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return "", apperrors.Wrapf(err, apperrors.CodeFileOperation, "failed to close %s", target)
	}
	return target, nil
}

func (d *Downloader) fileName(rawURL string) string {
	suffix := id.MustNew("dl")
	u, err := url.Parse(rawURL)
	if err != nil {
		return suffix + ".pdf"
	}
	base := path.Base(u.Path)
	ext := path.Ext(base)
	if ext == "" {
		ext = ".pdf"
	}
	stem := base[:len(base)-len(path.Ext(base))]
	if stem == "" || stem == "." || stem == "/" {
		return suffix + ext
	}
	return stem + "_" + suffix + ext
}
