package ingest

import (
	"context"
	"encoding/json/v2"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
)

// Scraper completes a draft's metadata from an external source. A scraper
// only fills fields it can improve; it never clears what is already set.
type Scraper interface {
	// CanScrape reports whether the draft carries enough identity for this
	// source.
	CanScrape(d *domain.Draft) bool
	// Scrape fills the draft in place.
	Scrape(ctx context.Context, d *domain.Draft) error
}

// Pipeline runs scrapers in order, continuing past individual failures: a
// dead metadata source should not block adding the paper.
type Pipeline struct {
	scrapers []Scraper
	logger   *slog.Logger
}

// NewPipeline creates a scraper pipeline.
func NewPipeline(logger *slog.Logger, scrapers ...Scraper) *Pipeline {
	return &Pipeline{scrapers: scrapers, logger: logger}
}

// Scrape applies every applicable scraper to the draft.
func (p *Pipeline) Scrape(ctx context.Context, d *domain.Draft) {
	for _, s := range p.scrapers {
		if !s.CanScrape(d) {
			continue
		}
		if err := s.Scrape(ctx, d); err != nil {
			p.logger.Warn("scraper failed", "paper_id", d.ID, "error", err)
		}
	}
}

// ArxivScraper fills metadata from the arXiv export API.
type ArxivScraper struct {
	client  *http.Client
	baseURL string
}

// NewArxivScraper creates an arXiv scraper.
func NewArxivScraper() *ArxivScraper {
	return &ArxivScraper{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://export.arxiv.org/api/query",
	}
}

// CanScrape reports whether the draft has an arXiv id.
func (s *ArxivScraper) CanScrape(d *domain.Draft) bool { return d.Arxiv != "" }

// arxivFeed is the slice of the Atom response the scraper reads.
type arxivFeed struct {
	Entries []struct {
		Title     string `xml:"title"`
		Published string `xml:"published"`
		Authors   []struct {
			Name string `xml:"name"`
		} `xml:"author"`
	} `xml:"entry"`
}

// Scrape implements Scraper.
func (s *ArxivScraper) Scrape(ctx context.Context, d *domain.Draft) error {
	q := url.Values{"id_list": {strings.TrimPrefix(d.Arxiv, "arXiv:")}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("arxiv query returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return fmt.Errorf("failed to parse arxiv response: %w", err)
	}
	if len(feed.Entries) == 0 {
		return fmt.Errorf("arxiv id %s not found", d.Arxiv)
	}
	entry := feed.Entries[0]

	_ = d.SetField("title", entry.Title, false)
	names := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	_ = d.SetField("authors", strings.Join(names, ", "), false)
	if len(entry.Published) >= 4 {
		_ = d.SetField("pubTime", entry.Published[:4], false)
	}
	_ = d.SetField("publication", "arXiv", false)
	return nil
}

// DOIScraper fills metadata from doi.org using citation content negotiation.
type DOIScraper struct {
	client  *http.Client
	baseURL string
}

// NewDOIScraper creates a DOI scraper.
func NewDOIScraper() *DOIScraper {
	return &DOIScraper{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://doi.org/",
	}
}

// CanScrape reports whether the draft has a DOI.
func (s *DOIScraper) CanScrape(d *domain.Draft) bool { return d.DOI != "" }

// doiWork is the slice of the CSL JSON response the scraper reads.
type doiWork struct {
	Title          string `json:"title"`
	ContainerTitle string `json:"container-title"`
	Type           string `json:"type"`
	Authors        []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	Issued struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"issued"`
}

// Scrape implements Scraper.
func (s *DOIScraper) Scrape(ctx context.Context, d *domain.Draft) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+url.PathEscape(d.DOI), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.citationstyles.csl+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("doi lookup returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var work doiWork
	if err := json.Unmarshal(body, &work); err != nil {
		return fmt.Errorf("failed to parse doi response: %w", err)
	}

	_ = d.SetField("title", work.Title, false)
	names := make([]string, 0, len(work.Authors))
	for _, a := range work.Authors {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			names = append(names, name)
		}
	}
	_ = d.SetField("authors", strings.Join(names, ", "), false)
	_ = d.SetField("publication", work.ContainerTitle, false)
	if len(work.Issued.DateParts) > 0 && len(work.Issued.DateParts[0]) > 0 {
		_ = d.SetField("pubTime", fmt.Sprintf("%d", work.Issued.DateParts[0][0]), false)
	}
	switch work.Type {
	case "proceedings-article", "paper-conference":
		_ = d.SetField("pubType", domain.PubTypeConference, false)
	case "journal-article":
		_ = d.SetField("pubType", domain.PubTypeJournal, false)
	}
	return nil
}
