package search

import (
	"strconv"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
)

// PaperDocument is the indexed form of a paper.
type PaperDocument struct {
	ID          string
	Title       string
	Authors     string
	Publication string
	Note        string
	DOI         string
	Arxiv       string
	Tags        []string
	Folders     []string
	Year        int
	AddedAt     int64
}

// DocumentFromPaper flattens a paper and its resolved categorizer names into
// an indexable document. PubTime values that are not plain years index as
// year zero.
func DocumentFromPaper(p *domain.Paper, tags, folders []string) *PaperDocument {
	year, _ := strconv.Atoi(p.PubTime)
	return &PaperDocument{
		ID:          p.ID,
		Title:       p.Title,
		Authors:     p.Authors,
		Publication: p.Publication,
		Note:        p.Note,
		DOI:         p.DOI,
		Arxiv:       p.Arxiv,
		Tags:        tags,
		Folders:     folders,
		Year:        year,
		AddedAt:     p.AddTime.Unix(),
	}
}

// ToMap converts the document to a map so field names match the index
// mapping.
func (d *PaperDocument) ToMap() map[string]any {
	return map[string]any{
		"title":       d.Title,
		"authors":     d.Authors,
		"publication": d.Publication,
		"note":        d.Note,
		"doi":         d.DOI,
		"arxiv":       d.Arxiv,
		"tags":        d.Tags,
		"folders":     d.Folders,
		"year":        d.Year,
		"added_at":    d.AddedAt,
	}
}
