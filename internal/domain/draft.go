package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
	"github.com/paperbaseapp/paperbase-server/internal/id"
	"github.com/paperbaseapp/paperbase-server/internal/normalize"
)

// DefaultStripString is removed from title/authors values during
// normalization unless the draft is configured otherwise.
const DefaultStripString = "."

// Draft is the mutable staging form of a paper before it is committed.
// It is owned exclusively by whichever component currently holds it: the API
// layer, a scraper, or a service during a mutation. Categorizers are carried
// as normalized name lists; the store turns them into record references at
// commit time.
type Draft struct {
	ID          string    `json:"id"`
	AddTime     time.Time `json:"add_time"`
	Title       string    `json:"title"`
	Authors     string    `json:"authors"`
	Publication string    `json:"publication"`
	PubTime     string    `json:"pub_time"`
	PubType     PubType   `json:"pub_type" validate:"gte=0,lte=2"`
	DOI         string    `json:"doi"`
	Arxiv       string    `json:"arxiv"`
	MainURL     string    `json:"main_url"`
	SupURLs     []string  `json:"sup_urls"`
	Rating      int       `json:"rating" validate:"gte=0,lte=5"`
	Flag        bool      `json:"flag"`
	Note        string    `json:"note"`
	Tags        []string  `json:"tags"`
	Folders     []string  `json:"folders"`
	Feeds       []string  `json:"feeds,omitempty"`

	strip string
}

var validate = validator.New()

// NewDraft creates an empty draft with a fresh id and the current time.
func NewDraft() *Draft {
	return &Draft{
		ID:      id.MustNew("paper"),
		AddTime: time.Now(),
		PubType: PubTypeOthers,
		strip:   DefaultStripString,
	}
}

// FromPaper builds a draft from a persisted paper plus the resolved names of
// its categorizers.
func FromPaper(p *Paper, tags, folders, feeds []string) *Draft {
	d := &Draft{
		ID:          p.ID,
		AddTime:     p.AddTime,
		Title:       p.Title,
		Authors:     p.Authors,
		Publication: p.Publication,
		PubTime:     p.PubTime,
		PubType:     p.PubType,
		DOI:         p.DOI,
		Arxiv:       p.Arxiv,
		MainURL:     p.MainURL,
		SupURLs:     append([]string(nil), p.SupURLs...),
		Rating:      p.Rating,
		Flag:        p.Flag,
		Note:        p.Note,
		Tags:        tags,
		Folders:     folders,
		Feeds:       feeds,
		strip:       DefaultStripString,
	}
	return d
}

// ToPaper converts the draft to a persistable record. Categorizer id lists
// are left empty; the store fills them when it resolves the name lists.
func (d *Draft) ToPaper() *Paper {
	return &Paper{
		ID:          d.ID,
		AddTime:     d.AddTime,
		Title:       d.Title,
		Authors:     d.Authors,
		Publication: d.Publication,
		PubTime:     d.PubTime,
		PubType:     d.PubType,
		DOI:         d.DOI,
		Arxiv:       d.Arxiv,
		MainURL:     d.MainURL,
		SupURLs:     append([]string(nil), d.SupURLs...),
		Rating:      d.Rating,
		Flag:        d.Flag,
		Note:        d.Note,
	}
}

// SetStrip overrides the strip string applied to title/authors values.
func (d *Draft) SetStrip(s string) { d.strip = s }

// Validate checks field bounds (rating, publication type).
func (d *Draft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return apperrors.Wrap(err, apperrors.CodeValidation, "draft validation failed")
	}
	return nil
}

// AddSupURL appends a supplementary file path, keeping the list unique while
// preserving order.
func (d *Draft) AddSupURL(path string) {
	for _, existing := range d.SupURLs {
		if existing == path {
			return
		}
	}
	d.SupURLs = append(d.SupURLs, path)
}

// SetField sets a draft field by name. String values are normalized (trim,
// newline removal; title/authors additionally lose the strip string); a
// value that normalizes to empty is discarded unless allowEmpty is set, in
// which case the empty value is committed. Unknown keys return a checked
// error rather than being silently ignored.
func (d *Draft) SetField(key string, value any, allowEmpty bool) error {
	setter, ok := draftSetters[key]
	if !ok {
		return apperrors.UnknownField(key)
	}
	return setter(d, value, allowEmpty)
}

// stringField commits a normalized string value into dst under the
// empty-value rule.
func stringField(dst *string, raw, strip string, allowEmpty bool) {
	v := normalize.BiblioField(raw, strip)
	if v != "" || allowEmpty {
		*dst = v
	}
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", apperrors.Validationf("expected string value, got %T", v)
	}
	return s, nil
}

func asStringList(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case string:
		return normalize.SplitNames(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, apperrors.Validationf("expected string list element, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, apperrors.Validationf("expected string list, got %T", v)
	}
}

// draftSetters is the closed field set of a draft. The id is assigned once
// at construction and is not settable.
var draftSetters = map[string]func(d *Draft, v any, allowEmpty bool) error{
	"title": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		stringField(&d.Title, s, d.strip, allowEmpty)
		return nil
	},
	"authors": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		stringField(&d.Authors, s, d.strip, allowEmpty)
		return nil
	},
	"publication": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		stringField(&d.Publication, s, "", allowEmpty)
		return nil
	},
	"pubTime": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		stringField(&d.PubTime, s, "", allowEmpty)
		return nil
	},
	"pubType": func(d *Draft, v any, _ bool) error {
		switch t := v.(type) {
		case PubType:
			d.PubType = t
		case int:
			d.PubType = PubType(t)
		case float64: // JSON numbers decode as float64
			d.PubType = PubType(int(t))
		case string:
			d.PubType = ParsePubType(t)
		default:
			return apperrors.Validationf("expected publication type, got %T", v)
		}
		if d.PubType < PubTypeJournal || d.PubType > PubTypeOthers {
			d.PubType = PubTypeOthers
		}
		return nil
	},
	"doi": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		stringField(&d.DOI, s, "", allowEmpty)
		return nil
	},
	"arxiv": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		stringField(&d.Arxiv, s, "", allowEmpty)
		return nil
	},
	"mainURL": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		if s != "" || allowEmpty {
			d.MainURL = s
		}
		return nil
	},
	"supURLs": func(d *Draft, v any, allowEmpty bool) error {
		list, err := asStringList(v)
		if err != nil {
			return err
		}
		if len(list) == 0 && !allowEmpty {
			return nil
		}
		d.SupURLs = nil
		for _, p := range list {
			d.AddSupURL(p)
		}
		return nil
	},
	"rating": func(d *Draft, v any, _ bool) error {
		switch t := v.(type) {
		case int:
			d.Rating = t
		case float64:
			d.Rating = int(t)
		default:
			return apperrors.Validationf("expected integer rating, got %T", v)
		}
		return nil
	},
	"flag": func(d *Draft, v any, _ bool) error {
		b, ok := v.(bool)
		if !ok {
			return apperrors.Validationf("expected bool flag, got %T", v)
		}
		d.Flag = b
		return nil
	},
	"note": func(d *Draft, v any, allowEmpty bool) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		stringField(&d.Note, s, "", allowEmpty)
		return nil
	},
	"tags": func(d *Draft, v any, allowEmpty bool) error {
		list, err := asStringList(v)
		if err != nil {
			return err
		}
		if len(list) == 0 && !allowEmpty {
			return nil
		}
		d.Tags = normalizeNames(list)
		return nil
	},
	"folders": func(d *Draft, v any, allowEmpty bool) error {
		list, err := asStringList(v)
		if err != nil {
			return err
		}
		if len(list) == 0 && !allowEmpty {
			return nil
		}
		d.Folders = normalizeNames(list)
		return nil
	},
	"feeds": func(d *Draft, v any, allowEmpty bool) error {
		list, err := asStringList(v)
		if err != nil {
			return err
		}
		if len(list) == 0 && !allowEmpty {
			return nil
		}
		d.Feeds = normalizeNames(list)
		return nil
	},
}

// normalizeNames normalizes each categorizer name, dropping empties and
// duplicates while preserving first-seen order.
func normalizeNames(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name := normalize.CategorizerName(r)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Fields returns the settable field names, for diagnostics.
func Fields() []string {
	keys := make([]string, 0, len(draftSetters))
	for k := range draftSetters {
		keys = append(keys, k)
	}
	return keys
}

// String implements fmt.Stringer for log output.
func (d *Draft) String() string {
	return fmt.Sprintf("Draft(%s, %q)", d.ID, d.Title)
}
