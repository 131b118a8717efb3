// Package normalize provides string normalization for bibliographic fields,
// categorizer names, and attachment file stems.
package normalize

import "strings"

// Options controls the normalization applied by Format.
type Options struct {
	RemoveNewlines bool
	TrimSpace      bool
	RemoveSpace    bool
	RemoveSymbols  bool
	RemoveStr      string
	Lowercase      bool
}

// Format applies the requested normalization steps in a fixed order:
// newline removal, trimming, whitespace removal, symbol removal, substring
// removal, lowercasing. An empty input always yields "".
func Format(s string, opts Options) string {
	if s == "" {
		return ""
	}
	if opts.RemoveNewlines {
		s = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
	}
	if opts.TrimSpace {
		s = strings.TrimSpace(s)
	}
	if opts.RemoveSpace {
		s = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				return -1
			}
			return r
		}, s)
	}
	if opts.RemoveSymbols {
		s = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, s)
	}
	if opts.RemoveStr != "" {
		s = strings.ReplaceAll(s, opts.RemoveStr, "")
	}
	if opts.Lowercase {
		s = strings.ToLower(s)
	}
	return s
}

// BiblioField normalizes a title or authors value: newlines are removed, the
// configured strip string (typically ".") is removed, and the result is
// trimmed.
func BiblioField(s, strip string) string {
	return Format(s, Options{RemoveNewlines: true, TrimSpace: true, RemoveStr: strip})
}

// CategorizerName normalizes a single tag/folder/feed name. Names keep their
// internal spacing; only surrounding whitespace and newlines are dropped.
func CategorizerName(s string) string {
	return Format(s, Options{RemoveNewlines: true, TrimSpace: true})
}

// SplitNames splits a ";"-delimited categorizer list into normalized names,
// discarding entries that normalize to empty.
func SplitNames(raw string) []string {
	parts := strings.Split(raw, ";")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := CategorizerName(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// DuplicateKey derives the uniqueness key for the (title, authors) duplicate
// guard. Case and surrounding whitespace do not distinguish papers.
func DuplicateKey(title, authors string) string {
	t := Format(title, Options{RemoveNewlines: true, TrimSpace: true, Lowercase: true})
	a := Format(authors, Options{RemoveNewlines: true, TrimSpace: true, Lowercase: true})
	return t + "|" + a
}

// FileStem computes the canonical attachment stem for a paper: the title
// reduced to letters and spaces, spaces replaced by underscores, suffixed
// with the paper id. "Deep Learning" + "x1" yields "Deep_Learning_x1".
func FileStem(title, id string) string {
	kept := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == ' ' {
			return r
		}
		return -1
	}, title)
	return strings.ReplaceAll(kept, " ", "_") + "_" + id
}
