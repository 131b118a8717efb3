package domain

import "time"

// Kind identifies the flavor of a categorizer.
type Kind string

// Categorizer kinds.
const (
	KindTag    Kind = "tag"
	KindFolder Kind = "folder"
	KindFeed   Kind = "feed"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTag, KindFolder, KindFeed:
		return true
	}
	return false
}

// Key is the typed natural key of a categorizer. The normalized name is the
// identity within a kind; two kinds may share a name without colliding.
type Key struct {
	Kind Kind
	Name string
}

// Categorizer is a named, reference-counted grouping record: a tag, a
// folder, or a feed subscription. Count tracks how many live papers
// reference it; tags and folders are deleted in the same transaction that
// takes their count to zero.
type Categorizer struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	URL       string    `json:"url,omitempty"` // feed subscriptions only
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the typed natural key for this categorizer.
func (c *Categorizer) Key() Key {
	return Key{Kind: c.Kind, Name: c.Name}
}

// Touch updates the UpdatedAt timestamp.
func (c *Categorizer) Touch() {
	c.UpdatedAt = time.Now()
}
