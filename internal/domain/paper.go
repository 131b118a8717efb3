// Package domain defines the core records of the paper library: persisted
// papers, their mutable drafts, and reference-counted categorizers.
package domain

import "time"

// PubType enumerates publication venues.
type PubType int

// Publication types. The integer values are persisted and must not change.
const (
	PubTypeJournal PubType = iota
	PubTypeConference
	PubTypeOthers
)

var pubTypeNames = [...]string{"journal", "conference", "others"}

// String returns the lowercase venue name.
func (t PubType) String() string {
	if t < 0 || int(t) >= len(pubTypeNames) {
		return "others"
	}
	return pubTypeNames[t]
}

// ParsePubType maps a venue name to its PubType. Unknown names map to
// PubTypeOthers, which is also how legacy rows with free-form venue names
// are absorbed.
func ParsePubType(name string) PubType {
	for i, n := range pubTypeNames {
		if n == name {
			return PubType(i)
		}
	}
	return PubTypeOthers
}

// Paper is the persisted record of one paper. Attachment paths (MainURL,
// SupURLs) are stored relative to the library root so the root stays
// relocatable. Categorizers are referenced by id, never by name.
type Paper struct {
	ID          string    `json:"id"`
	AddTime     time.Time `json:"add_time"`
	Title       string    `json:"title"`
	Authors     string    `json:"authors"`
	Publication string    `json:"publication"`
	PubTime     string    `json:"pub_time"`
	PubType     PubType   `json:"pub_type"`
	DOI         string    `json:"doi"`
	Arxiv       string    `json:"arxiv"`
	MainURL     string    `json:"main_url"`
	SupURLs     []string  `json:"sup_urls"`
	Rating      int       `json:"rating"`
	Flag        bool      `json:"flag"`
	Note        string    `json:"note"`
	TagIDs      []string  `json:"tag_ids"`
	FolderIDs   []string  `json:"folder_ids"`
	FeedIDs     []string  `json:"feed_ids,omitempty"`
}
