package store

import "github.com/paperbaseapp/paperbase-server/internal/domain"

// Key layout. Every record and index lives under a typed prefix so prefix
// iteration never crosses record kinds.
const (
	paperPrefix = "paper:" // paper:{id} → Paper JSON

	// paperDupPrefix is the uniqueness index enforcing the (title, authors)
	// duplicate guard: paper:idx:titleauthors:{dupKey} → paperID. It is
	// written in the same transaction as the paper record, so the guard
	// holds under concurrent adds.
	paperDupPrefix = "paper:idx:titleauthors:"

	// legacyPrefix marks imported legacy rows: legacy:{legacyID} → paperID.
	// Re-running a migration skips marked rows.
	legacyPrefix = "legacy:"
)

// catKey returns the record key for a categorizer: cat:{kind}:{id}.
func catKey(kind domain.Kind, id string) []byte {
	return []byte("cat:" + string(kind) + ":" + id)
}

// catPrefixFor returns the iteration prefix for one categorizer kind.
func catPrefixFor(kind domain.Kind) []byte {
	return []byte("cat:" + string(kind) + ":")
}

// catNameKey returns the name index key for a categorizer:
// cat:idx:name:{kind}:{name} → categorizerID. The normalized name is unique
// within a kind.
func catNameKey(key domain.Key) []byte {
	return []byte("cat:idx:name:" + string(key.Kind) + ":" + key.Name)
}

func paperKey(id string) []byte { return []byte(paperPrefix + id) }

func paperDupKey(dupKey string) []byte { return []byte(paperDupPrefix + dupKey) }

func legacyKey(legacyID string) []byte { return []byte(legacyPrefix + legacyID) }
