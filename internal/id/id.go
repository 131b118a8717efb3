// Package id generates prefixed unique identifiers for library records.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// New creates a prefixed NanoID, e.g. "paper-V1StGXR8_Z5jdHi6B-myT".
//
// NanoIDs are URL-safe and shorter than UUIDs while keeping comparable
// entropy, which keeps database keys and attachment stems compact.
func New(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustNew is like New but panics when the system entropy source fails.
// Intended for initialization paths where failure should abort the program.
func MustNew(prefix string) string {
	id, err := New(prefix)
	if err != nil {
		panic(fmt.Sprintf("id: %v", err))
	}
	return id
}
