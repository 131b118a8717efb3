// Command dbinspect dumps a summary of a PaperBase database for debugging.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/PaperBase/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	paperCount := 0
	dupIndexCount := 0
	legacyCount := 0
	catCounts := map[string]int{}

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			switch {
			case strings.HasPrefix(key, "paper:idx:"):
				dupIndexCount++
			case strings.HasPrefix(key, "paper:"):
				paperCount++
			case strings.HasPrefix(key, "legacy:"):
				legacyCount++
			case strings.HasPrefix(key, "cat:idx:"):
				// name index, counted via the records
			case strings.HasPrefix(key, "cat:"):
				parts := strings.SplitN(key, ":", 3)
				if len(parts) == 3 {
					catCounts[parts[1]]++
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan database: %v", err)
	}

	fmt.Printf("Papers:            %d\n", paperCount)
	fmt.Printf("Duplicate guards:  %d\n", dupIndexCount)
	fmt.Printf("Legacy markers:    %d\n", legacyCount)
	for _, kind := range []string{"tag", "folder", "feed"} {
		fmt.Printf("Categorizers/%-7s%d\n", kind+":", catCounts[kind])
	}
	fmt.Println()

	// Flag papers whose duplicate guard or categorizer references are broken.
	fmt.Println("=== Integrity ===")
	broken := 0
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("paper:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, "paper:idx:") {
				continue
			}

			var p domain.Paper
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				fmt.Printf("  unreadable record %s: %v\n", key, err)
				broken++
				continue
			}

			for kind, ids := range map[string][]string{
				"tag": p.TagIDs, "folder": p.FolderIDs, "feed": p.FeedIDs,
			} {
				for _, id := range ids {
					if _, err := txn.Get([]byte("cat:" + kind + ":" + id)); err != nil {
						fmt.Printf("  paper %s references missing %s %s\n", p.ID, kind, id)
						broken++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to check integrity: %v", err)
	}
	if broken == 0 {
		fmt.Println("  ok")
	}
}
