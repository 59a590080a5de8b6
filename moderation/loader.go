package moderation

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BlacklistPrefix is the badger key prefix of operator supplied words: "blacklist:{word}" with an empty value.
const BlacklistPrefix = "blacklist:"

//go:embed censored/*.txt
var censoredFS embed.FS

// DefaultWords returns the embedded word lists.
func DefaultWords() ([]string, error) {
	var words []string
	err := fs.WalkDir(censoredFS, "censored", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		file, err := censoredFS.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		return scanner.Err()
	})
	return words, err
}

// LoadBlacklist reads the words stored in badger. Words live in the keys, values are not fetched.
func LoadBlacklist(db *badger.DB) ([]string, error) {
	var words []string
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(BlacklistPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			words = append(words, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return words, err
}

// AddToBlacklist stores words so that the next LoadBlacklist returns them.
func AddToBlacklist(db *badger.DB, words ...string) error {
	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if err := wb.Set([]byte(BlacklistPrefix+word), nil); err != nil {
			return err
		}
	}
	return wb.Flush()
}
