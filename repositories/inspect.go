package repositories

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Entry is a human readable view of one raw badger key, used by diagnostic tools.
type Entry struct {
	Key     string
	Kind    string
	Room    string
	ID      string
	Author  string
	Detail  string
	At      time.Time
	Deleted bool
}

// DescribeEntry decodes a raw key/value pair of the badger layout.
func DescribeEntry(key string, val []byte) (Entry, error) {
	entry := Entry{Key: key, Kind: "UNKNOWN"}
	switch {
	case strings.HasPrefix(key, messagePrefix):
		var doc messageDocument
		if err := bson.Unmarshal(val, &doc); err != nil {
			return entry, fmt.Errorf("decode %s: %w", key, err)
		}
		room, err := scopeOfKey([]byte(key))
		if err != nil {
			return entry, err
		}
		entry.Kind = "MESSAGE"
		if doc.HasImage {
			entry.Kind = "IMAGE"
		}
		entry.Room = room.String()
		entry.ID = doc.ID
		entry.Author = doc.DisplayName
		entry.Detail = doc.Text
		entry.At = doc.CreatedAt.UTC()
		entry.Deleted = doc.IsDeleted
	case strings.HasPrefix(key, pointerPrefix):
		entry.Kind = "POINTER"
		entry.ID = strings.TrimPrefix(key, pointerPrefix)
		entry.Detail = string(val)
	case strings.HasPrefix(key, profilePrefix):
		var doc profileDocument
		if err := bson.Unmarshal(val, &doc); err != nil {
			return entry, fmt.Errorf("decode %s: %w", key, err)
		}
		entry.Kind = "PROFILE"
		entry.ID = doc.UserID
		entry.Author = doc.DisplayName
		entry.Detail = fmt.Sprintf("online=%t", doc.IsOnline)
		entry.At = doc.LastSeen.UTC()
	}
	return entry, nil
}

// Scan walks every key starting with prefix.
func Scan(db *badger.DB, prefix string, fn func(Entry) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			var entry Entry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = DescribeEntry(key, val)
				return err
			})
			if err != nil {
				return err
			}
			if err = fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}
