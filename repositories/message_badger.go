package repositories

import (
	"bytes"
	"chatchat/domain/chat"
	"chatchat/errors"
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	messagePrefix = "msg:"
	pointerPrefix = "msgid:"
	globalScope   = "-"
	maxTxnRetries = 8
)

type BadgerMessageRepository struct {
	db    *badger.DB
	log   *slog.Logger
	clock *monotonicClock
}

func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger) (*BadgerMessageRepository, error) {
	r := &BadgerMessageRepository{db: db, log: log, clock: newMonotonicClock()}
	if err := r.seedClock(); err != nil {
		return nil, err
	}
	return r, nil
}

// Create persists a message. The key is formatted as "msg:{scope}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting inside a scope using 19-digit zero padding.
//  2. Keep one scope contiguous so that history is a single prefix scan.
//
// A pointer "msgid:{uuid}" resolves the primary key for updates by id.
func (r *BadgerMessageRepository) Create(ctx context.Context, message chat.Message) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	message = prepare(message, uuid.NewString(), r.clock.Next())
	data, err := bson.Marshal(fromMessage(message))
	if err != nil {
		return chat.Message{}, storeFailure("encode message", err)
	}
	key := messageKey(message)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(pointerKey(message.ID), key)
	})
	if err != nil {
		return chat.Message{}, storeFailure("create message", err)
	}
	return message, nil
}

// Find walks a scope backwards from the cursor, newest first, then returns the page in chronological order.
// Without a room the whole keyspace is scanned; that path serves small diagnostic queries only.
func (r *BadgerMessageRepository) Find(ctx context.Context, filter MessageFilter, opts FindOptions) ([]chat.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if filter.Room == nil {
		if opts.Before != nil {
			return nil, nil, errors.ErrUnsupportedFilter
		}
		return r.findAcrossScopes(filter, opts.Limit)
	}

	prefix := scopePrefix(*filter.Room)
	var seekKey []byte
	switch opts.Before {
	case nil:
		seekKey = append(slices.Clone(prefix), 0xFF)
	default:
		if _, _, err := decodeCursor(*opts.Before); err != nil {
			return nil, nil, err
		}
		seekKey = append(slices.Clone(prefix), *opts.Before...)
	}

	var messages []chat.Message
	var next *string
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(seekKey)
		if opts.Before != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if opts.Limit > 0 && len(messages) == opts.Limit {
				r.log.Debug(fmt.Sprintf("Maximum of %d message reached", opts.Limit))
				next = cursorOf(messages[len(messages)-1])
				break
			}
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			if filter.matches(message) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, storeFailure("find messages", err)
	}
	slices.Reverse(messages)
	return messages, next, nil
}

func (r *BadgerMessageRepository) findAcrossScopes(filter MessageFilter, limit int) ([]chat.Message, *string, error) {
	var messages []chat.Message
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			if filter.matches(message) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, storeFailure("find messages", err)
	}
	slices.SortFunc(messages, func(a, b chat.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil, nil
}

// UpdateOne runs read, check and write in one optimistic transaction.
// A concurrent writer on the same message makes the commit fail with badger.ErrConflict; it is retried.
func (r *BadgerMessageRepository) UpdateOne(ctx context.Context, filter MessageFilter, update MessageUpdate) (chat.Message, error) {
	if filter.ID == nil {
		return chat.Message{}, errors.ErrUnsupportedFilter
	}
	var updated chat.Message
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return chat.Message{}, err
		}
		err := r.db.Update(func(txn *badger.Txn) error {
			pointer, err := txn.Get(pointerKey(*filter.ID))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrMessageUnavailable
			}
			if err != nil {
				return err
			}
			key, err := pointer.ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(key)
			if err != nil {
				return err
			}
			message, err := decodeItem(item)
			if err != nil {
				return err
			}
			if !filter.matches(message) {
				return errors.ErrMessageUnavailable
			}
			update.apply(&message)
			data, err := bson.Marshal(fromMessage(message))
			if err != nil {
				return err
			}
			updated = message
			return txn.Set(key, data)
		})
		switch {
		case err == nil:
			return updated, nil
		case stderrors.Is(err, errors.ErrMessageUnavailable):
			return chat.Message{}, err
		case stderrors.Is(err, badger.ErrConflict) && attempt < maxTxnRetries:
			r.log.Debug("Conflicting update, retrying", "message_id", *filter.ID, "attempt", attempt+1)
			continue
		default:
			return chat.Message{}, storeFailure("update message", err)
		}
	}
}

// seedClock keeps creation times increasing across restarts.
func (r *BadgerMessageRepository) seedClock() error {
	return r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			at, _, err := decodeCursor(keySuffix(it.Item().Key()))
			if err != nil {
				r.log.Warn("Skipping malformed message key", "key", string(it.Item().Key()))
				continue
			}
			r.clock.Seed(at)
		}
		return nil
	})
}

func decodeItem(item *badger.Item) (chat.Message, error) {
	var doc messageDocument
	err := item.Value(func(val []byte) error {
		return bson.Unmarshal(val, &doc)
	})
	if err != nil {
		return chat.Message{}, err
	}
	return toMessage(doc), nil
}

func scopeToken(room chat.RoomKey) string {
	if room.IsGlobal() {
		return globalScope
	}
	return base64.RawURLEncoding.EncodeToString([]byte(room))
}

func scopePrefix(room chat.RoomKey) []byte {
	return []byte(messagePrefix + scopeToken(room) + ":")
}

func messageKey(m chat.Message) []byte {
	return append(scopePrefix(m.Room), encodeCursor(m)...)
}

func pointerKey(id string) []byte {
	return []byte(pointerPrefix + id)
}

// keySuffix strips "msg:{scope}:" from a primary key.
func keySuffix(key []byte) string {
	rest := bytes.TrimPrefix(key, []byte(messagePrefix))
	if i := bytes.IndexByte(rest, ':'); i >= 0 {
		return string(rest[i+1:])
	}
	return ""
}

func cursorOf(m chat.Message) *string {
	cursor := encodeCursor(m)
	return &cursor
}

// scopeOfKey is used by the inspection tool to print the room of a raw key.
func scopeOfKey(key []byte) (chat.RoomKey, error) {
	rest := bytes.TrimPrefix(key, []byte(messagePrefix))
	i := bytes.IndexByte(rest, ':')
	if i < 0 {
		return "", fmt.Errorf("malformed key %q", key)
	}
	token := string(rest[:i])
	if token == globalScope {
		return chat.Global, nil
	}
	room, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return chat.RoomKey(room), nil
}
