//go:generate go run go.uber.org/mock/mockgen -source=profile.go -destination=../mocks/mock_profile_repository.go -package=mocks
package repositories

import (
	"chatchat/domain/chat"
	"chatchat/errors"
	"context"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	profilePrefix      = "profile:"
	profilesCollection = "profiles"
)

// IProfileRepository keeps one bookkeeping record per user.
type IProfileRepository interface {
	// Upsert marks the user online at the given time, creating the profile on first sight.
	Upsert(ctx context.Context, identity chat.Identity, at time.Time) (chat.Profile, error)
	// SetOffline is a no-op for unknown users.
	SetOffline(ctx context.Context, userID string, at time.Time) error
	Get(ctx context.Context, userID string) (chat.Profile, error)
}

type BadgerProfileRepository struct {
	db *badger.DB
}

func NewBadgerProfileRepository(db *badger.DB) *BadgerProfileRepository {
	return &BadgerProfileRepository{db: db}
}

func (p *BadgerProfileRepository) Upsert(ctx context.Context, identity chat.Identity, at time.Time) (chat.Profile, error) {
	var profile chat.Profile
	err := p.update(ctx, identity.UserID, func(existing *chat.Profile) bool {
		if existing.CreatedAt.IsZero() {
			existing.UserID = identity.UserID
			existing.CreatedAt = at
		}
		existing.Email = identity.Email
		existing.DisplayName = identity.AuthorName()
		existing.IsOnline = true
		existing.LastSeen = at
		existing.UpdatedAt = at
		profile = *existing
		return true
	})
	return profile, err
}

func (p *BadgerProfileRepository) SetOffline(ctx context.Context, userID string, at time.Time) error {
	return p.update(ctx, userID, func(existing *chat.Profile) bool {
		if existing.CreatedAt.IsZero() {
			return false
		}
		existing.IsOnline = false
		existing.LastSeen = at
		existing.UpdatedAt = at
		return true
	})
}

func (p *BadgerProfileRepository) Get(_ context.Context, userID string) (chat.Profile, error) {
	var profile chat.Profile
	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		profile, err = readProfile(txn, userID)
		return err
	})
	switch {
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return chat.Profile{}, errors.ErrProfileNotFound
	case err != nil:
		return chat.Profile{}, storeFailure("get profile", err)
	}
	return profile, nil
}

// update reads, mutates and writes back a profile, retrying on conflicting writers.
// mutate returns false to leave the store untouched.
func (p *BadgerProfileRepository) update(ctx context.Context, userID string, mutate func(*chat.Profile) bool) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.db.Update(func(txn *badger.Txn) error {
			profile, err := readProfile(txn, userID)
			if err != nil && !stderrors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if !mutate(&profile) {
				return nil
			}
			data, err := bson.Marshal(fromProfile(profile))
			if err != nil {
				return err
			}
			return txn.Set([]byte(profilePrefix+userID), data)
		})
		switch {
		case err == nil:
			return nil
		case stderrors.Is(err, badger.ErrConflict) && attempt < maxTxnRetries:
			continue
		default:
			return storeFailure("update profile", err)
		}
	}
}

func readProfile(txn *badger.Txn, userID string) (chat.Profile, error) {
	item, err := txn.Get([]byte(profilePrefix + userID))
	if err != nil {
		return chat.Profile{}, err
	}
	var doc profileDocument
	if err := item.Value(func(val []byte) error {
		return bson.Unmarshal(val, &doc)
	}); err != nil {
		return chat.Profile{}, err
	}
	return toProfile(doc), nil
}

type MongoProfileRepository struct {
	collection *mongo.Collection
}

func NewMongoProfileRepository(db *mongo.Database) *MongoProfileRepository {
	return &MongoProfileRepository{collection: db.Collection(profilesCollection)}
}

func (p *MongoProfileRepository) Upsert(ctx context.Context, identity chat.Identity, at time.Time) (chat.Profile, error) {
	var doc profileDocument
	err := p.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": identity.UserID},
		bson.M{
			"$set": bson.M{
				"email":       identity.Email,
				"displayName": identity.AuthorName(),
				"isOnline":    true,
				"lastSeen":    at,
				"updatedAt":   at,
			},
			"$setOnInsert": bson.M{"createdAt": at},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return chat.Profile{}, storeFailure("upsert profile", err)
	}
	return toProfile(doc), nil
}

func (p *MongoProfileRepository) SetOffline(ctx context.Context, userID string, at time.Time) error {
	_, err := p.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"isOnline": false, "lastSeen": at, "updatedAt": at}},
	)
	if err != nil {
		return storeFailure("set profile offline", err)
	}
	return nil
}

func (p *MongoProfileRepository) Get(ctx context.Context, userID string) (chat.Profile, error) {
	var doc profileDocument
	err := p.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	switch {
	case stderrors.Is(err, mongo.ErrNoDocuments):
		return chat.Profile{}, errors.ErrProfileNotFound
	case err != nil:
		return chat.Profile{}, storeFailure("get profile", err)
	}
	return toProfile(doc), nil
}
