package repositories

import (
	"chatchat/domain/chat"
	"chatchat/errors"
	"context"
	stderrors "errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const messagesCollection = "messages"

type MongoMessageRepository struct {
	collection *mongo.Collection
	log        *slog.Logger
	clock      *monotonicClock
}

func NewMongoMessageRepository(ctx context.Context, db *mongo.Database, log *slog.Logger) (*MongoMessageRepository, error) {
	r := &MongoMessageRepository{collection: db.Collection(messagesCollection), log: log, clock: newMonotonicClock()}
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "room", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "hasImage", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return nil, storeFailure("create message indexes", err)
	}

	var latest messageDocument
	err = r.collection.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&latest)
	switch {
	case err == nil:
		r.clock.Seed(latest.CreatedAt)
	case !stderrors.Is(err, mongo.ErrNoDocuments):
		return nil, storeFailure("seed clock", err)
	}
	return r, nil
}

func (r *MongoMessageRepository) Create(ctx context.Context, message chat.Message) (chat.Message, error) {
	message = prepare(message, uuid.NewString(), r.clock.Next())
	if _, err := r.collection.InsertOne(ctx, fromMessage(message)); err != nil {
		return chat.Message{}, storeFailure("create message", err)
	}
	return message, nil
}

func (r *MongoMessageRepository) Find(ctx context.Context, filter MessageFilter, opts FindOptions) ([]chat.Message, *string, error) {
	query := toBSONFilter(filter)
	if opts.Before != nil {
		at, _, err := decodeCursor(*opts.Before)
		if err != nil {
			return nil, nil, err
		}
		query["createdAt"] = bson.M{"$lt": at}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if opts.Limit > 0 {
		// One extra document tells whether an older page exists.
		findOptions.SetLimit(int64(opts.Limit + 1))
	}
	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, nil, storeFailure("find messages", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, nil, storeFailure("decode messages", err)
	}

	var next *string
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
		next = cursorOf(toMessage(docs[len(docs)-1]))
	}
	messages := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, toMessage(doc))
	}
	slices.Reverse(messages)
	return messages, next, nil
}

// UpdateOne relies on FindOneAndUpdate: the filter and the write are one atomic server side operation.
func (r *MongoMessageRepository) UpdateOne(ctx context.Context, filter MessageFilter, update MessageUpdate) (chat.Message, error) {
	set := bson.M{}
	if update.Text != nil {
		set["text"] = *update.Text
	}
	if update.IsEdited != nil {
		set["isEdited"] = *update.IsEdited
	}
	if update.UpdatedAt != nil {
		set["updatedAt"] = *update.UpdatedAt
	}
	if update.IsDeleted != nil {
		set["isDeleted"] = *update.IsDeleted
	}
	if update.DeletedAt != nil {
		set["deletedAt"] = *update.DeletedAt
	}

	var doc messageDocument
	err := r.collection.FindOneAndUpdate(ctx,
		toBSONFilter(filter),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case stderrors.Is(err, mongo.ErrNoDocuments):
		return chat.Message{}, errors.ErrMessageUnavailable
	case err != nil:
		return chat.Message{}, storeFailure("update message", err)
	}
	return toMessage(doc), nil
}

func toBSONFilter(filter MessageFilter) bson.M {
	query := bson.M{}
	if filter.ID != nil {
		query["_id"] = *filter.ID
	}
	if filter.AuthorID != nil {
		query["userId"] = *filter.AuthorID
	}
	if filter.Room != nil {
		query["room"] = string(*filter.Room)
	}
	if filter.IsDeleted != nil {
		query["isDeleted"] = *filter.IsDeleted
	}
	if filter.HasImage != nil {
		query["hasImage"] = *filter.HasImage
	}
	return query
}
