package repositories

import (
	"chatchat/errors"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	DriverBadger = "badger"
	DriverMongo  = "mongo"
)

type StoreConfig struct {
	Driver        string
	BadgerPath    string
	MongoURI      string
	MongoDatabase string
}

// Stores bundles the repositories of one backend.
// Badger is nil unless the badger driver is in use.
type Stores struct {
	Messages IMessageRepository
	Profiles IProfileRepository
	Badger   *badger.DB
	close    func(ctx context.Context) error
}

func OpenStores(ctx context.Context, cfg StoreConfig, log *slog.Logger) (*Stores, error) {
	switch cfg.Driver {
	case DriverBadger, "":
		db, err := badger.Open(badger.DefaultOptions(cfg.BadgerPath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, fmt.Errorf("database opening failed: %w", err)
		}
		stores, err := NewBadgerStores(db, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return stores, nil
	case DriverMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		if err = client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo ping failed: %w", err)
		}
		stores, err := NewMongoStores(ctx, client, cfg.MongoDatabase, log)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return stores, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownStoreDriver, cfg.Driver)
	}
}

// NewBadgerStores takes ownership of db.
func NewBadgerStores(db *badger.DB, log *slog.Logger) (*Stores, error) {
	messages, err := NewBadgerMessageRepository(db, log)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Messages: messages,
		Profiles: NewBadgerProfileRepository(db),
		Badger:   db,
		close:    func(context.Context) error { return db.Close() },
	}, nil
}

// NewMongoStores takes ownership of client.
func NewMongoStores(ctx context.Context, client *mongo.Client, database string, log *slog.Logger) (*Stores, error) {
	db := client.Database(database)
	messages, err := NewMongoMessageRepository(ctx, db, log)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Messages: messages,
		Profiles: NewMongoProfileRepository(db),
		close:    client.Disconnect,
	}, nil
}

func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
