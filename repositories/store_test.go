package repositories

import (
	"chatchat/errors"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestOpenStores(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	stores, err := OpenStores(ctx, StoreConfig{Driver: DriverBadger, BadgerPath: t.TempDir()}, log)
	req.NoError(err)
	req.NotNil(stores.Badger)
	req.IsType(&BadgerMessageRepository{}, stores.Messages)
	req.IsType(&BadgerProfileRepository{}, stores.Profiles)
	req.NoError(stores.Close(ctx))

	_, err = OpenStores(ctx, StoreConfig{Driver: "cassandra"}, log)
	req.ErrorIs(err, errors.ErrUnknownStoreDriver)
}
