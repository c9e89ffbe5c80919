package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/storage/db"
)

func TestRegisteredTypes(t *testing.T) {
	types := db.GetRegisteredDBTypes()

	assert.Contains(t, types, configs.SQLite)
	assert.Contains(t, types, configs.Postgres)
	assert.Contains(t, types, configs.MySQL)
}

func TestSQLiteMigrateAndPing(t *testing.T) {
	ctx := context.Background()

	client, err := db.New(ctx, &configs.DBConfig{
		Type:         configs.SQLite,
		DSN:          "file:db_test_migrate?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Migrate(ctx))
	require.NoError(t, client.Ping(ctx))

	for _, m := range []any{&model.User{}, &model.Folder{}, &model.File{}, &model.Share{}, &model.ActivityLog{}} {
		assert.True(t, client.Migrator().HasTable(m))
	}
}

func TestUnsupportedType(t *testing.T) {
	_, err := db.New(context.Background(), &configs.DBConfig{Type: "oracle", DSN: "x"})
	assert.Error(t, err)
}
