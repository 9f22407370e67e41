package database_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jamditis/class/internal/database"
	"github.com/jamditis/class/internal/models"
)

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := database.Connect("oracle", "dsn")
	require.Error(t, err)
}

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := database.Connect("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	for _, model := range models.All() {
		require.True(t, db.Migrator().HasTable(model))
	}
	require.True(t, db.Migrator().HasIndex(&models.Evaluation{}, "idx_evaluations_single_final"))
	require.True(t, db.Migrator().HasIndex(&models.Submission{}, "idx_submissions_student_assignment"))
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := database.ConnectSQLite("")
	require.Error(t, err)

	_, err = database.ConnectRedis(context.Background(), "")
	require.Error(t, err)
}

func TestProbesReportReachability(t *testing.T) {
	ctx := context.Background()

	db, err := database.Connect("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.SQLProbe(db)(ctx))

	mini := miniredis.NewMiniRedis()
	require.NoError(t, mini.Start())
	client, err := database.ConnectRedis(ctx, "redis://"+mini.Addr())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, database.RedisProbe(client)(ctx))

	mini.Close()
	require.Error(t, database.RedisProbe(client)(ctx))
}

func TestConnectRedisRejectsBadURL(t *testing.T) {
	_, err := database.ConnectRedis(context.Background(), "http://localhost:6379")
	require.Error(t, err)
}
