package push_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stockpulse/stockpulse/internal/db"
	"github.com/stockpulse/stockpulse/internal/model"
	"github.com/stockpulse/stockpulse/internal/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testManager(t *testing.T) (*push.Manager, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return push.NewManager(gdb, log), gdb
}

func browserSub(endpoint string) push.Subscription {
	return push.Subscription{
		Endpoint: endpoint,
		Keys:     push.Keys{P256dh: "p256dh-key", Auth: "auth-secret"},
	}
}

func TestSubscribe(t *testing.T) {
	m, gdb := testManager(t)

	ok := m.Subscribe(context.Background(), "u-1", "c-1", browserSub("https://push.example/ep1"))
	assert.True(t, ok)

	var row model.PushSubscription
	require.NoError(t, gdb.First(&row).Error)
	assert.Equal(t, "u-1", row.UserID)
	assert.Equal(t, "c-1", row.CompanyID)
	assert.Equal(t, "https://push.example/ep1", row.Endpoint)
	assert.Equal(t, "p256dh-key", row.P256dh)
}

func TestSubscribe_SameEndpointTwiceKeepsOneRow(t *testing.T) {
	m, gdb := testManager(t)
	ctx := context.Background()

	require.True(t, m.Subscribe(ctx, "u-1", "c-1", browserSub("https://push.example/ep1")))

	refreshed := browserSub("https://push.example/ep1")
	refreshed.Keys.P256dh = "rotated-key"
	require.True(t, m.Subscribe(ctx, "u-1", "c-1", refreshed))

	var count int64
	require.NoError(t, gdb.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var row model.PushSubscription
	require.NoError(t, gdb.First(&row).Error)
	assert.Equal(t, "rotated-key", row.P256dh)
}

func TestSubscribe_DistinctEndpointsCoexist(t *testing.T) {
	m, gdb := testManager(t)
	ctx := context.Background()

	require.True(t, m.Subscribe(ctx, "u-1", "c-1", browserSub("https://push.example/ep1")))
	require.True(t, m.Subscribe(ctx, "u-1", "c-1", browserSub("https://push.example/ep2")))
	require.True(t, m.Subscribe(ctx, "u-2", "c-1", browserSub("https://push.example/ep1")))

	var count int64
	require.NoError(t, gdb.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestSubscribe_IncompleteRejected(t *testing.T) {
	m, gdb := testManager(t)

	sub := browserSub("https://push.example/ep1")
	sub.Keys.Auth = ""
	assert.False(t, m.Subscribe(context.Background(), "u-1", "c-1", sub))

	assert.False(t, m.Subscribe(context.Background(), "u-1", "c-1", push.Subscription{}))

	var count int64
	require.NoError(t, gdb.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnsubscribe(t *testing.T) {
	m, gdb := testManager(t)
	ctx := context.Background()

	require.True(t, m.Subscribe(ctx, "u-1", "c-1", browserSub("https://push.example/ep1")))
	assert.True(t, m.Unsubscribe(ctx, "u-1", "https://push.example/ep1"))

	var count int64
	require.NoError(t, gdb.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnsubscribe_MissingReturnsFalse(t *testing.T) {
	m, gdb := testManager(t)
	ctx := context.Background()

	require.True(t, m.Subscribe(ctx, "u-1", "c-1", browserSub("https://push.example/ep1")))

	// Wrong endpoint and wrong user both report false and leave the
	// existing row alone.
	assert.False(t, m.Unsubscribe(ctx, "u-1", "https://push.example/other"))
	assert.False(t, m.Unsubscribe(ctx, "u-2", "https://push.example/ep1"))

	var count int64
	require.NoError(t, gdb.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestList(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	require.True(t, m.Subscribe(ctx, "u-1", "c-1", browserSub("https://push.example/ep1")))
	require.True(t, m.Subscribe(ctx, "u-1", "c-1", browserSub("https://push.example/ep2")))
	require.True(t, m.Subscribe(ctx, "u-2", "c-1", browserSub("https://push.example/ep3")))

	rows := m.List(ctx, "u-1")
	assert.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "u-1", r.UserID)
	}
}
