package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stockpulse/stockpulse/internal/db"
	"github.com/stockpulse/stockpulse/internal/model"
	"github.com/stockpulse/stockpulse/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	err   error
	calls int
}

func (f *fakeSender) Send(ctx context.Context, to, subject, html string) error {
	f.calls++
	return f.err
}

func TestDispatch_Success(t *testing.T) {
	gdb := testDB(t)
	sender := &fakeSender{}
	d := notify.NewDispatcher(gdb, sender, discardLog())

	res := d.Dispatch(context.Background(), notify.Message{
		CompanyID: "c-1",
		Type:      "stock_alert",
		Recipient: "owner@acme.test",
		Subject:   "Stock Alert",
		HTML:      "<p>low stock</p>",
		Metadata:  map[string]any{"out_of_stock": 2},
	})

	assert.True(t, res.OK())
	assert.Equal(t, 1, sender.calls)

	var entry model.NotificationLog
	require.NoError(t, gdb.First(&entry).Error)
	assert.Equal(t, "c-1", entry.CompanyID)
	assert.Equal(t, "stock_alert", entry.Type)
	assert.Equal(t, model.NotificationSent, entry.Status)
	assert.Empty(t, entry.ErrorMessage)
	assert.Contains(t, entry.Metadata, `"out_of_stock":2`)
}

func TestDispatch_MailAPIFailure(t *testing.T) {
	gdb := testDB(t)
	sender := &fakeSender{err: &notify.APIError{StatusCode: 422, Body: "bad recipient"}}
	d := notify.NewDispatcher(gdb, sender, discardLog())

	res := d.Dispatch(context.Background(), notify.Message{
		CompanyID: "c-1",
		Type:      "stock_alert",
		Recipient: "bad",
		Subject:   "Stock Alert",
		HTML:      "<p></p>",
	})

	assert.False(t, res.OK())
	assert.Equal(t, notify.ErrMailAPI, res.Kind)

	var entry model.NotificationLog
	require.NoError(t, gdb.First(&entry).Error)
	assert.Equal(t, model.NotificationFailed, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "bad recipient")
}

func TestDispatch_TransportFailure(t *testing.T) {
	gdb := testDB(t)
	sender := &fakeSender{err: errors.New("dial tcp: connection refused")}
	d := notify.NewDispatcher(gdb, sender, discardLog())

	res := d.Dispatch(context.Background(), notify.Message{
		CompanyID: "c-1",
		Type:      "movement_alert",
		Recipient: "owner@acme.test",
		Subject:   "Movement Alert",
		HTML:      "<p></p>",
	})

	assert.Equal(t, notify.ErrTransport, res.Kind)
	assert.Equal(t, 1, sender.calls)

	// One log row per attempt, no retry.
	var count int64
	require.NoError(t, gdb.Model(&model.NotificationLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
