package worker_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stockpulse/stockpulse/internal/config"
	"github.com/stockpulse/stockpulse/internal/db"
	"github.com/stockpulse/stockpulse/internal/notify"
	"github.com/stockpulse/stockpulse/internal/service"
	"github.com/stockpulse/stockpulse/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopSender struct{}

func (noopSender) Send(ctx context.Context, to, subject, html string) error { return nil }

func testRunner(t *testing.T) *service.AlertRunner {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewAlertRunner(gdb, notify.NewDispatcher(gdb, noopSender{}, log), nil,
		config.AlertConfig{DefaultThresholdPercent: 20, DefaultComparisonDays: 7}, log)
}

func TestScheduleScanArgsKind(t *testing.T) {
	assert.Equal(t, "schedule_scan", worker.ScheduleScanArgs{}.Kind())
}

func TestTickerQueueLifecycle(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	q, err := worker.New(context.Background(), nil, "sqlite", 1, testRunner(t), time.Hour, log)
	require.NoError(t, err)

	require.NoError(t, q.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, q.Stop(stopCtx))
}

func TestTickerQueueStopWithoutStart(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	q, err := worker.New(context.Background(), nil, "sqlite", 1, testRunner(t), time.Hour, log)
	require.NoError(t, err)

	assert.NoError(t, q.Stop(context.Background()))
}
