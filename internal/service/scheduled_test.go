package service

import (
	"context"
	"testing"
	"time"

	"github.com/stockpulse/stockpulse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createCompany(t *testing.T, gdb *gorm.DB, id, email string) {
	t.Helper()
	require.NoError(t, gdb.Create(&model.Company{
		ID: id, Name: "Company " + id, Email: email,
	}).Error)
}

func TestRunScheduled_StockTimestampOnlyAfterSend(t *testing.T) {
	sender := &fakeSender{}
	r, gdb := newTestRunner(t, sender)
	createCompany(t, gdb, "c-1", "owner@acme.test")
	createProduct(t, gdb, "p-1", 50, 5) // healthy, nothing to send
	require.NoError(t, gdb.Create(&model.StockAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleDaily,
		HourOfDay: runnerNow.Hour(), IsActive: true,
	}).Error)

	results := r.RunScheduled(context.Background())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "No stock alerts needed", results[0].Message)
	assert.Zero(t, sender.calls)

	// Nothing was sent, so the schedule stays eligible.
	var sched model.StockAlertSchedule
	require.NoError(t, gdb.First(&sched).Error)
	assert.Nil(t, sched.LastSentAt)

	// Now give the tenant an out-of-stock product: the send advances it.
	require.NoError(t, gdb.Model(&model.Product{}).
		Where("id = ?", "p-1").Update("quantity", 0).Error)

	results = r.RunScheduled(context.Background())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, sender.calls)

	require.NoError(t, gdb.First(&sched).Error)
	require.NotNil(t, sched.LastSentAt)
	assert.WithinDuration(t, runnerNow, *sched.LastSentAt, time.Second)
}

func TestRunScheduled_MovementTimestampAlwaysAdvances(t *testing.T) {
	sender := &fakeSender{}
	r, gdb := newTestRunner(t, sender)
	createCompany(t, gdb, "c-1", "owner@acme.test")
	require.NoError(t, gdb.Create(&model.MovementAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleDaily,
		HourOfDay: runnerNow.Hour(), IsActive: true,
		ThresholdPercent: 20, ComparisonDays: 7,
	}).Error)

	results := r.RunScheduled(context.Background())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "No significant movement changes", results[0].Message)
	assert.Zero(t, sender.calls)

	// The run counts as "checked" even though nothing was sent.
	var sched model.MovementAlertSchedule
	require.NoError(t, gdb.First(&sched).Error)
	require.NotNil(t, sched.LastRunAt)
	assert.WithinDuration(t, runnerNow, *sched.LastRunAt, time.Second)

	// A second scan in the same hour is gated out by the fresh timestamp.
	results = r.RunScheduled(context.Background())
	assert.Empty(t, results)
}

func TestRunScheduled_SkipsSchedulesNotDue(t *testing.T) {
	sender := &fakeSender{}
	r, gdb := newTestRunner(t, sender)
	createCompany(t, gdb, "c-1", "owner@acme.test")
	require.NoError(t, gdb.Create(&model.StockAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleDaily,
		HourOfDay: (runnerNow.Hour() + 1) % 24, IsActive: true,
	}).Error)
	require.NoError(t, gdb.Create(&model.MovementAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleWeekly,
		HourOfDay: runnerNow.Hour(), DayOfWeek: int(runnerNow.Weekday()+1) % 7,
		IsActive: true,
	}).Error)

	assert.Empty(t, r.RunScheduled(context.Background()))
	assert.Zero(t, sender.calls)
}

func TestRunScheduled_RecipientFallsBackToCompanyEmail(t *testing.T) {
	sender := &fakeSender{}
	r, gdb := newTestRunner(t, sender)
	createCompany(t, gdb, "c-1", "fallback@acme.test")
	createProduct(t, gdb, "p-1", 0, 5)
	require.NoError(t, gdb.Create(&model.StockAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleDaily,
		HourOfDay: runnerNow.Hour(), IsActive: true,
	}).Error)

	results := r.RunScheduled(context.Background())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "fallback@acme.test", sender.to)
}

func TestRunScheduled_ContinuesPastFailingTenant(t *testing.T) {
	sender := &fakeSender{}
	r, gdb := newTestRunner(t, sender)

	// First tenant has no recipient anywhere; second is fine.
	createCompany(t, gdb, "c-0", "")
	require.NoError(t, gdb.Create(&model.StockAlertSchedule{
		CompanyID: "c-0", ScheduleType: model.ScheduleDaily,
		HourOfDay: runnerNow.Hour(), IsActive: true,
	}).Error)

	createCompany(t, gdb, "c-1", "owner@acme.test")
	createProduct(t, gdb, "p-1", 0, 5)
	require.NoError(t, gdb.Create(&model.StockAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleDaily,
		HourOfDay: runnerNow.Hour(), IsActive: true,
	}).Error)

	results := r.RunScheduled(context.Background())
	require.Len(t, results, 2)

	byCompany := map[string]RunResult{}
	for _, res := range results {
		byCompany[res.CompanyID] = res
	}
	assert.False(t, byCompany["c-0"].Success)
	assert.Equal(t, "no recipient email configured", byCompany["c-0"].Message)
	assert.True(t, byCompany["c-1"].Success)
	assert.Equal(t, 1, sender.calls)
}

func TestRunScheduled_IgnoresDisabledAndInactive(t *testing.T) {
	sender := &fakeSender{}
	r, gdb := newTestRunner(t, sender)
	createCompany(t, gdb, "c-1", "owner@acme.test")
	require.NoError(t, gdb.Create(&model.StockAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleDisabled,
		HourOfDay: runnerNow.Hour(), IsActive: true,
	}).Error)
	require.NoError(t, gdb.Create(&model.MovementAlertSchedule{
		CompanyID: "c-1", ScheduleType: model.ScheduleDaily,
		HourOfDay: runnerNow.Hour(), IsActive: false,
	}).Error)

	assert.Empty(t, r.RunScheduled(context.Background()))
}
