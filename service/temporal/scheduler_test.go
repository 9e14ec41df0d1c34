package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Scheduler = (*MockScheduler)(nil)
var _ Scheduler = (*Client)(nil)

func TestMockScheduler_Lifecycle(t *testing.T) {
	m := NewMockScheduler()
	ctx := context.Background()

	require.NoError(t, m.CreateWalletSchedule(ctx, testWallet, "whale one", 30*time.Second))
	assert.True(t, m.ScheduleExists(testWallet))
	interval, ok := m.GetScheduleInterval(testWallet)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, interval)

	// Create is not idempotent; Upsert is.
	assert.Error(t, m.CreateWalletSchedule(ctx, testWallet, "whale one", 30*time.Second))
	require.NoError(t, m.UpsertWalletSchedule(ctx, testWallet, "whale one", time.Minute))
	interval, _ = m.GetScheduleInterval(testWallet)
	assert.Equal(t, time.Minute, interval)

	require.NoError(t, m.PauseWalletSchedule(ctx, testWallet))
	assert.True(t, m.SchedulePaused(testWallet))
	require.NoError(t, m.ResumeWalletSchedule(ctx, testWallet))
	assert.False(t, m.SchedulePaused(testWallet))

	require.NoError(t, m.DeleteWalletSchedule(ctx, testWallet))
	assert.False(t, m.ScheduleExists(testWallet))
	assert.Equal(t, 0, m.ScheduleCount())

	// Operations on a missing schedule fail.
	assert.Error(t, m.DeleteWalletSchedule(ctx, testWallet))
	assert.Error(t, m.PauseWalletSchedule(ctx, testWallet))
	assert.Error(t, m.ResumeWalletSchedule(ctx, testWallet))
}

func TestMockScheduler_InjectedErrors(t *testing.T) {
	m := NewMockScheduler()
	ctx := context.Background()

	m.SetCreateError(errors.New("temporal unavailable"))
	assert.Error(t, m.CreateWalletSchedule(ctx, testWallet, "", 30*time.Second))
	assert.Error(t, m.UpsertWalletSchedule(ctx, testWallet, "", 30*time.Second))
	assert.False(t, m.ScheduleExists(testWallet))

	m.Reset()
	require.NoError(t, m.CreateWalletSchedule(ctx, testWallet, "", 30*time.Second))

	m.SetDeleteError(errors.New("temporal unavailable"))
	assert.Error(t, m.DeleteWalletSchedule(ctx, testWallet))
	assert.True(t, m.ScheduleExists(testWallet))
}
