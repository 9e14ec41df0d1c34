package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for wallet polling.
// Each tracked wallet gets its own schedule that triggers the
// PollWalletWorkflow on the configured interval.
type Scheduler interface {
	// CreateWalletSchedule creates a new poll schedule for a wallet.
	CreateWalletSchedule(ctx context.Context, address, label string, interval time.Duration) error

	// UpsertWalletSchedule creates the schedule or updates its interval if it
	// already exists.
	UpsertWalletSchedule(ctx context.Context, address, label string, interval time.Duration) error

	// DeleteWalletSchedule removes the schedule, stopping polling.
	DeleteWalletSchedule(ctx context.Context, address string) error

	// PauseWalletSchedule pauses the schedule without deleting it.
	PauseWalletSchedule(ctx context.Context, address string) error

	// ResumeWalletSchedule resumes a paused schedule.
	ResumeWalletSchedule(ctx context.Context, address string) error
}

// scheduleID returns the Temporal schedule ID for a wallet address.
func scheduleID(address string) string {
	return "poll-wallet-" + address
}
