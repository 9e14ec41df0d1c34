package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler is a mock implementation of Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]time.Duration // map[scheduleID]interval
	paused    map[string]bool
	createErr error
	deleteErr error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]time.Duration),
		paused:    make(map[string]bool),
	}
}

// CreateWalletSchedule records that a schedule was created.
func (m *MockScheduler) CreateWalletSchedule(ctx context.Context, address, label string, interval time.Duration) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(address)
	if _, exists := m.schedules[id]; exists {
		return fmt.Errorf("schedule %q already exists", id)
	}
	m.schedules[id] = interval
	return nil
}

// UpsertWalletSchedule creates or updates a schedule.
func (m *MockScheduler) UpsertWalletSchedule(ctx context.Context, address, label string, interval time.Duration) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules[scheduleID(address)] = interval
	return nil
}

// DeleteWalletSchedule records that a schedule was deleted.
func (m *MockScheduler) DeleteWalletSchedule(ctx context.Context, address string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(address)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}

	delete(m.schedules, id)
	delete(m.paused, id)
	return nil
}

// PauseWalletSchedule marks a schedule paused.
func (m *MockScheduler) PauseWalletSchedule(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(address)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	m.paused[id] = true
	return nil
}

// ResumeWalletSchedule clears a schedule's paused flag.
func (m *MockScheduler) ResumeWalletSchedule(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(address)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	m.paused[id] = false
	return nil
}

// SetCreateError makes schedule creation return an error.
func (m *MockScheduler) SetCreateError(err error) {
	m.createErr = err
}

// SetDeleteError makes schedule deletion return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.deleteErr = err
}

// ScheduleExists checks if a schedule exists for a wallet.
func (m *MockScheduler) ScheduleExists(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.schedules[scheduleID(address)]
	return exists
}

// SchedulePaused reports whether a wallet's schedule is paused.
func (m *MockScheduler) SchedulePaused(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused[scheduleID(address)]
}

// GetScheduleInterval returns the interval for a wallet's schedule.
func (m *MockScheduler) GetScheduleInterval(address string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	interval, exists := m.schedules[scheduleID(address)]
	return interval, exists
}

// ScheduleCount returns the number of schedules.
func (m *MockScheduler) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}

// Reset clears all schedules and errors.
func (m *MockScheduler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = make(map[string]time.Duration)
	m.paused = make(map[string]bool)
	m.createErr = nil
	m.deleteErr = nil
}
