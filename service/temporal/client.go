package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// CreateWalletSchedule creates a new Temporal schedule that triggers the
// PollWalletWorkflow on the given interval.
func (c *Client) CreateWalletSchedule(ctx context.Context, address, label string, interval time.Duration) error {
	id := scheduleID(address)

	c.logger.Debug("creating wallet schedule",
		"address", address,
		"schedule_id", id,
		"interval", interval,
	)

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{
				{Every: interval},
			},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "poll-wallet-" + address,
			Workflow:  "PollWalletWorkflow",
			TaskQueue: c.taskQueue,
			Args: []interface{}{PollWalletInput{
				WalletAddress: address,
				WalletLabel:   label,
			}},
		},
		// Poll cycles for the same wallet must not overlap; a long cycle
		// simply skips the next trigger.
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Memo: map[string]interface{}{
			"wallet_address": address,
			"wallet_label":   label,
			"created_by":     "whaling",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"address", address,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("wallet schedule created",
		"address", address,
		"schedule_id", id,
		"interval", interval,
	)

	return nil
}

// UpsertWalletSchedule creates the schedule for a wallet, or updates its poll
// interval if it already exists.
func (c *Client) UpsertWalletSchedule(ctx context.Context, address, label string, interval time.Duration) error {
	id := scheduleID(address)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if _, err := handle.Describe(ctx); err != nil {
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", id,
			"error", err,
		)
		return c.CreateWalletSchedule(ctx, address, label, interval)
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: interval},
			}
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("wallet schedule updated",
		"address", address,
		"schedule_id", id,
		"interval", interval,
	)

	return nil
}

// DeleteWalletSchedule deletes the Temporal schedule for a wallet.
func (c *Client) DeleteWalletSchedule(ctx context.Context, address string) error {
	id := scheduleID(address)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("wallet schedule deleted", "address", address, "schedule_id", id)
	return nil
}

// PauseWalletSchedule pauses a wallet's poll schedule.
func (c *Client) PauseWalletSchedule(ctx context.Context, address string) error {
	id := scheduleID(address)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Pause(ctx, client.SchedulePauseOptions{Note: "paused by whaling"}); err != nil {
		return fmt.Errorf("failed to pause schedule %q: %w", id, err)
	}

	c.logger.Info("wallet schedule paused", "address", address, "schedule_id", id)
	return nil
}

// ResumeWalletSchedule resumes a paused wallet poll schedule.
func (c *Client) ResumeWalletSchedule(ctx context.Context, address string) error {
	id := scheduleID(address)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Unpause(ctx, client.ScheduleUnpauseOptions{Note: "resumed by whaling"}); err != nil {
		return fmt.Errorf("failed to resume schedule %q: %w", id, err)
	}

	c.logger.Info("wallet schedule resumed", "address", address, "schedule_id", id)
	return nil
}

// WalletSchedule describes one poll schedule, as listed from Temporal.
type WalletSchedule struct {
	ScheduleID    string `json:"schedule_id"`
	WalletAddress string `json:"wallet_address"`
	Paused        bool   `json:"paused"`
}

// ListWalletSchedules lists the poll schedules this service created.
func (c *Client) ListWalletSchedules(ctx context.Context) ([]WalletSchedule, error) {
	iter, err := c.client.ScheduleClient().List(ctx, client.ScheduleListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	var schedules []WalletSchedule
	for iter.HasNext() {
		entry, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate schedules: %w", err)
		}
		const prefix = "poll-wallet-"
		if len(entry.ID) <= len(prefix) || entry.ID[:len(prefix)] != prefix {
			continue
		}
		schedules = append(schedules, WalletSchedule{
			ScheduleID:    entry.ID,
			WalletAddress: entry.ID[len(prefix):],
			Paused:        entry.Paused,
		})
	}
	return schedules, nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow
// operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
