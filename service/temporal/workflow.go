package temporal

import (
	"fmt"
	"time"

	"github.com/rickscode/whaling/service/tracker"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// PollWalletWorkflow is the Temporal workflow that polls one tracked wallet.
// It is triggered by a per-wallet schedule at the configured interval.
//
// The workflow performs two steps:
// 1. Fetch recent transaction history (FetchTransactions activity)
// 2. Run the batch through the pipeline (ProcessTransactions activity)
//
// Retries of the processing step are safe: the durable signature ledger makes
// every transaction effect idempotent.
func PollWalletWorkflow(ctx workflow.Context, input PollWalletInput) (*PollWalletResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("PollWalletWorkflow started", "address", input.WalletAddress)

	result := &PollWalletResult{
		Address:  input.WalletAddress,
		PollTime: workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 120 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var fetchResult *FetchTransactionsResult
	err := workflow.ExecuteActivity(ctx, a.FetchTransactions, FetchTransactionsInput{
		WalletAddress: input.WalletAddress,
		Limit:         input.FetchLimit,
	}).Get(ctx, &fetchResult)
	if err != nil {
		logger.Error("failed to fetch transactions", "address", input.WalletAddress, "error", err)
		errMsg := fmt.Sprintf("failed to fetch transactions: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	result.Fetched = len(fetchResult.Transactions)

	if len(fetchResult.Transactions) == 0 {
		logger.Info("no transactions fetched", "address", input.WalletAddress)
		return result, nil
	}

	var processResult *tracker.PollResult
	err = workflow.ExecuteActivity(ctx, a.ProcessTransactions, ProcessTransactionsInput{
		WalletAddress: input.WalletAddress,
		WalletLabel:   input.WalletLabel,
		Transactions:  fetchResult.Transactions,
	}).Get(ctx, &processResult)
	if err != nil {
		logger.Error("failed to process transactions", "address", input.WalletAddress, "error", err)
		errMsg := fmt.Sprintf("failed to process transactions: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to process transactions: %w", err)
	}

	result.New = processResult.New
	result.Processed = processResult.Processed
	result.Opened = processResult.Opened
	result.Closed = processResult.Closed
	result.Notified = processResult.Notified

	logger.Info("PollWalletWorkflow completed successfully",
		"address", input.WalletAddress,
		"fetched", result.Fetched,
		"new", result.New,
		"processed", result.Processed,
		"opened", result.Opened,
		"closed", result.Closed,
		"notified", result.Notified,
	)

	return result, nil
}
