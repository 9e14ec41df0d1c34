package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "whaling",
		Usage: "Whale wallet tracking service CLI",
		Description: `A command-line tool for managing and debugging the whaling service.

Use this CLI to manage tracked wallets, inspect the position ledger, view
Temporal schedules, and stream position events from NATS.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Tracked wallet management
			{
				Name:  "wallet",
				Usage: "Tracked wallet management commands",
				Subcommands: []*cli.Command{
					addWalletCommand(),
					removeWalletCommand(),
					listWalletsCommand(),
					activateWalletCommand(),
					deactivateWalletCommand(),
					seedWalletsCommand(),
				},
			},
			// Database inspection commands
			{
				Name:  "db",
				Usage: "Database commands",
				Subcommands: []*cli.Command{
					migrateCommand(),
					listPositionsCommand(),
					positionStatsCommand(),
				},
			},
			// Temporal schedule management
			{
				Name:  "temporal",
				Usage: "Temporal schedule management commands",
				Subcommands: []*cli.Command{
					listSchedulesCommand(),
					pauseScheduleCommand(),
					resumeScheduleCommand(),
					deleteScheduleCommand(),
					reconcileCommand(),
				},
			},
			// NATS position event streaming
			{
				Name:  "nats",
				Usage: "NATS position event streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "task-queue",
				Usage:   "Temporal task queue",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "whaling-wallet-polling",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
