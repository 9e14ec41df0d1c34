package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rickscode/whaling/service/temporal"
	"github.com/urfave/cli/v2"
)

func listSchedulesCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-schedules",
		Usage:   "List wallet poll schedules",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			scheduler, err := getScheduler(c)
			if err != nil {
				return err
			}
			defer scheduler.Close()

			schedules, err := scheduler.ListWalletSchedules(context.Background())
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(schedules)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCHEDULE ID\tWALLET\tPAUSED")
			for _, s := range schedules {
				fmt.Fprintf(w, "%s\t%s\t%v\n", s.ScheduleID, s.WalletAddress, s.Paused)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d schedules\n", len(schedules))
			return nil
		},
	}
}

func pauseScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "pause-schedule",
		Usage:     "Pause a wallet's poll schedule",
		ArgsUsage: "<wallet-address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			scheduler, err := getScheduler(c)
			if err != nil {
				return err
			}
			defer scheduler.Close()

			if err := scheduler.PauseWalletSchedule(context.Background(), address); err != nil {
				return err
			}

			fmt.Printf("✓ Schedule paused for wallet: %s\n", address)
			return nil
		},
	}
}

func resumeScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "resume-schedule",
		Usage:     "Resume a paused wallet poll schedule",
		ArgsUsage: "<wallet-address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			scheduler, err := getScheduler(c)
			if err != nil {
				return err
			}
			defer scheduler.Close()

			if err := scheduler.ResumeWalletSchedule(context.Background(), address); err != nil {
				return err
			}

			fmt.Printf("✓ Schedule resumed for wallet: %s\n", address)
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-schedule",
		Usage:     "Delete a wallet's poll schedule (use for orphaned schedules)",
		ArgsUsage: "<wallet-address>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Skip confirmation prompt",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()

			if !c.Bool("force") {
				fmt.Printf("Delete poll schedule for wallet %s? (yes/no): ", address)
				var response string
				fmt.Scanln(&response)
				if response != "yes" {
					fmt.Println("Cancelled")
					return nil
				}
			}

			scheduler, err := getScheduler(c)
			if err != nil {
				return err
			}
			defer scheduler.Close()

			if err := scheduler.DeleteWalletSchedule(context.Background(), address); err != nil {
				return err
			}

			fmt.Printf("✓ Schedule deleted for wallet: %s\n", address)
			return nil
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Check for inconsistencies between the wallets table and Temporal schedules",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fix",
				Usage: "Automatically fix inconsistencies (creates missing schedules, deletes orphaned ones)",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "Poll interval for created schedules",
				Value: 30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			scheduler, err := getScheduler(c)
			if err != nil {
				return err
			}
			defer scheduler.Close()

			ctx := context.Background()

			wallets, err := store.ListWallets(ctx)
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}

			schedules, err := scheduler.ListWalletSchedules(ctx)
			if err != nil {
				return err
			}

			scheduled := make(map[string]bool, len(schedules))
			for _, s := range schedules {
				scheduled[s.WalletAddress] = true
			}

			tracked := make(map[string]string, len(wallets)) // address -> label
			var missing []string
			for _, w := range wallets {
				if !w.Active {
					continue
				}
				tracked[w.Address] = w.Label
				if !scheduled[w.Address] {
					missing = append(missing, w.Address)
				}
			}

			var orphaned []string
			for _, s := range schedules {
				if _, ok := tracked[s.WalletAddress]; !ok {
					orphaned = append(orphaned, s.WalletAddress)
				}
			}

			if len(missing) == 0 && len(orphaned) == 0 {
				fmt.Println("✓ Wallets and schedules are consistent")
				return nil
			}

			for _, address := range missing {
				fmt.Printf("missing schedule: %s\n", address)
			}
			for _, address := range orphaned {
				fmt.Printf("orphaned schedule: %s\n", address)
			}

			if !c.Bool("fix") {
				fmt.Fprintln(os.Stderr, "\nRun with --fix to repair")
				return nil
			}

			interval := c.Duration("poll-interval")
			for _, address := range missing {
				if err := scheduler.CreateWalletSchedule(ctx, address, tracked[address], interval); err != nil {
					return fmt.Errorf("failed to create schedule for %s: %w", address, err)
				}
				fmt.Printf("✓ Created schedule: %s\n", address)
			}
			for _, address := range orphaned {
				if err := scheduler.DeleteWalletSchedule(ctx, address); err != nil {
					return fmt.Errorf("failed to delete schedule for %s: %w", address, err)
				}
				fmt.Printf("✓ Deleted orphaned schedule: %s\n", address)
			}

			return nil
		},
	}
}

// getScheduler connects to Temporal using the global flags.
func getScheduler(c *cli.Context) (*temporal.Client, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))

	return temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("task-queue"),
		logger,
	)
}
