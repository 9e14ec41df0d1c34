package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/rickscode/whaling/service/config"
	"github.com/urfave/cli/v2"
)

func addWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Start tracking a wallet and schedule its polling",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "Human-readable label for the wallet",
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Aliases: []string{"i"},
				Usage:   "How often to poll the wallet",
				Value:   30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			if _, err := solanago.PublicKeyFromBase58(address); err != nil {
				return fmt.Errorf("invalid wallet address %q: %w", address, err)
			}

			label := c.String("label")
			interval := c.Duration("poll-interval")

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx := context.Background()
			wallet, err := store.UpsertWallet(ctx, address, label, true)
			if err != nil {
				return fmt.Errorf("failed to register wallet: %w", err)
			}

			scheduler, err := getScheduler(c)
			if err != nil {
				return err
			}
			defer scheduler.Close()

			if err := scheduler.UpsertWalletSchedule(ctx, address, label, interval); err != nil {
				return fmt.Errorf("wallet registered but schedule creation failed: %w", err)
			}

			fmt.Printf("✓ Tracking wallet: %s\n", wallet.Address)
			if wallet.Label != "" {
				fmt.Printf("  Label: %s\n", wallet.Label)
			}
			fmt.Printf("  Poll interval: %v\n", interval)
			return nil
		},
	}
}

func removeWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Stop tracking a wallet and delete its schedule (positions are retained)",
		ArgsUsage: "<address>",
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
				fmt.Printf("Stop tracking wallet %s? (yes/no): ", address)
				var response string
				fmt.Scanln(&response)
				if response != "yes" {
					fmt.Println("Cancelled")
					return nil
				}
			}

			ctx := context.Background()

			scheduler, err := getScheduler(c)
			if err != nil {
				return err
			}
			defer scheduler.Close()

			if err := scheduler.DeleteWalletSchedule(ctx, address); err != nil {
				// The schedule may never have existed; the wallet row is the
				// source of truth, so carry on.
				fmt.Fprintf(os.Stderr, "warning: failed to delete schedule: %v\n", err)
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.DeleteWallet(ctx, address); err != nil {
				return fmt.Errorf("failed to delete wallet: %w", err)
			}

			fmt.Printf("✓ Stopped tracking wallet: %s\n", address)
			return nil
		},
	}
}

func listWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List all tracked wallets",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "active",
				Usage: "Show only active wallets",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx := context.Background()
			wallets, err := store.ListWallets(ctx)
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}

			if c.Bool("active") {
				filtered := wallets[:0]
				for _, w := range wallets {
					if w.Active {
						filtered = append(filtered, w)
					}
				}
				wallets = filtered
			}

			if c.Bool("json") {
				return outputJSON(wallets)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tLABEL\tACTIVE\tLAST POLL\tCREATED")
			for _, wallet := range wallets {
				lastPoll := "never"
				if wallet.LastPollTime != nil {
					lastPoll = wallet.LastPollTime.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
					wallet.Address,
					wallet.Label,
					wallet.Active,
					lastPoll,
					wallet.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d wallets\n", len(wallets))
			return nil
		},
	}
}

func activateWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "activate",
		Usage:     "Activate a wallet and resume its poll schedule",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			return setWalletActive(c, true)
		},
	}
}

func deactivateWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "deactivate",
		Usage:     "Deactivate a wallet and pause its poll schedule",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			return setWalletActive(c, false)
		},
	}
}

func setWalletActive(c *cli.Context, active bool) error {
	if c.NArg() != 1 {
		return fmt.Errorf("requires exactly one argument: wallet address")
	}

	address := c.Args().First()
	ctx := context.Background()

	store, closer, err := getStore(c)
	if err != nil {
		return err
	}
	defer closer()

	wallet, err := store.SetWalletActive(ctx, address, active)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	scheduler, err := getScheduler(c)
	if err != nil {
		return err
	}
	defer scheduler.Close()

	if active {
		if err := scheduler.ResumeWalletSchedule(ctx, address); err != nil {
			return fmt.Errorf("wallet activated but schedule resume failed: %w", err)
		}
		fmt.Printf("✓ Wallet activated: %s\n", wallet.Address)
	} else {
		if err := scheduler.PauseWalletSchedule(ctx, address); err != nil {
			return fmt.Errorf("wallet deactivated but schedule pause failed: %w", err)
		}
		fmt.Printf("✓ Wallet deactivated: %s\n", wallet.Address)
	}

	return nil
}

func seedWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Register all wallets from the TRACKED_WALLETS environment variable",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "poll-interval",
				Aliases: []string{"i"},
				Usage:   "Poll interval for created schedules",
				Value:   30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			seedList, err := config.ParseTrackedWallets(os.Getenv("TRACKED_WALLETS"))
			if err != nil {
				return err
			}
			if len(seedList) == 0 {
				return fmt.Errorf("TRACKED_WALLETS is empty, nothing to seed")
			}

			interval := c.Duration("poll-interval")

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
			for _, tw := range seedList {
				if _, err := solanago.PublicKeyFromBase58(tw.Address); err != nil {
					return fmt.Errorf("invalid wallet address %q: %w", tw.Address, err)
				}

				if _, err := store.UpsertWallet(ctx, tw.Address, tw.Label, true); err != nil {
					return fmt.Errorf("failed to register wallet %s: %w", tw.Address, err)
				}
				if err := scheduler.UpsertWalletSchedule(ctx, tw.Address, tw.Label, interval); err != nil {
					return fmt.Errorf("failed to schedule wallet %s: %w", tw.Address, err)
				}

				fmt.Printf("✓ %s", tw.Address)
				if tw.Label != "" {
					fmt.Printf(" (%s)", tw.Label)
				}
				fmt.Println()
			}

			fmt.Fprintf(os.Stderr, "\nSeeded %d wallets\n", len(seedList))
			return nil
		},
	}
}
