package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/itchyny/gojq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rickscode/whaling/service/alert"
	"github.com/rickscode/whaling/service/db"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the database schema (idempotent)",
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println("✓ Schema applied")
			return nil
		},
	}
}

func listPositionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "positions",
		Usage:   "List positions from the ledger",
		Aliases: []string{"pos"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "wallet",
				Aliases: []string{"w"},
				Usage:   "Filter by wallet address",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Show only open positions",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of positions",
				Value:   50,
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Aliases: []string{"jq"},
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			positions, err := store.ListPositions(context.Background(), db.ListPositionsParams{
				WalletAddress: c.String("wallet"),
				OpenOnly:      c.Bool("open"),
				Limit:         int32(c.Int("limit")),
			})
			if err != nil {
				return fmt.Errorf("failed to list positions: %w", err)
			}

			positions, err = applyJQFilters(positions, c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(positions)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWALLET\tTOKEN\tSTATE\tBUY VALUE\tP&L USD\tP&L %\tHELD")
			for _, p := range positions {
				state := "open"
				if !p.IsOpen {
					state = "closed"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t$%.2f\t%s\t%s\t%s\n",
					p.ID,
					alert.ShortAddress(p.WalletAddress),
					alert.ShortAddress(p.TokenMint),
					state,
					p.BuyValueUSD,
					formatOptionalUSD(p.ProfitLossUSD),
					formatOptionalPercent(p.ProfitLossPercent),
					formatOptionalHold(p.HoldDurationSeconds),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d positions\n", len(positions))
			return nil
		},
	}
}

func positionStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize the position ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "wallet",
				Aliases: []string{"w"},
				Usage:   "Filter by wallet address",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			positions, err := store.ListPositions(context.Background(), db.ListPositionsParams{
				WalletAddress: c.String("wallet"),
				Limit:         10000,
			})
			if err != nil {
				return fmt.Errorf("failed to list positions: %w", err)
			}

			var (
				open, closed, wins, losses int
				totalPnL                   float64
				totalHoldSeconds           int64
			)
			for _, p := range positions {
				if p.IsOpen {
					open++
					continue
				}
				closed++
				if p.ProfitLossUSD != nil {
					totalPnL += *p.ProfitLossUSD
					if *p.ProfitLossUSD >= 0 {
						wins++
					} else {
						losses++
					}
				}
				if p.HoldDurationSeconds != nil {
					totalHoldSeconds += *p.HoldDurationSeconds
				}
			}

			if c.Bool("json") {
				return outputJSON(map[string]any{
					"open":          open,
					"closed":        closed,
					"wins":          wins,
					"losses":        losses,
					"total_pnl_usd": totalPnL,
				})
			}

			fmt.Printf("Open positions:   %d\n", open)
			fmt.Printf("Closed positions: %d\n", closed)
			fmt.Printf("Wins / Losses:    %d / %d\n", wins, losses)
			fmt.Printf("Total P&L:        $%.2f\n", totalPnL)
			if closed > 0 {
				avgHold := totalHoldSeconds / int64(closed)
				fmt.Printf("Avg hold:         %s\n", alert.FormatHoldDuration(avgHold))
			}
			return nil
		},
	}
}

// applyJQFilters keeps the positions for which every compiled jq expression
// evaluates truthy against the position's JSON form.
func applyJQFilters(positions []*db.Position, filters []string) ([]*db.Position, error) {
	if len(filters) == 0 {
		return positions, nil
	}

	compiled := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}

	var kept []*db.Position
	for _, p := range positions {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal position %d: %w", p.ID, err)
		}
		var doc interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal position %d: %w", p.ID, err)
		}

		matched := true
		for _, code := range compiled {
			iter := code.Run(doc)
			v, ok := iter.Next()
			if !ok {
				matched = false
				break
			}
			if _, isErr := v.(error); isErr {
				matched = false
				break
			}
			if !isTruthy(v) {
				matched = false
				break
			}
		}
		if matched {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// isTruthy follows jq semantics: everything but false and null is true.
func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}

// getStore connects to the database using the global --database-url flag.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db.NewStore(pool), func() { pool.Close() }, nil
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatOptionalUSD(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func formatOptionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func formatOptionalHold(seconds *int64) string {
	if seconds == nil {
		return "-"
	}
	return alert.FormatHoldDuration(*seconds)
}
