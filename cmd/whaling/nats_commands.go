package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rickscode/whaling/service/alert"
	natspkg "github.com/rickscode/whaling/service/nats"
	"github.com/urfave/cli/v2"
)

// subscribeCommand streams position open/close events from JetStream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to position events",
		ArgsUsage: "[wallet_address]",
		Description: `Subscribe to real-time position events published to NATS JetStream.

Events are published to the subject positions.{wallet_address}. Without a
wallet argument this streams events for every tracked wallet.

Example:
  whaling nats subscribe DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Durable consumer name (empty for ephemeral)",
			},
		},
		Action: func(c *cli.Context) error {
			subject := natspkg.StreamSubjects
			if c.NArg() == 1 {
				subject = "positions." + c.Args().First()
			}

			natsURL := c.String("nats-url")
			jsonOutput := c.Bool("json")

			nc, err := nats.Connect(natsURL, nats.Name("whaling-cli"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, jetstream.ConsumerConfig{
				Durable:       c.String("consumer-name"),
				FilterSubject: subject,
				AckPolicy:     jetstream.AckExplicitPolicy,
			})
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Subscribed to %s (ctrl-c to stop)\n\n", subject)
			}

			consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
				var event natspkg.PositionEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					fmt.Fprintf(os.Stderr, "error parsing event: %v\n", err)
					msg.Ack()
					return
				}

				if jsonOutput {
					data, _ := json.Marshal(event)
					fmt.Println(string(data))
				} else {
					printPositionEvent(&event)
				}

				msg.Ack()
			})
			if err != nil {
				return fmt.Errorf("failed to consume: %w", err)
			}
			defer consumeCtx.Stop()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			<-shutdown

			if !jsonOutput {
				fmt.Fprintln(os.Stderr, "\nDone")
			}
			return nil
		},
	}
}

func printPositionEvent(event *natspkg.PositionEvent) {
	switch event.Kind {
	case natspkg.EventPositionOpened:
		fmt.Printf("🟢 position opened\n")
	case natspkg.EventPositionClosed:
		fmt.Printf("🔴 position closed\n")
	default:
		fmt.Printf("event: %s\n", event.Kind)
	}

	fmt.Printf("   Wallet: %s\n", alert.WalletDisplay(event.WalletAddress, event.WalletLabel))
	fmt.Printf("   Token:  %s\n", event.TokenMint)
	fmt.Printf("   Buy:    $%.2f @ $%.6f\n", event.BuyValueUSD, event.BuyPriceUSD)

	if event.Kind == natspkg.EventPositionClosed {
		if event.SellValueUSD != nil && event.SellPriceUSD != nil {
			fmt.Printf("   Sell:   $%.2f @ $%.6f\n", *event.SellValueUSD, *event.SellPriceUSD)
		}
		if event.ProfitLossUSD != nil {
			fmt.Printf("   P&L:    $%.2f", *event.ProfitLossUSD)
			if event.ProfitLossPercent != nil {
				fmt.Printf(" (%.1f%%)", *event.ProfitLossPercent)
			}
			fmt.Println()
		}
		if event.HoldDurationSeconds != nil {
			fmt.Printf("   Held:   %s\n", alert.FormatHoldDuration(*event.HoldDurationSeconds))
		}
	}

	fmt.Printf("   Published: %s\n\n", event.PublishedAt.Format(time.RFC3339))
}
