package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"harmony-api/internal/pkg/logger"
	"harmony-api/pkg/events"
	pktNats "harmony-api/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var eventsNatsURL string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow cache snapshot events",
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsNatsURL, "nats", "nats://localhost:4222", "NATS server URL")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := pktNats.NewSubscriber(eventsNatsURL, logger.NewConsoleLogger())
	if err != nil {
		return err
	}
	defer sub.Close()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	out := cmd.OutOrStdout()

	err = sub.Subscribe(ctx, pktNats.SubjectPrefix+".>", "", func(ctx context.Context, event events.Event) error {
		stamp := gray(event.Timestamp().Format("2006-01-02 15:04:05"))
		snapshot, ok := events.ParseSnapshotEvent(event)
		if !ok {
			fmt.Fprintf(out, "%s %s %s %v\n", stamp, gray("•"), event.EventType(), event.Payload())
			return nil
		}

		icon := green("✓")
		if snapshot.Type == events.CacheSnapshotFailed {
			icon = red("✗")
		}
		fmt.Fprintf(out, "%s %s %-24s cache=%s entries=%d duration=%s\n",
			stamp, icon, snapshot.Type, snapshot.Cache, snapshot.Entries, snapshot.Duration)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Listening on %s (Ctrl+C to stop)\n", eventsNatsURL)
	<-ctx.Done()
	return nil
}
