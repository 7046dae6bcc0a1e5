package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const eventPreviewLength = 100

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream the room list feed",
		Long: `Follow the server's room feed over server-sent events.

The stream opens with "connected", then a roomListUpdated snapshot, then a
roomListUpdated each time a room is created, filled, started or closed.

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			body, err := client.Stream(ctx, "/api/v1/rooms/events")
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			out := NewOutput(cfg.Output)
			err = readEvents(body, func(e feedEvent) { printFeedEvent(out, e) })
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

// feedEvent is one dispatched server-sent event
type feedEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readEvents calls emit for every complete event in r until r ends.
// Multi-line data fields are joined with newlines; comments are skipped.
func readEvents(r io.Reader, emit func(feedEvent)) error {
	scanner := bufio.NewScanner(r)
	var name string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name != "" {
				emit(feedEvent{Time: time.Now(), Event: name, Data: json.RawMessage(strings.Join(data, "\n"))})
			}
			name, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

func printFeedEvent(out *Output, e feedEvent) {
	if out.format == "json" {
		if !json.Valid(e.Data) {
			e.Data, _ = json.Marshal(string(e.Data))
		}
		line, _ := json.Marshal(e)
		fmt.Println(string(line))
		return
	}

	preview := strings.ReplaceAll(string(e.Data), "\n", " ")
	if len(preview) > eventPreviewLength {
		preview = preview[:eventPreviewLength] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", e.Time.Format("15:04:05"), e.Event, preview)
}
