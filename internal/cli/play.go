package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const (
	playWriteWait  = 10 * time.Second
	playAckTimeout = 5 * time.Second
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Open an interactive websocket session",
		Long: `Connect to the server's websocket and send intents typed on stdin.

Each input line is an intent name optionally followed by a JSON payload:

  createRoom {"title":"Friday","maxPlayers":4}
  joinRoom {"roomId":"<id>"}
  toggleReady {"roomId":"<id>"}
  startGame {"roomId":"<id>"}
  updateGameState {"roomId":"<id>","score":100,"level":1,"linesCleared":0}
  attack {"roomId":"<id>","linesCleared":2}
  gameOver {"roomId":"<id>"}
  sendChatMessage {"roomId":"<id>","message":"gg"}
  getRoomList

Every frame the server sends is printed. Type "quit" or press Ctrl+D to
disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("not logged in: run 'bbattle player guest' first")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runPlay(ctx, os.Stdin, NewOutput(cfg.Output))
		},
	}
}

// wsFrame mirrors the server's websocket envelope
type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func runPlay(ctx context.Context, in io.Reader, out *Output) error {
	conn, err := client.Dial(ctx, "/ws")
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	defer close(done)

	acks := make(chan struct{})
	readDone := make(chan error, 1)
	go func() {
		readDone <- readFrames(conn, out, acks, done)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	sent, acked := 0, 0
	for {
		select {
		case <-ctx.Done():
			closeWebSocket(conn)
			return nil

		case err := <-readDone:
			return err

		case <-acks:
			acked++

		case line, ok := <-lines:
			if !ok || isQuit(line) {
				waitForAcks(acks, readDone, sent-acked)
				closeWebSocket(conn)
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}

			frame, err := parseIntentLine(line, sent+1)
			if err != nil {
				out.PrintError(err)
				continue
			}

			data, err := json.Marshal(frame)
			if err != nil {
				return fmt.Errorf("failed to encode frame: %w", err)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(playWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
			sent++
		}
	}
}

// waitForAcks lets the replies to intents already sent arrive before the
// session is closed
func waitForAcks(acks <-chan struct{}, readDone <-chan error, pending int) {
	timeout := time.After(playAckTimeout)
	for pending > 0 {
		select {
		case <-acks:
			pending--
		case <-readDone:
			return
		case <-timeout:
			return
		}
	}
}

// parseIntentLine turns "<intent> [json]" into an outbound frame
func parseIntentLine(line string, seq int) (wsFrame, error) {
	line = strings.TrimSpace(line)
	intent, payload, _ := strings.Cut(line, " ")
	if intent == "" {
		return wsFrame{}, errors.New("missing intent")
	}

	frame := wsFrame{Type: intent, RequestID: strconv.Itoa(seq)}
	payload = strings.TrimSpace(payload)
	if payload != "" {
		if !json.Valid([]byte(payload)) {
			return wsFrame{}, fmt.Errorf("payload for %s is not valid JSON", intent)
		}
		frame.Data = json.RawMessage(payload)
	}
	return frame, nil
}

func isQuit(line string) bool {
	switch strings.TrimSpace(line) {
	case "quit", "exit":
		return true
	}
	return false
}

func readFrames(conn *websocket.Conn, out *Output, acks chan<- struct{}, done <-chan struct{}) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			out.PrintError(fmt.Errorf("unreadable frame: %s", string(data)))
			continue
		}
		printFrame(out, frame)

		if frame.Type == "ack" {
			select {
			case acks <- struct{}{}:
			case <-done:
				return nil
			}
		}
	}
}

func printFrame(out *Output, frame wsFrame) {
	if out.format == "json" {
		line, _ := json.Marshal(frame)
		fmt.Println(string(line))
		return
	}

	timestamp := time.Now().Format("15:04:05")
	if frame.RequestID != "" {
		fmt.Printf("[%s] %s #%s: %s\n", timestamp, frame.Type, frame.RequestID, string(frame.Data))
		return
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, frame.Type, string(frame.Data))
}

func closeWebSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(playWriteWait))
}
