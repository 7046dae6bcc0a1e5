package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/model"
)

// Dispatcher runs client intents and cleans up after dropped connections
type Dispatcher interface {
	Dispatch(ctx context.Context, sess gateway.Session, intent gateway.Intent, data json.RawMessage) *gateway.Reply
	Disconnect(ctx context.Context, sess gateway.Session)
}

// Client is one websocket connection
type Client struct {
	conn    *websocket.Conn
	session gateway.Session
	cfg     Config
	logger  *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	connOnce sync.Once
}

func newClient(conn *websocket.Conn, session gateway.Session, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		conn:    conn,
		session: session,
		cfg:     cfg,
		logger: logger.With(
			slog.String("connection_id", string(session.ConnectionID)),
			slog.String("player_id", string(session.PlayerID)),
		),
		send: make(chan []byte, cfg.SendBufferSize),
	}
}

// Session returns the identity bound to this connection
func (c *Client) Session() gateway.Session {
	return c.session
}

// enqueue queues a frame without blocking. It returns false when the
// buffer is full. Frames for an already closed client are discarded.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) closeConn() {
	c.connOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump reads frames until the connection fails and hands each one to
// the dispatcher. Acks are queued behind any events the intent published.
func (c *Client) readPump(ctx context.Context, dispatcher Dispatcher) {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("ws read failed", slog.Any("error", err))
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			c.ack(in.RequestID, &gateway.Reply{
				Error: &gateway.ReplyError{Code: model.CodeInvalidRequest, Message: "malformed frame"},
			})
			continue
		}

		reply := dispatcher.Dispatch(ctx, c.session, gateway.Intent(in.Type), in.Data)
		c.ack(in.RequestID, reply)
	}
}

func (c *Client) ack(requestID string, reply *gateway.Reply) {
	msg, err := encodeAck(requestID, reply)
	if err != nil {
		c.logger.Error("failed to encode ack", slog.Any("error", err))
		return
	}
	if !c.enqueue(msg) {
		c.logger.Warn("ws client too slow, dropping ack")
		c.closeConn()
	}
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with pings. It closes the connection on exit.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends one frame per text message so every frame stays valid JSON
func (c *Client) write(msg []byte) error {
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug("ws write failed", slog.Any("error", err))
		}
		return err
	}
	return nil
}
