package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/blockbattle/internal/model"
)

// NATSConfig holds NATS publisher settings
type NATSConfig struct {
	URL     string
	Subject string
}

// DefaultNATSConfig returns default NATS settings
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:     nats.DefaultURL,
		Subject: DefaultGameFinishedSubject,
	}
}

// natsConn is the part of *nats.Conn the publisher needs
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events over core NATS
type NATSPublisher struct {
	conn    natsConn
	subject string
	logger  *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to NATS. The connection reconnects forever in
// the background, so a broker restart does not need a server restart.
func NewNATSPublisher(cfg NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logger.With(slog.String("component", "nats"))

	conn, err := nats.Connect(cfg.URL,
		nats.Name("blockbattle"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return newNATSPublisher(conn, cfg, logger), nil
}

func newNATSPublisher(conn natsConn, cfg NATSConfig, logger *slog.Logger) *NATSPublisher {
	if cfg.Subject == "" {
		cfg.Subject = DefaultGameFinishedSubject
	}
	return &NATSPublisher{
		conn:    conn,
		subject: cfg.Subject,
		logger:  logger,
	}
}

// PublishGameFinished publishes the result as JSON
func (p *NATSPublisher) PublishGameFinished(ctx context.Context, result model.GameResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode game result: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish game result: %w", err)
	}

	p.logger.Debug("game result published",
		slog.String("subject", p.subject),
		slog.String("room_id", string(result.RoomID)),
	)
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
