package ws

import "time"

// Config holds websocket transport settings
type Config struct {
	// SendBufferSize is the number of frames queued per connection before
	// the connection is considered too slow and closed
	SendBufferSize int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration // must be less than PongWait
	MaxMessageSize int64

	// AllowedOrigins restricts browser origins; empty allows any
	AllowedOrigins []string
}

// DefaultConfig returns default websocket settings
func DefaultConfig() Config {
	return Config{
		SendBufferSize: 256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	return c
}
