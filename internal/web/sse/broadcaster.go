package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/model"
)

// Broadcaster relays global gateway events to the SSE lobby feed
type Broadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

// Ensure Broadcaster can be handed to the gateway as a feed
var _ gateway.Feed = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		logger: logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// PublishGlobal encodes the payload as JSON and broadcasts it under the
// event's name
func (b *Broadcaster) PublishGlobal(event model.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("event", string(event)),
			slog.Any("error", err))
		return
	}
	b.hub.BroadcastEvent(string(event), string(data))
}

// RoomListSnapshot returns a Snapshot that renders the current room list
func RoomListSnapshot(list func() []model.RoomSummary) Snapshot {
	return func() (string, string) {
		data, err := json.Marshal(model.NewRoomListUpdated(list()))
		if err != nil {
			return string(model.EventRoomListUpdated), `{"rooms":[]}`
		}
		return string(model.EventRoomListUpdated), string(data)
	}
}
