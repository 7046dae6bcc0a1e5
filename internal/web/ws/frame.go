package ws

import (
	"encoding/json"

	"github.com/mcoot/blockbattle/internal/gateway"
	"github.com/mcoot/blockbattle/internal/model"
)

// FrameAck is the type of the frame answering a client intent
const FrameAck = "ack"

// Inbound is a client frame: an intent name, an optional correlation id
// echoed back in the ack, and the intent's payload
type Inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Outbound is a server frame: either an event or an ack
type Outbound struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func encodeEvent(event model.EventType, payload any) ([]byte, error) {
	return json.Marshal(Outbound{Type: string(event), Data: payload})
}

func encodeAck(requestID string, reply *gateway.Reply) ([]byte, error) {
	return json.Marshal(Outbound{Type: FrameAck, RequestID: requestID, Data: reply})
}

// FrameConnected is the first frame on every connection
const FrameConnected = "connected"

// ConnectedPayload tells the client who the server thinks it is
type ConnectedPayload struct {
	ConnectionID model.ConnectionID `json:"connectionId"`
	PlayerID     model.PlayerID     `json:"playerId"`
	Nickname     string             `json:"nickname"`
}

func encodeConnected(sess gateway.Session) ([]byte, error) {
	return json.Marshal(Outbound{
		Type: FrameConnected,
		Data: ConnectedPayload{
			ConnectionID: sess.ConnectionID,
			PlayerID:     sess.PlayerID,
			Nickname:     sess.Nickname,
		},
	})
}
