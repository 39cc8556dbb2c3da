package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Event string

const (
	EventChatMessage Event = "chat.message"
)

// Envelope is what travels between relay, bus and hub. Only Data is written
// to the websocket.
type Envelope struct {
	Channel string          `json:"channel"`
	Event   Event           `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// MemberChannel is the single channel a member's connections listen on.
// Nothing else subscribes to it, so publishing to it reaches only that
// member.
func MemberChannel(raffleID, memberID uuid.UUID) string {
	return fmt.Sprintf("raffle:%s:member:%s", raffleID, memberID)
}

func NewEnvelope(channel string, event Event, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Channel: channel, Event: event, Data: raw}, nil
}
