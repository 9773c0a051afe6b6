package realtime

import (
	"encoding/json"
	"time"
)

// Message types exchanged on a channel.
const (
	TypeAuth         = "auth"
	TypeAuthSuccess  = "auth_success"
	TypeAuthFailed   = "auth_failed"
	TypeAuthRequired = "auth_required"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeStatsUpdate  = "stats_update"
	TypeOrderUpdate  = "order_update"
)

// Message is the JSON envelope used in both directions.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Token     string          `json:"token,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// DecodeData unmarshals the data payload into out.
func (m Message) DecodeData(out any) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, out)
}

func authMessage(token string) Message {
	return Message{Type: TypeAuth, Token: token}
}

func pongMessage(now time.Time) Message {
	return Message{Type: TypePong, Timestamp: now.UTC().Format(time.RFC3339)}
}
