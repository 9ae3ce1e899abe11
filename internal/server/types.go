// Package server defines the JSON wire format exchanged with clients, the
// decoded command and event types, and small shared helpers.
package server

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CommandType names an inbound operation.
type CommandType string

// Inbound command types.
const (
	CommandCreate CommandType = "create"
	CommandJoin   CommandType = "join"
	CommandChat   CommandType = "chat"
)

// EventType names an outbound event.
type EventType string

// Outbound event types.
const (
	EventError   EventType = "error"
	EventSuccess EventType = "success"
	EventInfo    EventType = "info"
	EventChat    EventType = "chat"
)

// InboundFrame is the JSON envelope a client sends.
type InboundFrame struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type inboundPayload struct {
	RoomID  *string `json:"roomId"`
	Message *string `json:"message"`
}

// Command is a decoded inbound frame. RoomID is set for create and join,
// Text for chat.
type Command struct {
	Type   CommandType
	RoomID string
	Text   string
}

// Event is the JSON object sent to clients.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// DecodeCommand parses one inbound frame. Every failure wraps ErrDecode.
// Room names must be non-empty; chat text may be empty but must be present.
func DecodeCommand(raw []byte) (Command, error) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var payload inboundPayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return Command{}, fmt.Errorf("%w: payload: %v", ErrDecode, err)
		}
	}

	switch frame.Type {
	case CommandCreate, CommandJoin:
		if payload.RoomID == nil || *payload.RoomID == "" {
			return Command{}, fmt.Errorf("%w: %s requires payload.roomId", ErrDecode, frame.Type)
		}
		return Command{Type: frame.Type, RoomID: *payload.RoomID}, nil
	case CommandChat:
		if payload.Message == nil {
			return Command{}, fmt.Errorf("%w: chat requires payload.message", ErrDecode)
		}
		return Command{Type: CommandChat, Text: *payload.Message}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown type %q", ErrDecode, frame.Type)
	}
}

// EncodeEvent renders an outbound event as a single JSON frame.
func EncodeEvent(t EventType, message string) ([]byte, error) {
	return json.Marshal(Event{Type: t, Message: message})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
