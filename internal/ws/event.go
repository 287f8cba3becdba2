package ws

import (
	"errors"
	"time"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"github.com/jobtalk/jobtalk-backend/internal/domain"
)

// Event types on the wire
const (
	EventMessage = "message"
	EventRead    = "read"
	EventError   = "error"
)

// Event is a server-to-client frame
type Event struct {
	Type       string     `json:"type"`
	ID         uint64     `json:"id,omitempty"`
	ChannelID  uint64     `json:"channel_id,omitempty"`
	SenderID   uint64     `json:"sender_id,omitempty"`
	Content    string     `json:"content,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	Code       string     `json:"code,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// InboundEvent is a client-to-server frame
type InboundEvent struct {
	Type    string     `json:"type"`
	Content string     `json:"content,omitempty"`
	At      *time.Time `json:"at,omitempty"`
}

// MessageEvent builds the broadcast frame for a persisted message
func MessageEvent(msg *domain.ChatMessage) *Event {
	createdAt := msg.CreatedAt
	return &Event{
		Type:      EventMessage,
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: &createdAt,
	}
}

// ReadEvent acknowledges a read marker update
func ReadEvent(marker *domain.ReadMarker) *Event {
	at := marker.LastReadAt
	return &Event{
		Type:       EventRead,
		ChannelID:  marker.ChannelID,
		LastReadAt: &at,
	}
}

// ErrorEvent reports a failed inbound event. Internal errors are not echoed.
func ErrorEvent(err error) *Event {
	code := common.CodeFromError(err)
	msg := err.Error()
	if common.StatusFromError(err) >= 500 {
		msg = "internal server error"
	}
	return &Event{Type: EventError, Code: code, Message: msg}
}

var errUnknownEvent = errors.New("unknown event type")
