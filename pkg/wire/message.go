// Package wire defines the chat backend's frame protocol: the Message record
// shared by socket frames and persistence rows, the decoded inbound event
// variants, and the outbound command encoders.
package wire

import (
	"errors"
	"time"
)

// Frame type discriminants. Unknown values are skipped by DecodeEvent so new
// server-side frame types never break older clients.
const (
	TypeMessage          = "message"
	TypeMessageSent      = "message_sent"
	TypeTypingStart      = "typing_start"
	TypeTypingStop       = "typing_stop"
	TypeUserOnline       = "user_online"
	TypeUserOffline      = "user_offline"
	TypeConnectionAck    = "connection_ack"
	TypeSendMessage      = "send_message"
	TypeSendGroupMessage = "send_group_message"
)

// ErrAmbiguousTarget is returned when a message sets both or neither of
// recipient_id and chat_id.
var ErrAmbiguousTarget = errors.New("message must target exactly one of recipient or chat")

// Message is a chat message. Server-confirmed messages carry a server-assigned
// ID and are immutable afterwards except for IsRead; before confirmation the
// client tracks them by ClientID only.
type Message struct {
	ID          string    `json:"id,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id,omitempty"`
	ChatID      string    `json:"chat_id,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	FileURL     string    `json:"file_url,omitempty"`
	MessageType string    `json:"message_type,omitempty"`
	IsRead      bool      `json:"is_read,omitempty"`
}

// Target is the destination of a message: exactly one of a direct recipient
// or a group chat. The sealed interface makes the xor invariant structural
// instead of a convention over two optional fields.
type Target interface {
	isTarget()
}

// Direct targets a single recipient user.
type Direct struct {
	RecipientID string
}

// Group targets a group chat.
type Group struct {
	ChatID string
}

func (Direct) isTarget() {}
func (Group) isTarget()  {}

// Target returns the message destination, or ErrAmbiguousTarget when the
// recipient/chat fields violate the xor invariant.
func (m Message) Target() (Target, error) {
	switch {
	case m.RecipientID != "" && m.ChatID == "":
		return Direct{RecipientID: m.RecipientID}, nil
	case m.ChatID != "" && m.RecipientID == "":
		return Group{ChatID: m.ChatID}, nil
	default:
		return nil, ErrAmbiguousTarget
	}
}
