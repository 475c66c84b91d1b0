package model

import (
	"time"
)

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderVisitor  SenderType = "visitor"
	SenderBot      SenderType = "bot"
	SenderAttorney SenderType = "attorney"
)

// MessageMeta carries structured annotations attached to a message.
type MessageMeta struct {
	Intent                  string   `json:"intent,omitempty"`
	ShouldOfferConsultation bool     `json:"should_offer_consultation,omitempty"`
	IsDataCollection        bool     `json:"is_data_collection,omitempty"`
	SuggestedActions        []string `json:"suggested_actions,omitempty"`
}

// Message represents one immutable entry in a conversation's message log.
// Ordering by SentAt defines conversation history ordering.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	TenantID       string `json:"tenant_id"`

	SenderType SenderType `json:"sender_type"`
	// SenderID is set only for attorney messages.
	SenderID *string `json:"sender_id,omitempty"`

	Content  string      `json:"content"`
	Metadata MessageMeta `json:"metadata,omitempty"`

	SentAt time.Time `json:"sent_at"`

	// Sequence is the stream sequence, populated on read.
	Sequence uint64 `json:"sequence,omitempty"`
}

// SendMessageRequest is the inbound visitor (or attorney) message.
type SendMessageRequest struct {
	Content  string `json:"content"`
	Attorney bool   `json:"attorney,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
}

// BotReply is the engine's answer to one inbound visitor message.
type BotReply struct {
	Content  string      `json:"content"`
	Metadata MessageMeta `json:"metadata"`
}

// SendMessageResponse is the full intake turn result.
type SendMessageResponse struct {
	Message *Message `json:"message"`
	Reply   *Message `json:"reply,omitempty"`
}

// ListMessagesResponse is the response for reading conversation history.
type ListMessagesResponse struct {
	Messages     []Message `json:"messages"`
	HasMore      bool      `json:"has_more"`
	LastSequence uint64    `json:"last_sequence"`
}
