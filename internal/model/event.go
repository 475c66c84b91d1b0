package model

import (
	"time"
)

// EventType represents the type of a conversation event.
type EventType string

const (
	EventTypeLeadCreated EventType = "lead_created"
	EventTypeEnded       EventType = "ended"
	EventTypeLLMFallback EventType = "llm_fallback"
	EventTypeError       EventType = "error"
)

// ConversationEvent represents an operational event in a conversation,
// published alongside messages on the intake stream.
type ConversationEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	TenantID       string         `json:"tenant_id"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Sequence       uint64         `json:"sequence,omitempty"`
}
