// Package model defines data structures for the intake platform.
package model

import (
	"time"
)

// ConversationStatus represents the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationAbandoned ConversationStatus = "abandoned"
)

// Conversation represents a visitor conversation thread.
type Conversation struct {
	ID           string             `json:"id"`
	TenantID     string             `json:"tenant_id"`
	VisitorID    string             `json:"visitor_id"`
	Status       ConversationStatus `json:"status"`
	MessageCount int                `json:"message_count"`
	StartedAt    time.Time          `json:"started_at"`
	EndedAt      *time.Time         `json:"ended_at,omitempty"`

	// LeadID is set at most once, when the flow engine captures a lead.
	// It transitions nil -> set and is never cleared.
	LeadID *string `json:"lead_id,omitempty"`
}

// Ended reports whether the conversation has been explicitly ended.
func (c *Conversation) Ended() bool {
	return c.Status != ConversationActive
}

// CreateConversationRequest is the request to open a new conversation.
type CreateConversationRequest struct {
	VisitorID string `json:"visitor_id"`
}

// EndConversationRequest is the request to end a conversation.
type EndConversationRequest struct {
	Abandoned bool `json:"abandoned,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
	HasMore       bool           `json:"has_more"`
}
