package model

import (
	"time"
)

// LeadStatus represents the follow-up state of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusScheduled LeadStatus = "scheduled"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusClosed    LeadStatus = "closed"
)

// LeadPriority represents follow-up urgency.
type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "low"
	LeadPriorityMedium LeadPriority = "medium"
	LeadPriorityHigh   LeadPriority = "high"
)

// LeadSourceChatbot marks leads captured by the chat widget.
const LeadSourceChatbot = "chatbot"

// Lead is a structured contact record created from a qualified conversation.
// At most one lead is ever created per conversation.
type Lead struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	// LegalIssue is a summary synthesized from the visitor's messages.
	LegalIssue string `json:"legal_issue"`

	Status   LeadStatus   `json:"status"`
	Priority LeadPriority `json:"priority"`

	Source         string `json:"source"`
	ConversationID string `json:"conversation_id"`

	CreatedAt time.Time `json:"created_at"`
}

// ListLeadsResponse is the response for listing leads.
type ListLeadsResponse struct {
	Leads   []Lead `json:"leads"`
	Total   int    `json:"total"`
	HasMore bool   `json:"has_more"`
}
