package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lexassist-ai/intake-platform/internal/model"
)

// ErrConversationNotFound is returned when a conversation does not exist
// within the tenant's scope.
var ErrConversationNotFound = fmt.Errorf("conversation not found")

// ErrAlreadyLinked is returned when a conversation is already linked to a
// different lead.
var ErrAlreadyLinked = fmt.Errorf("conversation already linked to a lead")

// ConversationStore persists conversation records. The message bodies live
// in the JetStream log; this table carries lifecycle and the lead linkage.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a conversation store.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Create inserts a new active conversation.
func (s *ConversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	const q = `
		INSERT INTO conversations (id, tenant_id, visitor_id, status, message_count, started_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := s.db.db.ExecContext(ctx, q,
		conv.ID, conv.TenantID, conv.VisitorID, conv.Status, conv.MessageCount, conv.StartedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by id within a tenant.
func (s *ConversationStore) Get(ctx context.Context, tenantID, conversationID string) (*model.Conversation, error) {
	const q = `
		SELECT id, tenant_id, visitor_id, status, message_count, started_at, ended_at, lead_id
		FROM conversations WHERE tenant_id = $1 AND id = $2
	`
	var c model.Conversation
	err := s.db.db.QueryRowContext(ctx, q, tenantID, conversationID).Scan(
		&c.ID, &c.TenantID, &c.VisitorID, &c.Status, &c.MessageCount, &c.StartedAt, &c.EndedAt, &c.LeadID,
	)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// List retrieves conversations for a tenant, newest first.
func (s *ConversationStore) List(ctx context.Context, tenantID string, limit, offset int) ([]model.Conversation, int, error) {
	const countQ = `SELECT count(*) FROM conversations WHERE tenant_id = $1`
	var total int
	if err := s.db.db.QueryRowContext(ctx, countQ, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	const q = `
		SELECT id, tenant_id, visitor_id, status, message_count, started_at, ended_at, lead_id
		FROM conversations WHERE tenant_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.db.QueryContext(ctx, q, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.VisitorID, &c.Status, &c.MessageCount, &c.StartedAt, &c.EndedAt, &c.LeadID,
		); err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversations: %w", err)
	}

	return convs, total, nil
}

// End marks a conversation completed or abandoned. Ended conversations are
// immutable apart from the lead linkage.
func (s *ConversationStore) End(ctx context.Context, tenantID, conversationID string, status model.ConversationStatus, endedAt time.Time) error {
	const q = `
		UPDATE conversations SET status = $3, ended_at = $4
		WHERE tenant_id = $1 AND id = $2 AND status = 'active'
	`
	res, err := s.db.db.ExecContext(ctx, q, tenantID, conversationID, status, endedAt)
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// IncrementMessageCount bumps the message counter after an append.
func (s *ConversationStore) IncrementMessageCount(ctx context.Context, tenantID, conversationID string, by int) error {
	const q = `
		UPDATE conversations SET message_count = message_count + $3
		WHERE tenant_id = $1 AND id = $2
	`
	if _, err := s.db.db.ExecContext(ctx, q, tenantID, conversationID, by); err != nil {
		return fmt.Errorf("increment message count: %w", err)
	}
	return nil
}

// LinkLead sets the conversation's lead linkage with compare-and-set
// semantics: only one lead may ever claim the link. Re-linking the same
// lead is a no-op so retries after a failed first attempt converge.
func (s *ConversationStore) LinkLead(ctx context.Context, tenantID, conversationID, leadID string) error {
	const q = `
		UPDATE conversations SET lead_id = $3
		WHERE tenant_id = $1 AND id = $2 AND (lead_id IS NULL OR lead_id = $3)
	`
	res, err := s.db.db.ExecContext(ctx, q, tenantID, conversationID, leadID)
	if err != nil {
		return fmt.Errorf("link lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link lead: %w", err)
	}
	if n == 0 {
		// Either the conversation does not exist or another lead holds the link.
		if _, gerr := s.Get(ctx, tenantID, conversationID); gerr != nil {
			return gerr
		}
		return ErrAlreadyLinked
	}
	return nil
}
