package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lexassist-ai/intake-platform/internal/model"
)

// LeadStore persists leads. The unique index on conversation_id is the hard
// guarantee that at most one lead exists per conversation: concurrent
// inserts for the same conversation collapse onto the first winner.
type LeadStore struct {
	db *DB
}

// NewLeadStore creates a lead store.
func NewLeadStore(db *DB) *LeadStore {
	return &LeadStore{db: db}
}

// CreateLead inserts a new lead. If a lead already exists for the same
// conversation, the existing lead's id is returned instead of inserting a
// duplicate.
func (s *LeadStore) CreateLead(ctx context.Context, lead *model.Lead) (string, error) {
	const q = `
		INSERT INTO leads (id, tenant_id, first_name, last_name, email, phone, legal_issue, status, priority, source, conversation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()))
		ON CONFLICT (conversation_id) DO NOTHING
		RETURNING id
	`
	var id string
	err := s.db.db.QueryRowContext(ctx, q,
		lead.ID, lead.TenantID, lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		lead.LegalIssue, lead.Status, lead.Priority, lead.Source, lead.ConversationID, lead.CreatedAt,
	).Scan(&id)
	if err == sql.ErrNoRows {
		// Another writer claimed this conversation first.
		existing, ferr := s.FindLeadByConversation(ctx, lead.TenantID, lead.ConversationID)
		if ferr != nil {
			return "", ferr
		}
		if existing == "" {
			return "", fmt.Errorf("lead insert conflicted but no existing lead found for conversation %s", lead.ConversationID)
		}
		return existing, nil
	}
	if err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

// FindLeadByConversation returns the id of the lead linked to a
// conversation, or "" when none exists.
func (s *LeadStore) FindLeadByConversation(ctx context.Context, tenantID, conversationID string) (string, error) {
	const q = `SELECT id FROM leads WHERE tenant_id = $1 AND conversation_id = $2`
	var id string
	err := s.db.db.QueryRowContext(ctx, q, tenantID, conversationID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find lead by conversation: %w", err)
	}
	return id, nil
}

// Get retrieves a lead by id within a tenant.
func (s *LeadStore) Get(ctx context.Context, tenantID, leadID string) (*model.Lead, error) {
	const q = `
		SELECT id, tenant_id, first_name, last_name, email, phone, legal_issue, status, priority, source, conversation_id, created_at
		FROM leads WHERE tenant_id = $1 AND id = $2
	`
	var l model.Lead
	err := s.db.db.QueryRowContext(ctx, q, tenantID, leadID).Scan(
		&l.ID, &l.TenantID, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
		&l.LegalIssue, &l.Status, &l.Priority, &l.Source, &l.ConversationID, &l.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return &l, nil
}

// List retrieves leads for a tenant, newest first.
func (s *LeadStore) List(ctx context.Context, tenantID string, limit, offset int) ([]model.Lead, int, error) {
	const countQ = `SELECT count(*) FROM leads WHERE tenant_id = $1`
	var total int
	if err := s.db.db.QueryRowContext(ctx, countQ, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	const q = `
		SELECT id, tenant_id, first_name, last_name, email, phone, legal_issue, status, priority, source, conversation_id, created_at
		FROM leads WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.db.QueryContext(ctx, q, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(
			&l.ID, &l.TenantID, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
			&l.LegalIssue, &l.Status, &l.Priority, &l.Source, &l.ConversationID, &l.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, total, nil
}
