package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexassist-ai/intake-platform/internal/model"
)

func newMockLeadStore(t *testing.T) (*LeadStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLeadStore(NewWithDB(db)), mock
}

func testLead() *model.Lead {
	return &model.Lead{
		ID:             "lead-1",
		TenantID:       "tenant-1",
		FirstName:      "John",
		LastName:       "Smith",
		Email:          "john@example.com",
		Phone:          "0821234567",
		LegalIssue:     "unfair dismissal",
		Status:         model.LeadStatusNew,
		Priority:       model.LeadPriorityMedium,
		Source:         model.LeadSourceChatbot,
		ConversationID: "conv-1",
		CreatedAt:      time.Now(),
	}
}

func TestCreateLeadInserts(t *testing.T) {
	store, mock := newMockLeadStore(t)
	lead := testLead()

	mock.ExpectQuery(`INSERT INTO leads`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lead-1"))

	id, err := store.CreateLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, "lead-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLeadConflictReturnsExisting(t *testing.T) {
	store, mock := newMockLeadStore(t)
	lead := testLead()

	// ON CONFLICT DO NOTHING returns no rows when another writer won; the
	// store then resolves the existing lead for the conversation.
	mock.ExpectQuery(`INSERT INTO leads`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT id FROM leads WHERE tenant_id`).
		WithArgs("tenant-1", "conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lead-0"))

	id, err := store.CreateLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, "lead-0", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLeadConflictWithoutExistingFails(t *testing.T) {
	store, mock := newMockLeadStore(t)

	mock.ExpectQuery(`INSERT INTO leads`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT id FROM leads WHERE tenant_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.CreateLead(context.Background(), testLead())
	assert.Error(t, err)
}

func TestFindLeadByConversationAbsent(t *testing.T) {
	store, mock := newMockLeadStore(t)

	mock.ExpectQuery(`SELECT id FROM leads WHERE tenant_id`).
		WithArgs("tenant-1", "conv-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := store.FindLeadByConversation(context.Background(), "tenant-1", "conv-9")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestGetLeadAbsentReturnsNil(t *testing.T) {
	store, mock := newMockLeadStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM leads WHERE tenant_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "first_name", "last_name", "email", "phone",
			"legal_issue", "status", "priority", "source", "conversation_id", "created_at",
		}))

	lead, err := store.Get(context.Background(), "tenant-1", "lead-9")
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestListLeads(t *testing.T) {
	store, mock := newMockLeadStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT count\(\*\) FROM leads`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT (.+) FROM leads WHERE tenant_id`).
		WithArgs("tenant-1", 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "first_name", "last_name", "email", "phone",
			"legal_issue", "status", "priority", "source", "conversation_id", "created_at",
		}).
			AddRow("lead-2", "tenant-1", "Jane", "Doe", "jane@example.com", "0831234567",
				"contract dispute", "new", "medium", "chatbot", "conv-2", now).
			AddRow("lead-1", "tenant-1", "John", "Smith", "john@example.com", "0821234567",
				"unfair dismissal", "contacted", "high", "chatbot", "conv-1", now.Add(-time.Hour)))

	leads, total, err := store.List(context.Background(), "tenant-1", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, leads, 2)
	assert.Equal(t, "Jane", leads[0].FirstName)
	assert.Equal(t, model.LeadStatusContacted, leads[1].Status)
}
