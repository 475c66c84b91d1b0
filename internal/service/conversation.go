// Package service provides business logic for the intake platform.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexassist-ai/intake-platform/internal/model"
	natsclient "github.com/lexassist-ai/intake-platform/internal/nats"
	"github.com/lexassist-ai/intake-platform/internal/store"
	"github.com/lexassist-ai/intake-platform/pkg/logger"
	"github.com/lexassist-ai/intake-platform/pkg/metrics"
)

// ConversationService handles conversation lifecycle operations.
type ConversationService struct {
	conversations *store.ConversationStore
	streams       *natsclient.StreamManager
	logger        *logger.Logger
}

// NewConversationService creates a conversation service.
func NewConversationService(conversations *store.ConversationStore, streams *natsclient.StreamManager, log *logger.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		streams:       streams,
		logger:        log,
	}
}

// Create opens a new conversation for a visitor.
func (s *ConversationService) Create(ctx context.Context, tenantID string, req *model.CreateConversationRequest) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  tenantID,
		VisitorID: req.VisitorID,
		Status:    model.ConversationActive,
		StartedAt: time.Now(),
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	metrics.ConversationsTotal.WithLabelValues(tenantID).Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("tenant_id", tenantID),
	)

	return conv, nil
}

// Get retrieves a conversation within the tenant's scope.
func (s *ConversationService) Get(ctx context.Context, tenantID, conversationID string) (*model.Conversation, error) {
	return s.conversations.Get(ctx, tenantID, conversationID)
}

// List retrieves conversations for a tenant, newest first.
func (s *ConversationService) List(ctx context.Context, tenantID string, limit, offset int) (*model.ListConversationsResponse, error) {
	convs, total, err := s.conversations.List(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         total,
		HasMore:       offset+len(convs) < total,
	}, nil
}

// End marks a conversation completed (or abandoned) and records the event
// on the stream. Ended conversations accept no further turns.
func (s *ConversationService) End(ctx context.Context, tenantID, conversationID string, abandoned bool) error {
	status := model.ConversationCompleted
	if abandoned {
		status = model.ConversationAbandoned
	}

	if err := s.conversations.End(ctx, tenantID, conversationID, status, time.Now()); err != nil {
		return err
	}

	if _, err := s.streams.PublishEvent(ctx, &model.ConversationEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		TenantID:       tenantID,
		Type:           model.EventTypeEnded,
		Reason:         string(status),
		CreatedAt:      time.Now(),
	}); err != nil {
		s.logger.Warn("failed to publish end event", zap.Error(err))
	}

	return nil
}
