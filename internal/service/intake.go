package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexassist-ai/intake-platform/internal/flow"
	"github.com/lexassist-ai/intake-platform/internal/model"
	natsclient "github.com/lexassist-ai/intake-platform/internal/nats"
	"github.com/lexassist-ai/intake-platform/internal/store"
	"github.com/lexassist-ai/intake-platform/pkg/logger"
	"github.com/lexassist-ai/intake-platform/pkg/metrics"
)

// ErrConversationEnded is returned when a turn arrives for an ended
// conversation.
var ErrConversationEnded = errors.New("conversation has ended")

// IntakeService runs one intake turn: append the inbound message, let the
// flow engine decide the reply, append the reply.
type IntakeService struct {
	streams       *natsclient.StreamManager
	conversations *store.ConversationStore
	engine        *flow.Engine
	logger        *logger.Logger
}

// NewIntakeService creates an intake service.
func NewIntakeService(
	streams *natsclient.StreamManager,
	conversations *store.ConversationStore,
	engine *flow.Engine,
	log *logger.Logger,
) *IntakeService {
	return &IntakeService{
		streams:       streams,
		conversations: conversations,
		engine:        engine,
		logger:        log,
	}
}

// HandleMessage processes one inbound message. Visitor messages run through
// the flow engine; attorney messages pass straight into the log.
func (s *IntakeService) HandleMessage(ctx context.Context, tenantID, conversationID string, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	conv, err := s.conversations.Get(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Ended() {
		return nil, ErrConversationEnded
	}

	if req.Attorney {
		return s.appendAttorneyMessage(ctx, tenantID, conversationID, req)
	}

	// The engine classifies against history excluding the inbound message;
	// both sides of the turn are appended after the decision.
	reply, err := s.engine.ProcessMessage(ctx, conversationID, req.Content, tenantID)
	if err != nil {
		return nil, fmt.Errorf("process message: %w", err)
	}

	now := time.Now()
	visitorMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		TenantID:       tenantID,
		SenderType:     model.SenderVisitor,
		Content:        req.Content,
		SentAt:         now,
	}
	seq, err := s.streams.PublishMessage(ctx, visitorMsg)
	if err != nil {
		return nil, fmt.Errorf("append visitor message: %w", err)
	}
	visitorMsg.Sequence = seq
	metrics.MessagesTotal.WithLabelValues(tenantID, string(model.SenderVisitor)).Inc()

	botMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		TenantID:       tenantID,
		SenderType:     model.SenderBot,
		Content:        reply.Content,
		Metadata:       reply.Metadata,
		SentAt:         time.Now(),
	}
	botSeq, err := s.streams.PublishMessage(ctx, botMsg)
	if err != nil {
		return nil, fmt.Errorf("append bot message: %w", err)
	}
	botMsg.Sequence = botSeq
	metrics.MessagesTotal.WithLabelValues(tenantID, string(model.SenderBot)).Inc()

	if err := s.conversations.IncrementMessageCount(ctx, tenantID, conversationID, 2); err != nil {
		s.logger.Warn("failed to bump message count", zap.Error(err))
	}

	s.publishTurnEvents(ctx, tenantID, conversationID, reply)

	return &model.SendMessageResponse{
		Message: visitorMsg,
		Reply:   botMsg,
	}, nil
}

func (s *IntakeService) appendAttorneyMessage(ctx context.Context, tenantID, conversationID string, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	senderID := req.SenderID
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		TenantID:       tenantID,
		SenderType:     model.SenderAttorney,
		SenderID:       &senderID,
		Content:        req.Content,
		SentAt:         time.Now(),
	}
	seq, err := s.streams.PublishMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("append attorney message: %w", err)
	}
	msg.Sequence = seq
	metrics.MessagesTotal.WithLabelValues(tenantID, string(model.SenderAttorney)).Inc()

	if err := s.conversations.IncrementMessageCount(ctx, tenantID, conversationID, 1); err != nil {
		s.logger.Warn("failed to bump message count", zap.Error(err))
	}

	return &model.SendMessageResponse{Message: msg}, nil
}

// publishTurnEvents records notable turn outcomes on the stream.
func (s *IntakeService) publishTurnEvents(ctx context.Context, tenantID, conversationID string, reply *model.BotReply) {
	var eventType model.EventType
	switch reply.Metadata.Intent {
	case flow.IntentConsultationConfirmed:
		eventType = model.EventTypeLeadCreated
	case flow.IntentFallback:
		eventType = model.EventTypeLLMFallback
	case flow.IntentErrorRecovery:
		eventType = model.EventTypeError
	default:
		return
	}

	if _, err := s.streams.PublishEvent(ctx, &model.ConversationEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		TenantID:       tenantID,
		Type:           eventType,
		Reason:         reply.Metadata.Intent,
		CreatedAt:      time.Now(),
	}); err != nil {
		s.logger.Warn("failed to publish turn event", zap.Error(err))
	}
}

// GetMessages retrieves conversation history pages.
func (s *IntakeService) GetMessages(ctx context.Context, tenantID, conversationID string, afterSequence uint64, limit int) (*model.ListMessagesResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	messages, lastSeq, hasMore, err := s.streams.GetMessages(ctx, tenantID, conversationID, afterSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	return &model.ListMessagesResponse{
		Messages:     messages,
		HasMore:      hasMore,
		LastSequence: lastSeq,
	}, nil
}
