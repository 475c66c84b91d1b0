package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexassist-ai/intake-platform/internal/model"
	"github.com/lexassist-ai/intake-platform/internal/store"
	"github.com/lexassist-ai/intake-platform/pkg/logger"
	"github.com/lexassist-ai/intake-platform/pkg/metrics"
)

// HistorySource loads the ordered message history for a conversation.
type HistorySource interface {
	History(ctx context.Context, tenantID, conversationID string) ([]model.Message, error)
}

// LeadSink persists leads. CreateLead must collapse concurrent creates for
// the same conversation onto a single lead.
type LeadSink interface {
	CreateLead(ctx context.Context, lead *model.Lead) (string, error)
	FindLeadByConversation(ctx context.Context, tenantID, conversationID string) (string, error)
}

// ConversationLinker records the conversation -> lead back-reference with
// compare-and-set semantics.
type ConversationLinker interface {
	LinkLead(ctx context.Context, tenantID, conversationID, leadID string) error
}

// TenantContextProvider loads tenant branding for prompt construction.
type TenantContextProvider interface {
	TenantContext(ctx context.Context, tenantID string) (*model.TenantContext, error)
}

// legalIssueMaxLen caps the synthesized legal-issue summary.
const legalIssueMaxLen = 1000

// Scripted replies. Each is written so that re-classifying the history
// after it is appended lands in the intended phase.
const (
	askContactContent = "Great! To set up your consultation, could I please get your full name, " +
		"email address and phone number?"

	reassuranceContent = "No problem at all. I'm here whenever you have questions, so feel free " +
		"to keep asking. If you ever want to speak with someone at the firm, just say the word."

	clarifyOfferContent = "Just to make sure I understand: would you like me to set up a " +
		"consultation with one of our attorneys? A simple yes or no is fine."

	consultationNudge = " If you'd like, I can also set up a consultation with one of our " +
		"attorneys to go through this properly."

	collectReminder = " Once you're ready, I still need your full name, email address and " +
		"phone number to set up the consultation."

	alreadySubmittedContent = "Your consultation request has already been submitted. Our team " +
		"will be in touch shortly. Is there anything else I can help you with?"

	schedulingContent = "Thanks! Our team will reach out to you directly to find a time that " +
		"works for your consultation. If anything changes in the meantime, just let me know here."

	persistenceApologyContent = "I'm sorry, something went wrong while saving your details. " +
		"Could you please share your name, email address and phone number once more, or contact " +
		"the firm directly? We don't want to lose track of your matter."

	historyApologyContent = "I'm sorry, something went wrong on our side. Could you please send " +
		"that again in a moment?"
)

// Engine is the conversation flow orchestrator. It is stateless: every
// inbound message is an independent unit of work, and the phase is always
// re-derived from the message log. It is the only component allowed to
// create a lead.
type Engine struct {
	history   HistorySource
	leads     LeadSink
	linker    ConversationLinker
	tenants   TenantContextProvider
	generator *Generator
	extractor *Extractor
	logger    *logger.Logger
}

// NewEngine creates a flow engine.
func NewEngine(
	history HistorySource,
	leads LeadSink,
	linker ConversationLinker,
	tenants TenantContextProvider,
	generator *Generator,
	extractor *Extractor,
	log *logger.Logger,
) *Engine {
	return &Engine{
		history:   history,
		leads:     leads,
		linker:    linker,
		tenants:   tenants,
		generator: generator,
		extractor: extractor,
		logger:    log,
	}
}

// ProcessMessage handles one inbound visitor message and returns the bot's
// reply. History excludes the inbound message itself; the caller appends
// both sides to the log after the turn completes. Visitor-facing replies
// never carry raw errors.
func (e *Engine) ProcessMessage(ctx context.Context, conversationID, userMessage, tenantID string) (*model.BotReply, error) {
	log := e.logger.WithConversation(tenantID, conversationID)

	tc, err := e.tenants.TenantContext(ctx, tenantID)
	if err != nil {
		log.Warn("tenant context lookup failed, using defaults", zap.Error(err))
		tc = &model.TenantContext{TenantID: tenantID}
		tc.ApplyDefaults()
	}

	history, err := e.history.History(ctx, tenantID, conversationID)
	if err != nil {
		log.Error("failed to load history", zap.Error(err))
		return &model.BotReply{
			Content:  historyApologyContent,
			Metadata: model.MessageMeta{Intent: IntentErrorRecovery},
		}, nil
	}

	phase := Classify(history)
	metrics.RecordPhase(string(phase))
	log.Debug("classified conversation phase", zap.String("phase", string(phase)))

	switch phase {
	case PhaseInitial:
		return e.generator.Generate(ctx, &GenerateRequest{
			UserMessage: userMessage,
			Tenant:      tc,
		}), nil

	case PhaseOfferingConsultation:
		return e.handleOffering(ctx, userMessage, history, tc), nil

	case PhaseCollectingContact:
		return e.handleCollecting(ctx, conversationID, userMessage, history, tc, log), nil

	case PhaseScheduling:
		return &model.BotReply{
			Content:  schedulingContent,
			Metadata: model.MessageMeta{Intent: IntentBookingRequest},
		}, nil

	case PhaseCompleted:
		window := history
		if len(window) > 3 {
			window = window[len(window)-3:]
		}
		return e.generator.Generate(ctx, &GenerateRequest{
			UserMessage:    userMessage,
			History:        window,
			Tenant:         tc,
			PostCompletion: true,
		}), nil

	default:
		// Unknown phases fail open toward keeping the conversation going.
		fallthrough
	case PhaseGatheringInfo:
		return e.generator.Generate(ctx, &GenerateRequest{
			UserMessage: userMessage,
			History:     history,
			Tenant:      tc,
		}), nil
	}
}

// handleOffering is rule-based: the visitor is answering a consultation
// offer, so the three phrase tables decide the branch rather than the
// model.
func (e *Engine) handleOffering(ctx context.Context, userMessage string, history []model.Message, tc *model.TenantContext) *model.BotReply {
	positive := matchesAny(userMessage, positiveReplies)
	negative := matchesAny(userMessage, negativeReplies)
	question := isQuestion(userMessage)

	switch {
	case positive:
		return &model.BotReply{
			Content: askContactContent,
			Metadata: model.MessageMeta{
				Intent:           IntentDataCollection,
				IsDataCollection: true,
			},
		}

	case negative && !question:
		return &model.BotReply{
			Content: reassuranceContent,
			Metadata: model.MessageMeta{
				Intent:                  IntentGeneralInquiry,
				ShouldOfferConsultation: false,
			},
		}

	case question:
		// Answer the substantive question, then nudge toward the
		// consultation only when the generated text didn't raise it itself.
		reply := e.generator.Generate(ctx, &GenerateRequest{
			UserMessage: userMessage,
			History:     history,
			Tenant:      tc,
		})
		if !matchesAny(reply.Content, consultationPhrases) {
			reply.Content += consultationNudge
			reply.Metadata.ShouldOfferConsultation = true
		}
		return reply

	default:
		// Neither clearly positive nor negative nor a question: ask, don't guess.
		return &model.BotReply{
			Content:  clarifyOfferContent,
			Metadata: model.MessageMeta{Intent: IntentConsultationOffer, ShouldOfferConsultation: true},
		}
	}
}

// handleCollecting gathers contact details and creates the lead exactly once.
func (e *Engine) handleCollecting(ctx context.Context, conversationID, userMessage string, history []model.Message, tc *model.TenantContext, log *logger.Logger) *model.BotReply {
	// Idempotency gate: a lead may already be linked to this conversation
	// (duplicate or retried inbound message).
	existing, err := e.leads.FindLeadByConversation(ctx, tc.TenantID, conversationID)
	if err != nil {
		log.Error("lead lookup failed", zap.Error(err))
		metrics.LeadPersistenceErrorsTotal.Inc()
		return persistenceApology()
	}
	if existing != "" {
		// Repair the back-reference in case the first link attempt failed.
		if err := e.linker.LinkLead(ctx, tc.TenantID, conversationID, existing); err != nil && !errors.Is(err, store.ErrAlreadyLinked) {
			log.Warn("lead link repair failed", zap.Error(err), zap.String("lead_id", existing))
		}
		return &model.BotReply{
			Content:  alreadySubmittedContent,
			Metadata: model.MessageMeta{Intent: IntentAlreadySubmitted},
		}
	}

	// A question rather than contact data: answer it, then remind the
	// visitor what is still pending.
	if isQuestion(userMessage) && !strings.Contains(userMessage, "@") {
		reply := e.generator.Generate(ctx, &GenerateRequest{
			UserMessage: userMessage,
			History:     history,
			Tenant:      tc,
		})
		reply.Content += collectReminder
		reply.Metadata.IsDataCollection = true
		return reply
	}

	info := e.extractContact(userMessage, history)

	if !info.Complete() {
		missing := info.MissingFields()
		return &model.BotReply{
			Content: fmt.Sprintf("Thanks! To finish setting up your consultation I still need your %s.",
				joinNaturally(missing)),
			Metadata: model.MessageMeta{
				Intent:           IntentDataCollection,
				IsDataCollection: true,
			},
		}
	}

	lead := &model.Lead{
		ID:             uuid.Must(uuid.NewV7()).String(),
		TenantID:       tc.TenantID,
		FirstName:      info.FirstName,
		LastName:       info.LastName,
		Email:          info.Email,
		Phone:          info.Phone,
		LegalIssue:     synthesizeLegalIssue(history),
		Status:         model.LeadStatusNew,
		Priority:       model.LeadPriorityMedium,
		Source:         model.LeadSourceChatbot,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
	}

	// CreateLead re-verifies the claim at insert time: the unique
	// conversation constraint collapses a concurrent duplicate onto the
	// first winner.
	leadID, err := e.leads.CreateLead(ctx, lead)
	if err != nil {
		log.Error("lead insert failed", zap.Error(err))
		metrics.LeadPersistenceErrorsTotal.Inc()
		return persistenceApology()
	}

	if err := e.linker.LinkLead(ctx, tc.TenantID, conversationID, leadID); err != nil && !errors.Is(err, store.ErrAlreadyLinked) {
		// The lead is persisted; a retried message re-detects it through the
		// idempotency gate and repairs the link there.
		log.Error("lead link failed", zap.Error(err), zap.String("lead_id", leadID))
		metrics.LeadPersistenceErrorsTotal.Inc()
		return persistenceApology()
	}

	metrics.LeadsCreatedTotal.WithLabelValues(tc.TenantID).Inc()
	log.Info("lead created", zap.String("lead_id", leadID))

	return &model.BotReply{
		Content: fmt.Sprintf("Thank you, %s! I have created your consultation request and our "+
			"team will contact you shortly at %s or %s to arrange everything.",
			info.FirstName, info.Email, info.Phone),
		Metadata: model.MessageMeta{Intent: IntentConsultationConfirmed},
	}
}

// extractContact merges extraction over the current message and the visitor
// messages sent since the bot first asked for contact details, so partial
// info supplied across turns accumulates.
func (e *Engine) extractContact(userMessage string, history []model.Message) ContactInfo {
	info := e.extractor.Extract(userMessage)

	askIdx := -1
	for i, msg := range history {
		if msg.SenderType == model.SenderBot && matchesAny(msg.Content, contactRequestPhrases) {
			askIdx = i
			break
		}
	}
	if askIdx < 0 {
		return info
	}

	for i := len(history) - 1; i > askIdx; i-- {
		if info.Complete() {
			break
		}
		if history[i].SenderType == model.SenderVisitor {
			info = info.Merge(e.extractor.Extract(history[i].Content))
		}
	}
	return info
}

// synthesizeLegalIssue concatenates the visitor's messages into a summary,
// up to a length cap.
func synthesizeLegalIssue(history []model.Message) string {
	var b strings.Builder
	for _, msg := range history {
		if msg.SenderType != model.SenderVisitor {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strings.TrimSpace(msg.Content))
		if b.Len() >= legalIssueMaxLen {
			break
		}
	}
	issue := b.String()
	if len(issue) > legalIssueMaxLen {
		issue = issue[:legalIssueMaxLen]
	}
	return issue
}

func persistenceApology() *model.BotReply {
	return &model.BotReply{
		Content:  persistenceApologyContent,
		Metadata: model.MessageMeta{Intent: IntentErrorRecovery},
	}
}

func joinNaturally(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
