package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexassist-ai/intake-platform/internal/model"
	"github.com/lexassist-ai/intake-platform/pkg/logger"
)

type fakeHistory struct {
	messages []model.Message
	err      error
}

func (f *fakeHistory) History(ctx context.Context, tenantID, conversationID string) ([]model.Message, error) {
	return f.messages, f.err
}

type fakeLeads struct {
	created   []*model.Lead
	existing  string
	findErr   error
	createErr error
}

func (f *fakeLeads) CreateLead(ctx context.Context, lead *model.Lead) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, lead)
	return lead.ID, nil
}

func (f *fakeLeads) FindLeadByConversation(ctx context.Context, tenantID, conversationID string) (string, error) {
	return f.existing, f.findErr
}

type fakeLinker struct {
	linked map[string]string
	err    error
}

func (f *fakeLinker) LinkLead(ctx context.Context, tenantID, conversationID, leadID string) error {
	if f.err != nil {
		return f.err
	}
	if f.linked == nil {
		f.linked = make(map[string]string)
	}
	f.linked[conversationID] = leadID
	return nil
}

type fakeTenants struct {
	tc  *model.TenantContext
	err error
}

func (f *fakeTenants) TenantContext(ctx context.Context, tenantID string) (*model.TenantContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tc, nil
}

type engineFixture struct {
	engine  *Engine
	history *fakeHistory
	leads   *fakeLeads
	linker  *fakeLinker
	llm     *fakeLLM
}

func newEngineFixture(t *testing.T, history []model.Message) *engineFixture {
	t.Helper()

	h := &fakeHistory{messages: history}
	l := &fakeLeads{}
	lk := &fakeLinker{}
	tc := &fakeTenants{tc: testTenant()}
	client := &fakeLLM{content: "I can help with that. Could you tell me a bit more?"}

	extractor, err := NewExtractor("")
	require.NoError(t, err)

	engine := NewEngine(h, l, lk, tc,
		NewGenerator(client, time.Second, logger.NewNop()),
		extractor, logger.NewNop())

	return &engineFixture{engine: engine, history: h, leads: l, linker: lk, llm: client}
}

// collectingHistory is a conversation that has reached the contact
// collection phase, with the legal matter described along the way.
func collectingHistory() []model.Message {
	return []model.Message{
		visitorMsg("I was unfairly dismissed from my job"),
		botMsg("I'm sorry to hear that. Given the circumstances I'd recommend a consultation with one of our attorneys."),
		visitorMsg("Yes please"),
		botMsg(askContactContent),
	}
}

func TestProcessMessageInitialGreeting(t *testing.T) {
	fx := newEngineFixture(t, nil)
	fx.llm.content = "Hello! How can I help you today?"

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "Hi", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help you today?", reply.Content)
	assert.Equal(t, IntentGreeting, reply.Metadata.Intent)
	// A first message carries no history into the prompt.
	assert.Len(t, fx.llm.lastReq.Messages, 1)
}

func TestProcessMessageGatheringUsesGenerator(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		visitorMsg("Hi"),
		botMsg("Hello! How can I help you today?"),
	})

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "I was dismissed without a hearing", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, fx.llm.content, reply.Content)
	assert.Empty(t, fx.leads.created)
}

func TestProcessMessageOfferingPositive(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		visitorMsg("My landlord is evicting me illegally"),
		botMsg("That sounds urgent. I'd recommend a consultation with one of our attorneys."),
	})

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "Yes please", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, askContactContent, reply.Content)
	assert.Equal(t, IntentDataCollection, reply.Metadata.Intent)
	assert.True(t, reply.Metadata.IsDataCollection)
	// Accepting the offer does not create a lead yet.
	assert.Empty(t, fx.leads.created)
}

func TestProcessMessageOfferingNegative(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		botMsg("Would you like a consultation with one of our attorneys?"),
	})

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "no thanks", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, reassuranceContent, reply.Content)
	assert.False(t, reply.Metadata.ShouldOfferConsultation)
}

func TestProcessMessageOfferingQuestionGetsNudge(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		botMsg("Would you like a consultation with one of our attorneys?"),
	})
	fx.llm.content = "Our fees depend on the nature of the matter."

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "How much do you charge?", "tenant-1")
	require.NoError(t, err)

	// The answer is kept and the consultation is re-raised.
	assert.Contains(t, reply.Content, "Our fees depend")
	assert.Contains(t, reply.Content, "consultation")
	assert.True(t, reply.Metadata.ShouldOfferConsultation)
}

func TestProcessMessageOfferingQuestionNoDoubleNudge(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		botMsg("Would you like a consultation with one of our attorneys?"),
	})
	fx.llm.content = "Fees are discussed during the consultation itself."

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "What about fees?", "tenant-1")
	require.NoError(t, err)

	// The generated answer already mentions the consultation; no nudge.
	assert.Equal(t, "Fees are discussed during the consultation itself.", reply.Content)
}

func TestProcessMessageOfferingAmbiguous(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		botMsg("Would you like a consultation with one of our attorneys?"),
	})

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "hmm", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, clarifyOfferContent, reply.Content)
	assert.Equal(t, IntentConsultationOffer, reply.Metadata.Intent)
}

func TestProcessMessageCollectingCreatesLead(t *testing.T) {
	fx := newEngineFixture(t, collectingHistory())

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1",
		"John Smith, john@example.com, 082 123 4567", "tenant-1")
	require.NoError(t, err)

	require.Len(t, fx.leads.created, 1)
	lead := fx.leads.created[0]
	assert.Equal(t, "John", lead.FirstName)
	assert.Equal(t, "Smith", lead.LastName)
	assert.Equal(t, "john@example.com", lead.Email)
	assert.Equal(t, "082 123 4567", lead.Phone)
	assert.Equal(t, "conv-1", lead.ConversationID)
	assert.Equal(t, "tenant-1", lead.TenantID)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
	assert.Equal(t, model.LeadSourceChatbot, lead.Source)
	// The matter description comes from what the visitor said earlier.
	assert.Contains(t, lead.LegalIssue, "unfairly dismissed")

	assert.Equal(t, lead.ID, fx.linker.linked["conv-1"])

	assert.Contains(t, reply.Content, "Thank you, John!")
	assert.Contains(t, reply.Content, "john@example.com")
	assert.Equal(t, IntentConsultationConfirmed, reply.Metadata.Intent)
}

func TestProcessMessageCollectingAccumulatesAcrossTurns(t *testing.T) {
	history := append(collectingHistory(),
		visitorMsg("My name is John Smith and my email is john@example.com"),
		botMsg("Thanks! To finish setting up your consultation I still need your phone number."),
	)
	fx := newEngineFixture(t, history)

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "082 123 4567", "tenant-1")
	require.NoError(t, err)

	require.Len(t, fx.leads.created, 1)
	lead := fx.leads.created[0]
	assert.Equal(t, "John", lead.FirstName)
	assert.Equal(t, "john@example.com", lead.Email)
	assert.Equal(t, "082 123 4567", lead.Phone)
	assert.Equal(t, IntentConsultationConfirmed, reply.Metadata.Intent)
}

func TestProcessMessageCollectingPartialAsksForRest(t *testing.T) {
	fx := newEngineFixture(t, collectingHistory())

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1",
		"My name is John Smith", "tenant-1")
	require.NoError(t, err)

	assert.Empty(t, fx.leads.created)
	assert.Contains(t, reply.Content, "email address and phone number")
	assert.True(t, reply.Metadata.IsDataCollection)
}

func TestProcessMessageCollectingQuestionDefersExtraction(t *testing.T) {
	fx := newEngineFixture(t, collectingHistory())
	fx.llm.content = "Your details are only used to arrange the consultation."

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1",
		"Why do you need my details?", "tenant-1")
	require.NoError(t, err)

	assert.Empty(t, fx.leads.created)
	assert.Contains(t, reply.Content, "only used to arrange")
	assert.Contains(t, reply.Content, "full name, email address and phone number")
	assert.True(t, reply.Metadata.IsDataCollection)
}

func TestProcessMessageCollectingIdempotent(t *testing.T) {
	fx := newEngineFixture(t, collectingHistory())
	fx.leads.existing = "lead-1"

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1",
		"John Smith, john@example.com, 082 123 4567", "tenant-1")
	require.NoError(t, err)

	// No second lead; the link is repaired from the existing one.
	assert.Empty(t, fx.leads.created)
	assert.Equal(t, "lead-1", fx.linker.linked["conv-1"])
	assert.Equal(t, alreadySubmittedContent, reply.Content)
	assert.Equal(t, IntentAlreadySubmitted, reply.Metadata.Intent)
}

func TestProcessMessageCollectingPersistenceFailure(t *testing.T) {
	fx := newEngineFixture(t, collectingHistory())
	fx.leads.createErr = errors.New("connection refused")

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1",
		"John Smith, john@example.com, 082 123 4567", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, persistenceApologyContent, reply.Content)
	assert.Equal(t, IntentErrorRecovery, reply.Metadata.Intent)
}

func TestProcessMessageCompletedAnswersFollowUps(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		visitorMsg("I was dismissed"),
		botMsg("Thank you, John! I have created your consultation request and our team will contact you shortly."),
	})
	fx.llm.content = "Someone from the firm will reach out within one business day."

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1",
		"When will someone call me?", "tenant-1")
	require.NoError(t, err)

	assert.Contains(t, reply.Content, "one business day")
	// Completed conversations never produce another lead.
	assert.Empty(t, fx.leads.created)
	// The prompt tells the model the request is already in.
	assert.Contains(t, fx.llm.lastReq.SystemPrompt, "already submitted")
}

func TestProcessMessageHistoryFailureIsRecoverable(t *testing.T) {
	fx := newEngineFixture(t, nil)
	fx.history.err = errors.New("stream unavailable")

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1", "Hi", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, historyApologyContent, reply.Content)
	assert.Equal(t, IntentErrorRecovery, reply.Metadata.Intent)
}

func TestProcessMessageLLMFailureFallsBack(t *testing.T) {
	fx := newEngineFixture(t, []model.Message{
		visitorMsg("Hi"),
		botMsg("Hello! How can I help you today?"),
	})
	fx.llm.err = errors.New("timeout")

	reply, err := fx.engine.ProcessMessage(context.Background(), "conv-1",
		"Tell me about notice periods", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, fallbackContent, reply.Content)
	assert.Equal(t, IntentFallback, reply.Metadata.Intent)
}

func TestProcessMessageTenantLookupFailureUsesDefaults(t *testing.T) {
	fx := newEngineFixture(t, nil)
	fx.llm.content = "Hello! How can I help?"
	engine := NewEngine(fx.history, fx.leads, fx.linker,
		&fakeTenants{err: errors.New("db down")},
		NewGenerator(fx.llm, time.Second, logger.NewNop()),
		mustExtractor(t), logger.NewNop())

	reply, err := engine.ProcessMessage(context.Background(), "conv-1", "Hi", "tenant-1")
	require.NoError(t, err)

	assert.NotEmpty(t, reply.Content)
	assert.Contains(t, fx.llm.lastReq.SystemPrompt, model.DefaultCompanyName)
}

func mustExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor("")
	require.NoError(t, err)
	return e
}
