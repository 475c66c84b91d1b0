package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexassist-ai/intake-platform/internal/model"
)

func visitorMsg(content string) model.Message {
	return model.Message{SenderType: model.SenderVisitor, Content: content}
}

func botMsg(content string) model.Message {
	return model.Message{SenderType: model.SenderBot, Content: content}
}

func TestClassifyEmptyHistory(t *testing.T) {
	assert.Equal(t, PhaseInitial, Classify(nil))
	assert.Equal(t, PhaseInitial, Classify([]model.Message{}))
}

func TestClassifyGatheringByDefault(t *testing.T) {
	history := []model.Message{
		visitorMsg("Hi"),
		botMsg("Hello! How can I help you today?"),
		visitorMsg("I was injured at work last month"),
		botMsg("I'm sorry to hear that. Can you tell me more about what happened?"),
	}
	assert.Equal(t, PhaseGatheringInfo, Classify(history))
}

func TestClassifyOfferingWhenBotMentionsConsultation(t *testing.T) {
	history := []model.Message{
		visitorMsg("My employer refuses to pay compensation"),
		botMsg("That sounds serious. I'd recommend a consultation with one of our attorneys."),
	}
	assert.Equal(t, PhaseOfferingConsultation, Classify(history))
}

func TestClassifyCollectingWinsOverOffering(t *testing.T) {
	// Both a consultation mention and a contact request are in the window;
	// the contact request is the higher-priority guard.
	history := []model.Message{
		botMsg("Would you like a consultation with one of our attorneys?"),
		visitorMsg("Yes please"),
		botMsg("Great! Could I please get your full name, email address and phone number?"),
	}
	assert.Equal(t, PhaseCollectingContact, Classify(history))
}

func TestClassifyCompletedChecksFullHistory(t *testing.T) {
	// Confirmation far outside the recency window still pins the phase.
	history := []model.Message{
		botMsg("Thank you, John! I have created your consultation request and our team will contact you shortly."),
	}
	for i := 0; i < 20; i++ {
		history = append(history, visitorMsg("One more question"))
		history = append(history, botMsg("Of course, happy to help."))
	}
	assert.Equal(t, PhaseCompleted, Classify(history))
}

func TestClassifyRecencyWindowExpiresOldGuards(t *testing.T) {
	// A contact request more than five messages back no longer holds the
	// conversation in the collecting phase.
	history := []model.Message{
		botMsg("Could I get your full name, email address and phone number?"),
	}
	for i := 0; i < 6; i++ {
		history = append(history, visitorMsg("Actually, tell me about your fees first"))
	}
	assert.Equal(t, PhaseGatheringInfo, Classify(history))
}

func TestClassifyVisitorMessagesNeverTrigger(t *testing.T) {
	// Guard phrases only count when the bot said them.
	history := []model.Message{
		visitorMsg("Do I need a consultation? Here is my phone number if so"),
	}
	assert.Equal(t, PhaseGatheringInfo, Classify(history))
}

func TestClassifyIsPure(t *testing.T) {
	history := []model.Message{
		botMsg("Would a consultation help?"),
		visitorMsg("Maybe"),
	}
	first := Classify(history)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(history))
	}
}
