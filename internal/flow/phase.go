// Package flow implements the conversation flow engine: phase
// classification, contact extraction, response generation and the
// orchestrator that turns qualified conversations into leads.
package flow

import (
	"github.com/lexassist-ai/intake-platform/internal/model"
)

// Phase is the conversation's position in the qualify -> offer -> collect ->
// schedule funnel. It is always re-derived from the immutable message log,
// never stored, so there is no stored state to drift from the history.
type Phase string

const (
	PhaseInitial              Phase = "initial"
	PhaseGatheringInfo        Phase = "gathering_info"
	PhaseOfferingConsultation Phase = "offering_consultation"
	PhaseCollectingContact    Phase = "collecting_contact"
	PhaseScheduling           Phase = "scheduling"
	PhaseCompleted            Phase = "completed"
)

// phaseWindow is how many trailing messages the recency guards consider.
// Older context is irrelevant to phase once the conversation has moved on.
const phaseWindow = 5

// Classify derives the current funnel phase from ordered message history.
// Guards are evaluated in priority order; the first match wins.
func Classify(messages []model.Message) Phase {
	if len(messages) == 0 {
		return PhaseInitial
	}

	// Confirmation is checked over the full history: once a lead has been
	// confirmed the conversation never leaves COMPLETED.
	for _, msg := range messages {
		if msg.SenderType == model.SenderBot && matchesAny(msg.Content, leadConfirmedPhrases) {
			return PhaseCompleted
		}
	}

	window := messages
	if len(window) > phaseWindow {
		window = window[len(window)-phaseWindow:]
	}

	for _, msg := range window {
		if msg.SenderType == model.SenderBot && matchesAny(msg.Content, contactRequestPhrases) {
			return PhaseCollectingContact
		}
	}

	for _, msg := range window {
		if msg.SenderType == model.SenderBot && matchesAny(msg.Content, consultationPhrases) {
			return PhaseOfferingConsultation
		}
	}

	return PhaseGatheringInfo
}
