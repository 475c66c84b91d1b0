package flow

import (
	"strings"
	"unicode"
)

// Phrase sets are the decision tables behind phase classification and
// intent tagging. They are data, not code, so they can be tuned per locale
// without touching the matching logic.

// leadConfirmedPhrases mark a bot message that confirmed a submitted lead.
// Matched over the full history: confirmation is never revisited.
var leadConfirmedPhrases = []string{
	"consultation request has already been submitted",
	"have created your consultation request",
	"have created",
	"have all your information",
}

// contactRequestPhrases mark a bot message that explicitly asked the
// visitor for contact details.
var contactRequestPhrases = []string{
	"contact information",
	"contact details",
	"collect your details",
	"your name",
	"your email",
	"your phone",
	"full name",
	"email address",
	"phone number",
	"name, email",
	"email and phone",
}

// consultationPhrases mark a bot message that raised a consultation.
var consultationPhrases = []string{
	"consultation",
	"attorney",
	"meeting",
}

// consultationTriggers is the strong explicit language that marks a
// generated reply as offering a consultation. Deliberately distinct from
// dataCollectionTriggers: offering and collecting are different speech acts.
var consultationTriggers = []string{
	"recommend consulting",
	"recommend speaking with",
	"schedule a consultation",
	"book a consultation",
	"speak with an attorney",
	"speak to an attorney",
	"consultation with one of our attorneys",
}

// dataCollectionTriggers mark a generated reply that asks for contact info.
var dataCollectionTriggers = []string{
	"your name",
	"your full name",
	"contact information",
	"contact details",
	"email address",
	"phone number",
	"best number to reach",
}

// greetingPhrases identify a plain greeting reply. Greetings never count as
// consultation offers.
var greetingPhrases = []string{
	"hello",
	"hi there",
	"welcome",
	"how can i help",
	"how can i assist",
	"good morning",
	"good afternoon",
}

// bookingPhrases identify booking language in a generated reply.
var bookingPhrases = []string{
	"book a time",
	"available times",
	"appointment",
	"schedule a time",
}

// positiveReplies classify a visitor's answer to a consultation offer.
var positiveReplies = []string{
	"yes",
	"yeah",
	"yep",
	"sure",
	"ok",
	"okay",
	"please",
	"definitely",
	"absolutely",
	"sounds good",
	"go ahead",
	"let's do it",
}

// negativeReplies classify a declined consultation offer.
var negativeReplies = []string{
	"no",
	"nah",
	"nope",
	"not now",
	"not yet",
	"not really",
	"no thanks",
	"not interested",
	"maybe later",
}

// questionWords indicate the visitor is asking something rather than
// answering. A literal "?" also counts.
var questionWords = []string{
	"what",
	"how",
	"when",
	"where",
	"why",
	"who",
}

// normalizeText lowercases text and collapses whitespace for phrase matching.
func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// tokenize splits normalized text into bare lowercase words.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// matchesAny reports whether text matches any phrase in the set.
// Multi-word phrases match as substrings; single words match on word
// boundaries so "no" does not fire inside "now" or "know".
func matchesAny(text string, phrases []string) bool {
	normalized := normalizeText(text)
	var words []string

	for _, phrase := range phrases {
		if strings.ContainsRune(phrase, ' ') {
			if strings.Contains(normalized, phrase) {
				return true
			}
			continue
		}
		if words == nil {
			words = tokenize(normalized)
		}
		for _, w := range words {
			if w == phrase {
				return true
			}
		}
	}
	return false
}

// isQuestion reports whether visitor text reads as a question.
func isQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	return matchesAny(text, questionWords)
}
