package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxMessageLength bounds inbound message content.
const maxMessageLength = 4000

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > maxMessageLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateLeadID validates a lead ID.
func ValidateLeadID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid lead ID format")
	}
	return nil
}

// ValidateVisitorID validates a visitor identifier.
func ValidateVisitorID(id string) error {
	if len(id) == 0 {
		return errors.New("visitor ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("visitor ID exceeds maximum length")
	}
	return nil
}
