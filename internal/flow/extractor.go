package flow

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Patterns are compiled once at package load, following the usual shape for
// chat-text extraction.
var (
	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// defaultPhonePattern matches South African numbers: leading +27 or 0,
	// then 8+ digits with optional spaces and hyphens. Deployments serving
	// other locales override it via CONTACT_PHONE_PATTERN.
	defaultPhonePattern = `(?:\+27|0)[\s-]?\d(?:[\d\s-]{7,})`

	// nameMarkerRE captures an explicitly introduced name: "my name is X",
	// "I'm X", "I am X".
	nameMarkerRE = regexp.MustCompile(`(?:[Mm]y name is|[Ii] am|[Ii]'m)\s+([A-Z][a-zA-Z'-]*)(?:\s+([A-Z][a-zA-Z'-]*))?`)
)

// ContactInfo is the structured contact data pulled from free text.
// Partial results across turns are merged; completeness never regresses.
type ContactInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Complete reports whether all four contact fields are present.
func (c ContactInfo) Complete() bool {
	return c.FirstName != "" && c.LastName != "" && c.Email != "" && c.Phone != ""
}

// Merge fills this result's gaps from another extraction. Fields already
// captured are kept, so merged results are monotonic.
func (c ContactInfo) Merge(other ContactInfo) ContactInfo {
	if c.FirstName == "" {
		c.FirstName = other.FirstName
	}
	if c.LastName == "" {
		c.LastName = other.LastName
	}
	if c.Email == "" {
		c.Email = other.Email
	}
	if c.Phone == "" {
		c.Phone = other.Phone
	}
	return c
}

// MissingFields lists what still needs to be asked for, in prompt order.
func (c ContactInfo) MissingFields() []string {
	var missing []string
	if c.FirstName == "" || c.LastName == "" {
		missing = append(missing, "full name")
	}
	if c.Email == "" {
		missing = append(missing, "email address")
	}
	if c.Phone == "" {
		missing = append(missing, "phone number")
	}
	return missing
}

// Extractor scans free text for name, email and phone.
type Extractor struct {
	phoneRE *regexp.Regexp
}

// NewExtractor creates an extractor. An empty phonePattern selects the
// built-in South African default.
func NewExtractor(phonePattern string) (*Extractor, error) {
	if phonePattern == "" {
		phonePattern = defaultPhonePattern
	}
	re, err := regexp.Compile(phonePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid phone pattern: %w", err)
	}
	return &Extractor{phoneRE: re}, nil
}

// Extract scans one message for contact fields. First occurrences win.
func (e *Extractor) Extract(text string) ContactInfo {
	var info ContactInfo

	if m := emailRE.FindString(text); m != "" {
		info.Email = m
	}

	if m := e.phoneRE.FindString(text); m != "" {
		info.Phone = strings.TrimRight(m, " -")
	}

	info.FirstName, info.LastName = extractName(text, info.Email)

	return info
}

// extractName tries an explicit naming marker first and falls back to
// scanning for consecutive capitalized words. The fallback is a known
// low-precision heuristic; the engine echoes the captured name back to the
// visitor so a wrong guess surfaces immediately.
func extractName(text, email string) (first, last string) {
	if m := nameMarkerRE.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}

	var prev string
	for _, token := range strings.Fields(text) {
		word := strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if strings.Contains(token, "@") {
			continue
		}
		if !isCapitalizedWord(word) {
			prev = ""
			continue
		}
		if prev != "" {
			return prev, word
		}
		prev = word
	}
	if prev != "" && email != "" {
		// A lone capitalized word next to an email is most likely a first name.
		return prev, ""
	}
	return "", ""
}

func isCapitalizedWord(word string) bool {
	if len(word) < 2 {
		return false
	}
	runes := []rune(word)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLower(r) && r != '\'' && r != '-' {
			return false
		}
	}
	return true
}
