package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor("")
	require.NoError(t, err)
	return e
}

func TestExtractEmail(t *testing.T) {
	e := newTestExtractor(t)

	info := e.Extract("you can reach me at jane.doe+legal@example.co.za thanks")
	assert.Equal(t, "jane.doe+legal@example.co.za", info.Email)
}

func TestExtractPhoneLocalFormat(t *testing.T) {
	e := newTestExtractor(t)

	info := e.Extract("call me on 082 123 4567 please")
	assert.Equal(t, "082 123 4567", info.Phone)
}

func TestExtractPhoneInternationalFormat(t *testing.T) {
	e := newTestExtractor(t)

	info := e.Extract("my number is +27 82 123 4567")
	assert.Equal(t, "+27 82 123 4567", info.Phone)
}

func TestExtractNameFromMarker(t *testing.T) {
	e := newTestExtractor(t)

	info := e.Extract("Hi, my name is John Smith and I need help")
	assert.Equal(t, "John", info.FirstName)
	assert.Equal(t, "Smith", info.LastName)
}

func TestExtractNameFromCapitalizedPair(t *testing.T) {
	e := newTestExtractor(t)

	info := e.Extract("John Smith, john@example.com, 082 123 4567")
	assert.Equal(t, "John", info.FirstName)
	assert.Equal(t, "Smith", info.LastName)
	assert.Equal(t, "john@example.com", info.Email)
	assert.Equal(t, "082 123 4567", info.Phone)
	assert.True(t, info.Complete())
}

func TestExtractLoneNameNeedsEmailAnchor(t *testing.T) {
	e := newTestExtractor(t)

	// A single capitalized word with no email nearby is too weak a signal.
	info := e.Extract("Probably tomorrow works best")
	assert.Empty(t, info.FirstName)
	assert.Empty(t, info.LastName)

	// Next to an email it is most likely a first name.
	info = e.Extract("Sipho sipho@example.com")
	assert.Equal(t, "Sipho", info.FirstName)
	assert.Empty(t, info.LastName)
}

func TestExtractNothingFromPlainText(t *testing.T) {
	e := newTestExtractor(t)

	info := e.Extract("i was dismissed without a hearing last week")
	assert.Empty(t, info.FirstName)
	assert.Empty(t, info.Email)
	assert.Empty(t, info.Phone)
	assert.False(t, info.Complete())
}

func TestContactInfoMergeIsMonotonic(t *testing.T) {
	base := ContactInfo{FirstName: "John", Email: "john@example.com"}
	merged := base.Merge(ContactInfo{FirstName: "Jane", LastName: "Smith", Phone: "0821234567"})

	// Earlier captures win; only gaps fill in.
	assert.Equal(t, "John", merged.FirstName)
	assert.Equal(t, "Smith", merged.LastName)
	assert.Equal(t, "john@example.com", merged.Email)
	assert.Equal(t, "0821234567", merged.Phone)
	assert.True(t, merged.Complete())
}

func TestMissingFields(t *testing.T) {
	info := ContactInfo{FirstName: "John", LastName: "Smith"}
	assert.Equal(t, []string{"email address", "phone number"}, info.MissingFields())

	info.Email = "john@example.com"
	info.Phone = "0821234567"
	assert.Empty(t, info.MissingFields())

	// A first name alone still counts as a missing full name.
	partial := ContactInfo{FirstName: "John"}
	assert.Contains(t, partial.MissingFields(), "full name")
}

func TestNewExtractorCustomPattern(t *testing.T) {
	e, err := NewExtractor(`\+1[\d-]{10,}`)
	require.NoError(t, err)

	info := e.Extract("reach me at +1555-123-4567")
	assert.Equal(t, "+1555-123-4567", info.Phone)

	// The default South African pattern no longer applies.
	info = e.Extract("082 123 4567")
	assert.Empty(t, info.Phone)
}

func TestNewExtractorInvalidPattern(t *testing.T) {
	_, err := NewExtractor(`(`)
	assert.Error(t, err)
}
