package model

// TenantContext carries the firm branding and practice details that feed
// prompt construction. Missing fields fall back to safe generic defaults.
type TenantContext struct {
	TenantID       string   `json:"tenant_id"`
	CompanyName    string   `json:"company_name"`
	PracticeAreas  []string `json:"practice_areas"`
	WelcomeMessage string   `json:"welcome_message,omitempty"`
	BusinessHours  string   `json:"business_hours,omitempty"`
}

// DefaultCompanyName is used when a tenant has no configured name.
const DefaultCompanyName = "Our Law Firm"

// ApplyDefaults fills missing branding fields with generic values.
func (t *TenantContext) ApplyDefaults() {
	if t.CompanyName == "" {
		t.CompanyName = DefaultCompanyName
	}
	if len(t.PracticeAreas) == 0 {
		t.PracticeAreas = []string{"general legal matters"}
	}
	if t.BusinessHours == "" {
		t.BusinessHours = "Monday to Friday, 9am to 5pm"
	}
}
