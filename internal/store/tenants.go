package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lexassist-ai/intake-platform/internal/model"
)

// TenantStore reads tenant branding context for prompt construction.
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a tenant store.
func NewTenantStore(db *DB) *TenantStore {
	return &TenantStore{db: db}
}

// TenantContext loads the branding context for a tenant. An unknown tenant
// or missing fields come back with safe generic defaults rather than an
// error: prompt construction must never fail on branding.
func (s *TenantStore) TenantContext(ctx context.Context, tenantID string) (*model.TenantContext, error) {
	const q = `
		SELECT company_name, practice_areas, welcome_message, business_hours
		FROM tenants WHERE id = $1
	`
	tc := &model.TenantContext{TenantID: tenantID}
	var areas string
	err := s.db.db.QueryRowContext(ctx, q, tenantID).Scan(
		&tc.CompanyName, &areas, &tc.WelcomeMessage, &tc.BusinessHours,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if areas != "" {
		for _, a := range strings.Split(areas, ",") {
			if a = strings.TrimSpace(a); a != "" {
				tc.PracticeAreas = append(tc.PracticeAreas, a)
			}
		}
	}
	tc.ApplyDefaults()
	return tc, nil
}

// Upsert writes a tenant's branding row.
func (s *TenantStore) Upsert(ctx context.Context, tc *model.TenantContext) error {
	const q = `
		INSERT INTO tenants (id, company_name, practice_areas, welcome_message, business_hours)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			practice_areas = EXCLUDED.practice_areas,
			welcome_message = EXCLUDED.welcome_message,
			business_hours = EXCLUDED.business_hours
	`
	_, err := s.db.db.ExecContext(ctx, q,
		tc.TenantID, tc.CompanyName, strings.Join(tc.PracticeAreas, ","), tc.WelcomeMessage, tc.BusinessHours)
	if err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}
