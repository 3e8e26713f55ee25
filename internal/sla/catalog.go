package sla

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// Source tags which entity supplied the SLA actually applied.
type Source string

const (
	SourceTicket   Source = "ticket"
	SourceUser     Source = "user"
	SourceCompany  Source = "company"
	SourceCategory Source = "category"
	SourceCMDB     Source = "cmdb"
	SourceDefault  Source = "default"
	SourceError    Source = "error"
)

// Resolution is the cascade outcome. A nil SLAID always carries the
// error source; the caller treats such a ticket as unmanaged.
type Resolution struct {
	SLAID  *int64
	Source Source
}

// TicketContext carries the ticket fields the cascade inspects.
type TicketContext struct {
	TicketID      int64
	OverrideSLAID *int64
	RequesterID   *int64
	CompanyID     *int64
	Category      string
	CMDBItemID    *int64
}

// CompanyRef is a company's SLA binding: a direct definition reference
// and a free-text service level used for fuzzy name matching.
type CompanyRef struct {
	SLAID *int64
	Level string
}

// CatalogStore supplies the per-source lookups behind the cascade.
// Implementations are tenant-scoped.
type CatalogStore interface {
	GetDefinition(ctx context.Context, id int64) (*domain.SLADefinition, error)
	ListActiveDefinitions(ctx context.Context) ([]domain.SLADefinition, error)
	UserOverrideSLA(ctx context.Context, userID int64) (*int64, error)
	GetCompanyRef(ctx context.Context, companyID int64) (*CompanyRef, error)
	CategorySLA(ctx context.Context, category string) (*int64, error)
	CMDBItemSLA(ctx context.Context, itemID int64) (*int64, error)
	DefaultSLA(ctx context.Context) (*int64, error)
}

// resolver is one step of the cascade. Returning (nil, nil) means the
// source has nothing to say and the cascade moves on.
type resolver struct {
	source Source
	fn     func(ctx context.Context, tc TicketContext) (*int64, error)
}

// Catalog resolves which SLA definition governs a ticket via a strict
// precedence chain: ticket override, user override, company, category
// mapping, CMDB item, tenant default. Each source independently
// validates that its candidate is active; per-source failures degrade
// to the next source rather than aborting.
type Catalog struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewCatalog constructs the cascade over a tenant-scoped store.
func NewCatalog(store CatalogStore, logger *zap.Logger) *Catalog {
	return &Catalog{store: store, logger: logger}
}

// Resolve walks the cascade and returns the first valid match.
func (c *Catalog) Resolve(ctx context.Context, tc TicketContext) Resolution {
	chain := []resolver{
		{SourceTicket, c.fromTicketOverride},
		{SourceUser, c.fromUserOverride},
		{SourceCompany, c.fromCompany},
		{SourceCategory, c.fromCategory},
		{SourceCMDB, c.fromCMDBItem},
		{SourceDefault, c.fromDefault},
	}

	for _, step := range chain {
		candidate, err := step.fn(ctx, tc)
		if err != nil {
			c.logger.Warn("sla cascade source failed",
				zap.String("source", string(step.source)),
				zap.Int64("ticket_id", tc.TicketID),
				zap.Error(err))
			continue
		}
		if candidate == nil {
			continue
		}
		if !c.isActive(ctx, *candidate) {
			continue
		}
		return Resolution{SLAID: candidate, Source: step.source}
	}
	return Resolution{Source: SourceError}
}

func (c *Catalog) fromTicketOverride(_ context.Context, tc TicketContext) (*int64, error) {
	return tc.OverrideSLAID, nil
}

func (c *Catalog) fromUserOverride(ctx context.Context, tc TicketContext) (*int64, error) {
	if tc.RequesterID == nil {
		return nil, nil
	}
	return c.store.UserOverrideSLA(ctx, *tc.RequesterID)
}

// fromCompany prefers the company's direct SLA reference; absent that,
// its free-text level field is matched case-insensitively against
// active definition names, exact match ranked above substring.
func (c *Catalog) fromCompany(ctx context.Context, tc TicketContext) (*int64, error) {
	if tc.CompanyID == nil {
		return nil, nil
	}
	ref, err := c.store.GetCompanyRef(ctx, *tc.CompanyID)
	if err != nil || ref == nil {
		return nil, err
	}
	if ref.SLAID != nil {
		return ref.SLAID, nil
	}
	level := strings.ToLower(strings.TrimSpace(ref.Level))
	if level == "" {
		return nil, nil
	}
	defs, err := c.store.ListActiveDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	var substringMatch *int64
	for i := range defs {
		name := strings.ToLower(strings.TrimSpace(defs[i].Name))
		if name == level {
			return &defs[i].ID, nil
		}
		if substringMatch == nil && name != "" && strings.Contains(name, level) {
			substringMatch = &defs[i].ID
		}
	}
	return substringMatch, nil
}

func (c *Catalog) fromCategory(ctx context.Context, tc TicketContext) (*int64, error) {
	category := strings.ToLower(strings.TrimSpace(tc.Category))
	if category == "" {
		return nil, nil
	}
	return c.store.CategorySLA(ctx, category)
}

func (c *Catalog) fromCMDBItem(ctx context.Context, tc TicketContext) (*int64, error) {
	if tc.CMDBItemID == nil {
		return nil, nil
	}
	return c.store.CMDBItemSLA(ctx, *tc.CMDBItemID)
}

func (c *Catalog) fromDefault(ctx context.Context, _ TicketContext) (*int64, error) {
	return c.store.DefaultSLA(ctx)
}

func (c *Catalog) isActive(ctx context.Context, id int64) bool {
	def, err := c.store.GetDefinition(ctx, id)
	if err != nil || def == nil {
		return false
	}
	return def.IsActive
}
