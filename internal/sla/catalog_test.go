package sla

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// mockCatalogStore implements CatalogStore for testing.
type mockCatalogStore struct {
	definitions map[int64]*domain.SLADefinition
	userSLA     map[int64]int64
	companies   map[int64]*CompanyRef
	categorySLA map[string]int64
	cmdbSLA     map[int64]int64
	defaultSLA  *int64

	userErr     error
	companyErr  error
	categoryErr error
	cmdbErr     error
	defaultErr  error
	listErr     error
}

func newMockCatalogStore() *mockCatalogStore {
	return &mockCatalogStore{
		definitions: make(map[int64]*domain.SLADefinition),
		userSLA:     make(map[int64]int64),
		companies:   make(map[int64]*CompanyRef),
		categorySLA: make(map[string]int64),
		cmdbSLA:     make(map[int64]int64),
	}
}

func (m *mockCatalogStore) addDefinition(id int64, name string, active bool) {
	m.definitions[id] = &domain.SLADefinition{ID: id, Name: name, IsActive: active}
}

func (m *mockCatalogStore) GetDefinition(_ context.Context, id int64) (*domain.SLADefinition, error) {
	def, ok := m.definitions[id]
	if !ok {
		return nil, errors.New("definition not found")
	}
	return def, nil
}

func (m *mockCatalogStore) ListActiveDefinitions(_ context.Context) ([]domain.SLADefinition, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var defs []domain.SLADefinition
	for _, def := range m.definitions {
		if def.IsActive {
			defs = append(defs, *def)
		}
	}
	return defs, nil
}

func (m *mockCatalogStore) UserOverrideSLA(_ context.Context, userID int64) (*int64, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	if id, ok := m.userSLA[userID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (m *mockCatalogStore) GetCompanyRef(_ context.Context, companyID int64) (*CompanyRef, error) {
	if m.companyErr != nil {
		return nil, m.companyErr
	}
	return m.companies[companyID], nil
}

func (m *mockCatalogStore) CategorySLA(_ context.Context, category string) (*int64, error) {
	if m.categoryErr != nil {
		return nil, m.categoryErr
	}
	if id, ok := m.categorySLA[category]; ok {
		return &id, nil
	}
	return nil, nil
}

func (m *mockCatalogStore) CMDBItemSLA(_ context.Context, itemID int64) (*int64, error) {
	if m.cmdbErr != nil {
		return nil, m.cmdbErr
	}
	if id, ok := m.cmdbSLA[itemID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (m *mockCatalogStore) DefaultSLA(_ context.Context) (*int64, error) {
	if m.defaultErr != nil {
		return nil, m.defaultErr
	}
	return m.defaultSLA, nil
}

func ptrInt64(v int64) *int64 { return &v }

func fullContext() TicketContext {
	return TicketContext{
		TicketID:      42,
		OverrideSLAID: ptrInt64(1),
		RequesterID:   ptrInt64(10),
		CompanyID:     ptrInt64(20),
		Category:      "incident",
		CMDBItemID:    ptrInt64(30),
	}
}

// storeWithAllSources builds a store where every cascade source can
// resolve, each pointing at its own active definition.
func storeWithAllSources() *mockCatalogStore {
	store := newMockCatalogStore()
	for id := int64(1); id <= 6; id++ {
		store.addDefinition(id, "", true)
	}
	store.userSLA[10] = 2
	store.companies[20] = &CompanyRef{SLAID: ptrInt64(3)}
	store.categorySLA["incident"] = 4
	store.cmdbSLA[30] = 5
	store.defaultSLA = ptrInt64(6)
	return store
}

func TestResolvePrecedenceLadder(t *testing.T) {
	store := storeWithAllSources()
	catalog := NewCatalog(store, zap.NewNop())
	tc := fullContext()

	steps := []struct {
		strip  func()
		source Source
		slaID  int64
	}{
		{func() {}, SourceTicket, 1},
		{func() { tc.OverrideSLAID = nil }, SourceUser, 2},
		{func() { tc.RequesterID = nil }, SourceCompany, 3},
		{func() { tc.CompanyID = nil }, SourceCategory, 4},
		{func() { tc.Category = "" }, SourceCMDB, 5},
		{func() { tc.CMDBItemID = nil }, SourceDefault, 6},
	}

	for _, step := range steps {
		step.strip()
		got := catalog.Resolve(context.Background(), tc)
		assert.Equal(t, step.source, got.Source)
		if assert.NotNil(t, got.SLAID) {
			assert.Equal(t, step.slaID, *got.SLAID)
		}
	}
}

func TestResolveInactiveOverrideFallsThrough(t *testing.T) {
	store := storeWithAllSources()
	store.definitions[1].IsActive = false
	catalog := NewCatalog(store, zap.NewNop())

	got := catalog.Resolve(context.Background(), fullContext())

	assert.Equal(t, SourceUser, got.Source)
}

func TestResolveSourceErrorDegradesToNext(t *testing.T) {
	store := storeWithAllSources()
	store.userErr = errors.New("user lookup down")
	tc := fullContext()
	tc.OverrideSLAID = nil
	catalog := NewCatalog(store, zap.NewNop())

	got := catalog.Resolve(context.Background(), tc)

	assert.Equal(t, SourceCompany, got.Source)
}

func TestResolveCompanyLevelExactBeatsSubstring(t *testing.T) {
	store := newMockCatalogStore()
	store.addDefinition(1, "Gold Extended", true)
	store.addDefinition(2, "Gold", true)
	store.companies[20] = &CompanyRef{Level: "gold"}
	catalog := NewCatalog(store, zap.NewNop())

	got := catalog.Resolve(context.Background(), TicketContext{CompanyID: ptrInt64(20)})

	assert.Equal(t, SourceCompany, got.Source)
	if assert.NotNil(t, got.SLAID) {
		assert.Equal(t, int64(2), *got.SLAID)
	}
}

func TestResolveCompanyLevelSubstringMatch(t *testing.T) {
	store := newMockCatalogStore()
	store.addDefinition(1, "Premium Silver Support", true)
	store.companies[20] = &CompanyRef{Level: "Silver"}
	catalog := NewCatalog(store, zap.NewNop())

	got := catalog.Resolve(context.Background(), TicketContext{CompanyID: ptrInt64(20)})

	assert.Equal(t, SourceCompany, got.Source)
}

func TestResolveAllSourcesExhaustedReturnsError(t *testing.T) {
	catalog := NewCatalog(newMockCatalogStore(), zap.NewNop())

	got := catalog.Resolve(context.Background(), TicketContext{})

	assert.Nil(t, got.SLAID)
	assert.Equal(t, SourceError, got.Source)
}

func TestResolveEverySourceFailingReturnsError(t *testing.T) {
	store := storeWithAllSources()
	store.userErr = errors.New("down")
	store.companyErr = errors.New("down")
	store.categoryErr = errors.New("down")
	store.cmdbErr = errors.New("down")
	store.defaultErr = errors.New("down")
	tc := fullContext()
	tc.OverrideSLAID = nil
	catalog := NewCatalog(store, zap.NewNop())

	got := catalog.Resolve(context.Background(), tc)

	assert.Nil(t, got.SLAID)
	assert.Equal(t, SourceError, got.Source)
}
