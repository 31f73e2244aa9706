package db

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/satheeshds/cdaplus/fields"
	"github.com/satheeshds/cdaplus/models"
)

// Ensure every backend implements Repository
var (
	_ Repository = (*Memory)(nil)
	_ Repository = (*SQL)(nil)
	_ Repository = (*Postgres)(nil)
)

// Memory is an in-memory repository for tests and demos. Nothing survives
// a restart.
type Memory struct {
	mu         sync.RWMutex
	contracts  map[string]models.Contract
	activities map[string]models.Activity
	schemas    map[string][]fields.DynamicField
	seq        map[string]int64
	next       int64
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		contracts:  make(map[string]models.Contract),
		activities: make(map[string]models.Activity),
		schemas:    make(map[string][]fields.DynamicField),
		seq:        make(map[string]int64),
	}
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// stamp records insertion order so that equal timestamps still sort
// deterministically.
func (m *Memory) stamp(id string) {
	m.next++
	m.seq[id] = m.next
}

func cloneFields(in []fields.DynamicField) []fields.DynamicField {
	if in == nil {
		return nil
	}
	out := make([]fields.DynamicField, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}

// withCounts fills the computed contract fields. Callers hold m.mu.
func (m *Memory) withCounts(c models.Contract) models.Contract {
	c.FieldCount = 0
	for _, f := range m.schemas[c.ID] {
		if f.IsActive {
			c.FieldCount++
		}
	}
	c.ActivityCount = 0
	for _, a := range m.activities {
		if a.ContractID == c.ID {
			c.ActivityCount++
		}
	}
	return c
}

func (m *Memory) ListContracts(_ context.Context, search string) ([]models.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search = strings.ToLower(search)
	contracts := []models.Contract{}
	for _, c := range m.contracts {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		contracts = append(contracts, m.withCounts(c))
	}
	slices.SortFunc(contracts, func(a, b models.Contract) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return contracts, nil
}

func (m *Memory) GetContract(_ context.Context, id string) (models.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[id]
	if !ok {
		return models.Contract{}, ErrNotFound
	}
	return m.withCounts(c), nil
}

func (m *Memory) CreateContract(_ context.Context, in models.ContractInput) (models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	c := models.Contract{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Code:      in.Code,
		Client:    in.Client,
		Active:    in.IsActive(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.contracts[c.ID] = c
	return m.withCounts(c), nil
}

func (m *Memory) UpdateContract(_ context.Context, id string, in models.ContractInput) (models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contracts[id]
	if !ok {
		return models.Contract{}, ErrNotFound
	}
	c.Name = in.Name
	c.Code = in.Code
	c.Client = in.Client
	c.Active = in.IsActive()
	c.UpdatedAt = time.Now().UTC()
	m.contracts[id] = c
	return m.withCounts(c), nil
}

func (m *Memory) DeleteContract(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[id]; !ok {
		return ErrNotFound
	}
	delete(m.contracts, id)
	delete(m.schemas, id)
	for aid, a := range m.activities {
		if a.ContractID == id {
			delete(m.activities, aid)
			delete(m.seq, aid)
		}
	}
	return nil
}

func (m *Memory) Load(_ context.Context, scope string) ([]fields.DynamicField, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneFields(m.schemas[scope]), nil
}

func (m *Memory) Save(_ context.Context, scope string, fs []fields.DynamicField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[scope] = cloneFields(fs)
	return nil
}

// activity returns a copy of a with the contract name joined in. Callers
// hold m.mu.
func (m *Memory) activity(a models.Activity) models.Activity {
	a.CustomFields = maps.Clone(a.CustomFields)
	if a.CustomFields == nil {
		a.CustomFields = map[string]any{}
	}
	a.ContractName = nil
	if c, ok := m.contracts[a.ContractID]; ok {
		name := c.Name
		a.ContractName = &name
	}
	return a
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (m *Memory) matches(a models.Activity, filter models.ActivityFilter) bool {
	date := deref(a.ActivityDate)
	switch {
	case filter.ContractID != "" && a.ContractID != filter.ContractID:
		return false
	case filter.Status != "" && a.Status != filter.Status:
		return false
	case filter.From != "" && (date == "" || date < filter.From):
		return false
	case filter.To != "" && (date == "" || date > filter.To):
		return false
	}
	return true
}

func (m *Memory) ListActivities(_ context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	activities := []models.Activity{}
	for _, a := range m.activities {
		if m.matches(a, filter) {
			activities = append(activities, m.activity(a))
		}
	}
	slices.SortFunc(activities, func(a, b models.Activity) int {
		return cmp.Or(
			-cmp.Compare(deref(a.ActivityDate), deref(b.ActivityDate)),
			-cmp.Compare(m.seq[a.ID], m.seq[b.ID]),
		)
	})
	return activities, nil
}

func (m *Memory) GetActivity(_ context.Context, id string) (models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.activities[id]
	if !ok {
		return models.Activity{}, ErrNotFound
	}
	return m.activity(a), nil
}

func (m *Memory) CreateActivity(_ context.Context, contractID string, in models.ActivityInput) (models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	a := models.Activity{
		ID:           uuid.NewString(),
		ContractID:   contractID,
		Title:        in.Title,
		Description:  in.Description,
		ActivityDate: in.ActivityDate,
		Status:       in.Status,
		CustomFields: maps.Clone(in.CustomFields),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.activities[a.ID] = a
	m.stamp(a.ID)
	return m.activity(a), nil
}

func (m *Memory) UpdateActivity(_ context.Context, id string, in models.ActivityInput) (models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activities[id]
	if !ok {
		return models.Activity{}, ErrNotFound
	}
	a.Title = in.Title
	a.Description = in.Description
	a.ActivityDate = in.ActivityDate
	a.Status = in.Status
	a.CustomFields = maps.Clone(in.CustomFields)
	a.UpdatedAt = time.Now().UTC()
	m.activities[id] = a
	return m.activity(a), nil
}

func (m *Memory) DeleteActivity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.activities[id]; !ok {
		return ErrNotFound
	}
	delete(m.activities, id)
	delete(m.seq, id)
	return nil
}

func (m *Memory) Dashboard(_ context.Context) (models.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var d models.Dashboard
	for _, c := range m.contracts {
		d.TotalContracts++
		if c.Active {
			d.ActiveContracts++
		}
	}
	for _, schema := range m.schemas {
		for _, f := range schema {
			d.TotalFields++
			if f.IsActive {
				d.ActiveFields++
			}
		}
	}
	recent := make([]models.Activity, 0, len(m.activities))
	for _, a := range m.activities {
		d.TotalActivities++
		switch a.Status {
		case models.StatusPending:
			d.PendingActivities++
		case models.StatusApproved:
			d.ApprovedActivities++
		case models.StatusRejected:
			d.RejectedActivities++
		}
		recent = append(recent, m.activity(a))
	}
	slices.SortFunc(recent, func(a, b models.Activity) int {
		return -cmp.Compare(m.seq[a.ID], m.seq[b.ID])
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}
	d.RecentActivities = recent
	return d, nil
}
