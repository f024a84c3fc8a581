package service_test

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/model"
	"github.com/victor-igor/wacrm-backend/internal/repository"
)

// memCampaignRepo is an in-memory CampaignRepositoryInterface for tests.
type memCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*model.Campaign
	createErr error
	creates   int
}

func newMemCampaignRepo(campaigns ...*model.Campaign) *memCampaignRepo {
	repo := &memCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{}}
	for _, c := range campaigns {
		repo.campaigns[c.ID] = c
	}
	return repo
}

func (m *memCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaignRepo) GetByID(id uuid.UUID) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, apperrors.NewNotFound("campaign", id.String())
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignRepo) Update(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; !ok {
		return apperrors.NewNotFound("campaign", c.ID.String())
	}
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaignRepo) UpdateStatus(id uuid.UUID, status model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return apperrors.NewNotFound("campaign", id.String())
	}
	c.Status = status
	return nil
}

func (m *memCampaignRepo) MarkRun(id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return apperrors.NewNotFound("campaign", id.String())
	}
	t := at
	c.LastRunAt = &t
	return nil
}

func (m *memCampaignRepo) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[id]; !ok {
		return apperrors.NewNotFound("campaign", id.String())
	}
	delete(m.campaigns, id)
	return nil
}

func (m *memCampaignRepo) List(filter repository.ListFilter) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCampaignRepo) ListSendable() ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Sendable() {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ repository.CampaignRepositoryInterface = (*memCampaignRepo)(nil)

// memContactRepo serves a fixed contact list.
type memContactRepo struct {
	contacts []model.Contact
}

func (m *memContactRepo) GetByID(id uuid.UUID) (*model.Contact, error) {
	for _, c := range m.contacts {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("contact", id.String())
}

func (m *memContactRepo) ListAll() ([]model.Contact, error) {
	return append([]model.Contact{}, m.contacts...), nil
}

func (m *memContactRepo) ListByTag(tag string) ([]model.Contact, error) {
	out := []model.Contact{}
	for _, c := range m.contacts {
		if c.HasTag(tag) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContactRepo) ListByIDs(ids []uuid.UUID) ([]model.Contact, error) {
	want := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := []model.Contact{}
	for _, c := range m.contacts {
		if _, ok := want[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ repository.ContactRepositoryInterface = (*memContactRepo)(nil)

// memLogRepo keeps log entries in memory; the served set is derived from
// them the same way the SQL does.
type memLogRepo struct {
	mu      sync.Mutex
	entries []model.CampaignLogEntry
	queries int
}

func (m *memLogRepo) Insert(e *model.CampaignLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memLogRepo) ListByCampaign(campaignID uuid.UUID) ([]model.CampaignLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.CampaignLogEntry{}
	for _, e := range m.entries {
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLogRepo) ServedContactIDs(campaignID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	seen := map[uuid.UUID]struct{}{}
	ids := []uuid.UUID{}
	for _, e := range m.entries {
		if e.CampaignID != campaignID || e.ContactID == nil || !e.Status.Served() {
			continue
		}
		if _, dup := seen[*e.ContactID]; dup {
			continue
		}
		seen[*e.ContactID] = struct{}{}
		ids = append(ids, *e.ContactID)
	}
	return ids, nil
}

func (m *memLogRepo) SetReplied(id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			t := at
			m.entries[i].RepliedAt = &t
			return nil
		}
	}
	return apperrors.NewNotFound("campaign log", id.String())
}

var _ repository.CampaignLogRepositoryInterface = (*memLogRepo)(nil)

func contactFixture(phone string, tags ...string) model.Contact {
	return model.Contact{
		ID:    uuid.New(),
		Phone: phone,
		Name:  "contact " + phone,
		Tags:  tags,
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(n int) *int              { return &n }
func ptrStr(s string) *string        { return &s }
