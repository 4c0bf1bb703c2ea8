package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/queue"
)

// fakeStore is an in-memory stand-in for the campaign, agent and
// call record repositories sharing one dataset.
type fakeStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*model.Campaign
	agents    map[uuid.UUID]*model.Agent
	records   []*model.CallRecord
	contacts  map[uuid.UUID]model.Contact
	leases    map[uuid.UUID]string

	completeCalls int
	listErr       error
	applyErr      error
	hidePending   bool
	statusErr     error
	now           time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns: map[uuid.UUID]*model.Campaign{},
		agents:    map[uuid.UUID]*model.Agent{},
		contacts:  map[uuid.UUID]model.Contact{},
		leases:    map[uuid.UUID]string{},
		now:       time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
}

func strPtr(s string) *string { return &s }

// seedCampaign creates an integrated agent and a campaign with n pending records.
func (f *fakeStore) seedCampaign(status model.CampaignStatus, n int) *model.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()

	org := uuid.New()
	agent := &model.Agent{ID: uuid.New(), OrganizationID: org, Name: "Renewals bot", ProviderAgentID: strPtr("prov-agent-1")}
	f.agents[agent.ID] = agent

	c := &model.Campaign{
		ID:             uuid.New(),
		OrganizationID: org,
		Name:           "Renewals",
		Status:         status,
		AgentID:        agent.ID,
		CreatedAt:      f.now,
	}
	f.campaigns[c.ID] = c
	for i := 0; i < n; i++ {
		f.addRecordLocked(c.ID, fmt.Sprintf("+2547000%05d", i), fmt.Sprintf("Contact %d", i))
	}
	return c
}

func (f *fakeStore) addRecordLocked(campaignID uuid.UUID, phone, name string) {
	contact := model.Contact{ID: uuid.New(), PhoneNumber: phone, DisplayName: name}
	f.contacts[contact.ID] = contact
	f.records = append(f.records, &model.CallRecord{
		ID:         uuid.New(),
		CampaignID: campaignID,
		ContactID:  contact.ID,
		Status:     model.CallPending,
		CreatedAt:  f.now.Add(time.Duration(len(f.records)) * time.Second),
	})
}

func (f *fakeStore) campaign(id uuid.UUID) model.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.campaigns[id]
}

func (f *fakeStore) recordsByStatus(campaignID uuid.UUID, status model.CallStatus) []model.CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CallRecord
	for _, r := range f.records {
		if r.CampaignID == campaignID && r.Status == status {
			out = append(out, *r)
		}
	}
	return out
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetForOrganization(ctx context.Context, id, organizationID uuid.UUID) (*model.Campaign, error) {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OrganizationID != organizationID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.CampaignStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (f *fakeStore) MarkStarted(ctx context.Context, id uuid.UUID, from model.CampaignStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = model.CampaignRunning
	if c.StartedAt == nil {
		now := f.now
		c.StartedAt = &now
		total := 0
		for _, r := range f.records {
			if r.CampaignID == id {
				total++
			}
		}
		c.TotalContacts = total
	}
	return true, nil
}

func (f *fakeStore) ApplyBatchCounters(ctx context.Context, id uuid.UUID, attempted, succeeded, failed int) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	c := f.campaigns[id]
	c.CompletedCalls += attempted
	c.SuccessfulCalls += succeeded
	c.FailedCalls += failed
	cp := *c
	return &cp, nil
}

func (f *fakeStore) Complete(ctx context.Context, id uuid.UUID, cancelSummary string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	n := 0
	for _, r := range f.records {
		if r.CampaignID == id && r.Status == model.CallPending {
			r.Status = model.CallCancelled
			r.Summary = cancelSummary
			n++
		}
	}
	c := f.campaigns[id]
	c.Status = model.CampaignCompleted
	if c.CompletedAt == nil {
		now := f.now
		c.CompletedAt = &now
	}
	return n, nil
}

func (f *fakeStore) AcquireLease(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.leases[id]; held {
		return "", false, nil
	}
	token := uuid.NewString()
	f.leases[id] = token
	return token, true, nil
}

func (f *fakeStore) ReleaseLease(ctx context.Context, id uuid.UUID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.leases[id] == token {
		delete(f.leases, id)
	}
	return nil
}

// fakeAgents adapts fakeStore to the agent repository.
type fakeAgents struct{ f *fakeStore }

func (a fakeAgents) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*model.Agent, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	ag, ok := a.f.agents[id]
	if !ok || ag.OrganizationID != organizationID {
		return nil, appErrors.NewAgentNotFound(id)
	}
	cp := *ag
	return &cp, nil
}

// fakeRecords adapts fakeStore to the call record repository.
type fakeRecords struct{ f *fakeStore }

func (r fakeRecords) ListPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]model.PendingCall, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.listErr != nil {
		return nil, r.f.listErr
	}
	if r.f.hidePending {
		return nil, nil
	}
	var out []model.PendingCall
	for _, rec := range r.f.records {
		if rec.CampaignID == campaignID && rec.Status == model.CallPending {
			out = append(out, model.PendingCall{Record: *rec, Contact: r.f.contacts[rec.ContactID]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Record.CreatedAt.Before(out[j].Record.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeRecords) CountPending(ctx context.Context, campaignID uuid.UUID) (int, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	n := 0
	for _, rec := range r.f.records {
		if rec.CampaignID == campaignID && rec.Status == model.CallPending {
			n++
		}
	}
	return n, nil
}

func (r fakeRecords) IsPending(ctx context.Context, id uuid.UUID) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.statusErr != nil {
		return false, r.f.statusErr
	}
	for _, rec := range r.f.records {
		if rec.ID == id {
			return rec.Status == model.CallPending, nil
		}
	}
	return false, nil
}

func (r fakeRecords) TransitionFromPending(ctx context.Context, id uuid.UUID, outcome model.Outcome) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, rec := range r.f.records {
		if rec.ID != id {
			continue
		}
		if rec.Status != model.CallPending {
			return false, nil
		}
		rec.Status = outcome.Status
		rec.Summary = outcome.Summary
		if outcome.ProviderCallID != "" {
			rec.ProviderCallID = strPtr(outcome.ProviderCallID)
		}
		rec.UpdatedAt = r.f.now
		return true, nil
	}
	return false, nil
}

// fakeGateway succeeds unless the phone number is listed in fail.
type fakeGateway struct {
	mu    sync.Mutex
	fail  map[string]error
	panic map[string]bool
	calls []string
}

func (g *fakeGateway) PlaceCall(ctx context.Context, agentID, phoneNumber, displayName string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, phoneNumber)
	if g.panic[phoneNumber] {
		panic("provider client exploded")
	}
	if err, ok := g.fail[phoneNumber]; ok {
		return "", &appErrors.PlacementError{PhoneNumber: phoneNumber, Msg: err.Error(), Cause: err}
	}
	return "call-" + phoneNumber, nil
}

type noWait struct{ waits int }

func (n *noWait) Wait(ctx context.Context) error {
	n.waits++
	return ctx.Err()
}

// hookPacer runs hook inside the given Wait call, before that placement.
type hookPacer struct {
	waits int
	at    int
	hook  func()
}

func (p *hookPacer) Wait(ctx context.Context) error {
	p.waits++
	if p.waits == p.at && p.hook != nil {
		p.hook()
	}
	return ctx.Err()
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, payload)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// statusChanges returns the target statuses of published status events in order.
func (p *recordingPublisher) statusChanges() []model.CampaignStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.CampaignStatus
	for _, ev := range p.events {
		if sc, ok := ev.(queue.StatusChangedEvent); ok {
			out = append(out, sc.To)
		}
	}
	return out
}

var errProviderDown = errors.New("provider returned 503")
