package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/dialer-backend/internal/model"
)

const (
	TopicStatusChanged  = "campaign.status_changed"
	TopicBatchCompleted = "campaign.batch_completed"
)

// Event is implemented by every published payload. CampaignKey orders
// events of one campaign on partitioned brokers.
type Event interface {
	CampaignKey() string
}

type StatusChangedEvent struct {
	CampaignID     uuid.UUID            `json:"campaign_id"`
	OrganizationID uuid.UUID            `json:"organization_id"`
	Action         model.Action         `json:"action"`
	From           model.CampaignStatus `json:"from"`
	To             model.CampaignStatus `json:"to"`
	Cancelled      int                  `json:"cancelled,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func (e StatusChangedEvent) CampaignKey() string { return e.CampaignID.String() }

type BatchCompletedEvent struct {
	CampaignID uuid.UUID             `json:"campaign_id"`
	Attempted  int                   `json:"attempted"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	Results    []model.ContactResult `json:"results"`
	OccurredAt time.Time             `json:"occurred_at"`
}

func (e BatchCompletedEvent) CampaignKey() string { return e.CampaignID.String() }

// ExecuteCommand asks a worker to run a lifecycle action.
type ExecuteCommand struct {
	CampaignID     string `json:"campaign_id"`
	Action         string `json:"action"`
	OrganizationID string `json:"organization_id"`
}
