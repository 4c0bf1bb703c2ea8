package model

import (
	"time"

	"github.com/google/uuid"
)

// ContactResult is the outcome of one contact within a batch.
type ContactResult struct {
	CallRecordID   uuid.UUID  `json:"call_record_id"`
	ContactID      uuid.UUID  `json:"contact_id"`
	PhoneNumber    string     `json:"phone_number"`
	Status         CallStatus `json:"status"`
	ProviderCallID string     `json:"provider_call_id,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type BatchResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Skipped counts selected records that left pending before placement.
	Skipped int             `json:"skipped"`
	Results []ContactResult `json:"results"`
}

// Errors returns the error messages of failed contacts in batch order.
func (b *BatchResult) Errors() []string {
	errs := []string{}
	for _, r := range b.Results {
		if r.Error != "" {
			errs = append(errs, r.Error)
		}
	}
	return errs
}

const (
	StateSourceLive      = "live"
	StateSourcePersisted = "persisted"
)

// ExecutionState is the transient per-campaign view used by the status query.
type ExecutionState struct {
	CampaignID      uuid.UUID      `json:"campaign_id"`
	Status          CampaignStatus `json:"status"`
	TotalContacts   int            `json:"total_contacts"`
	CompletedCalls  int            `json:"completed_calls"`
	SuccessfulCalls int            `json:"successful_calls"`
	FailedCalls     int            `json:"failed_calls"`
	Errors          []string       `json:"errors"`
	LastBatchAt     *time.Time     `json:"last_batch_at,omitempty"`
	Source          string         `json:"source"`
}

// StateFromCampaign builds the minimal view from the persisted row.
func StateFromCampaign(c *Campaign) *ExecutionState {
	return &ExecutionState{
		CampaignID:      c.ID,
		Status:          c.Status,
		TotalContacts:   c.TotalContacts,
		CompletedCalls:  c.CompletedCalls,
		SuccessfulCalls: c.SuccessfulCalls,
		FailedCalls:     c.FailedCalls,
		Errors:          []string{},
		Source:          StateSourcePersisted,
	}
}

// ExecutionResult is returned by every lifecycle action.
type ExecutionResult struct {
	CampaignID uuid.UUID      `json:"campaign_id"`
	Action     Action         `json:"action"`
	Status     CampaignStatus `json:"status"`
	Message    string         `json:"message"`
	Batch      *BatchResult   `json:"batch,omitempty"`
	Cancelled  int            `json:"cancelled,omitempty"`
}
