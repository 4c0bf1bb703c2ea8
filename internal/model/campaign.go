// internal/model/campaign.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignRunning, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}

type Campaign struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	OrganizationID  uuid.UUID      `db:"organization_id" json:"organization_id"`
	Name            string         `db:"name" json:"name"`
	Status          CampaignStatus `db:"status" json:"status"`
	AgentID         uuid.UUID      `db:"agent_id" json:"agent_id"`
	TotalContacts   int            `db:"total_contacts" json:"total_contacts"`
	CompletedCalls  int            `db:"completed_calls" json:"completed_calls"`
	SuccessfulCalls int            `db:"successful_calls" json:"successful_calls"`
	FailedCalls     int            `db:"failed_calls" json:"failed_calls"`
	StartedAt       *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
