// internal/model/call_record.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallCalling   CallStatus = "calling"
	CallFailed    CallStatus = "failed"
	CallCancelled CallStatus = "cancelled"
	CallCompleted CallStatus = "completed"
)

const (
	// StoppedByUserSummary is written on records cancelled by a stop action.
	StoppedByUserSummary = "stopped by user"
	CompletedSummary     = "campaign completed"
)

type CallRecord struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	CampaignID     uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	ContactID      uuid.UUID  `db:"contact_id" json:"contact_id"`
	ProviderCallID *string    `db:"provider_call_id" json:"provider_call_id,omitempty"`
	Status         CallStatus `db:"status" json:"status"`
	Summary        string     `db:"summary" json:"summary,omitempty"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// PendingCall is a pending call record joined with the contact it dials.
type PendingCall struct {
	Record  CallRecord
	Contact Contact
}

// Outcome is what the recorder writes for one placement attempt.
type Outcome struct {
	Status         CallStatus
	ProviderCallID string
	Summary        string
}

func CallingOutcome(providerCallID string) Outcome {
	return Outcome{Status: CallCalling, ProviderCallID: providerCallID}
}

func FailedOutcome(summary string) Outcome {
	return Outcome{Status: CallFailed, Summary: summary}
}
