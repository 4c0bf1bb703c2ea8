// internal/model/contact.go
package model

import "github.com/google/uuid"

type Contact struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	DisplayName string    `db:"display_name" json:"display_name"`
}

// Agent is the calling agent configuration a campaign dials with.
// ProviderAgentID is nil until the agent is integrated with the voice provider.
type Agent struct {
	ID              uuid.UUID `db:"id" json:"id"`
	OrganizationID  uuid.UUID `db:"organization_id" json:"organization_id"`
	Name            string    `db:"name" json:"name"`
	ProviderAgentID *string   `db:"provider_agent_id" json:"provider_agent_id,omitempty"`
}

func (a *Agent) Integrated() bool {
	return a.ProviderAgentID != nil && *a.ProviderAgentID != ""
}
