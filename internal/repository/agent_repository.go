package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
)

// AgentRepositoryInterface defines methods used by service
type AgentRepositoryInterface interface {
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*model.Agent, error)
}

type AgentRepository struct {
	DB *sql.DB
}

// GetByID fetches an agent owned by the organization
func (r *AgentRepository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*model.Agent, error) {
	query := `
        SELECT id, organization_id, name, provider_agent_id
        FROM agents
        WHERE id = $1 AND organization_id = $2
    `
	var a model.Agent
	err := r.DB.QueryRowContext(ctx, query, id, organizationID).Scan(&a.ID, &a.OrganizationID, &a.Name, &a.ProviderAgentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewAgentNotFound(id)
		}
		return nil, appErrors.NewPersistence("get agent", err)
	}
	return &a, nil
}

var _ AgentRepositoryInterface = (*AgentRepository)(nil)
