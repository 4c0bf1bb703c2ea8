package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	GetForOrganization(ctx context.Context, id, organizationID uuid.UUID) (*model.Campaign, error)

	// Conditional writes: false means the row was not in status from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.CampaignStatus) (bool, error)
	MarkStarted(ctx context.Context, id uuid.UUID, from model.CampaignStatus) (bool, error)

	ApplyBatchCounters(ctx context.Context, id uuid.UUID, attempted, succeeded, failed int) (*model.Campaign, error)
	Complete(ctx context.Context, id uuid.UUID, cancelSummary string) (int, error)

	// Per-campaign lease, see AcquireLease.
	AcquireLease(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error)
	ReleaseLease(ctx context.Context, id uuid.UUID, token string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, organization_id, name, status, agent_id, total_contacts, completed_calls,
        successful_calls, failed_calls, started_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.Status, &c.AgentID, &c.TotalContacts, &c.CompletedCalls,
		&c.SuccessfulCalls, &c.FailedCalls, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Reads ======================

func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, appErrors.NewPersistence("get campaign", err)
	}
	return c, nil
}

// GetForOrganization scopes the lookup to one tenant. A campaign owned by
// another organization is reported as not found.
func (r *CampaignRepository) GetForOrganization(ctx context.Context, id, organizationID uuid.UUID) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1 AND organization_id=$2`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, appErrors.NewPersistence("get campaign", err)
	}
	return c, nil
}

// ====================== Status ======================

func (r *CampaignRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.CampaignStatus) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, appErrors.NewPersistence("update campaign status", err)
	}
	return affectedOne(res)
}

// MarkStarted moves the campaign to running. The first start stamps
// started_at and snapshots total_contacts from the call records.
func (r *CampaignRepository) MarkStarted(ctx context.Context, id uuid.UUID, from model.CampaignStatus) (bool, error) {
	query := `
        UPDATE campaigns
        SET status='running',
            total_contacts = CASE WHEN started_at IS NULL
                THEN (SELECT COUNT(*) FROM call_records WHERE campaign_id=$1)
                ELSE total_contacts END,
            started_at = COALESCE(started_at, NOW()),
            updated_at = NOW()
        WHERE id=$1 AND status=$2
    `
	res, err := r.DB.ExecContext(ctx, query, id, from)
	if err != nil {
		return false, appErrors.NewPersistence("mark campaign started", err)
	}
	return affectedOne(res)
}

// ====================== Rollups ======================

// ApplyBatchCounters folds one batch into the rollups in a single statement
// so completed_calls stays equal to successful_calls + failed_calls.
func (r *CampaignRepository) ApplyBatchCounters(ctx context.Context, id uuid.UUID, attempted, succeeded, failed int) (*model.Campaign, error) {
	query := `
        UPDATE campaigns
        SET completed_calls = completed_calls + $1,
            successful_calls = successful_calls + $2,
            failed_calls = failed_calls + $3,
            updated_at = NOW()
        WHERE id=$4
        RETURNING ` + campaignColumns
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, attempted, succeeded, failed, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, appErrors.NewPersistence("apply batch counters", err)
	}
	return c, nil
}

// Complete cancels every pending call record and marks the campaign
// completed in one transaction. It returns the number of cancelled records.
func (r *CampaignRepository) Complete(ctx context.Context, id uuid.UUID, cancelSummary string) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, appErrors.NewPersistence("begin complete campaign", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE call_records
        SET status='cancelled', summary=$1, updated_at=NOW()
        WHERE campaign_id=$2 AND status='pending'
    `, cancelSummary, id)
	if err != nil {
		return 0, appErrors.NewPersistence("cancel pending call records", err)
	}
	cancelled, err := res.RowsAffected()
	if err != nil {
		return 0, appErrors.NewPersistence("cancel pending call records", err)
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE campaigns
        SET status='completed', completed_at=COALESCE(completed_at, NOW()), updated_at=NOW()
        WHERE id=$1
    `, id); err != nil {
		return 0, appErrors.NewPersistence("complete campaign", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, appErrors.NewPersistence("commit complete campaign", err)
	}
	return int(cancelled), nil
}

// ====================== Lease ======================

// AcquireLease takes the campaign's dispatch lease for ttl. It returns a
// token for ReleaseLease, or false when another holder's lease is live.
func (r *CampaignRepository) AcquireLease(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	query := `
        UPDATE campaigns
        SET lease_owner=$1, lease_expires_at=NOW() + ($2::bigint * INTERVAL '1 millisecond')
        WHERE id=$3 AND (lease_owner IS NULL OR lease_expires_at < NOW())
    `
	res, err := r.DB.ExecContext(ctx, query, token, ttl.Milliseconds(), id)
	if err != nil {
		return "", false, appErrors.NewPersistence("acquire campaign lease", err)
	}
	ok, err := affectedOne(res)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (r *CampaignRepository) ReleaseLease(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE campaigns SET lease_owner=NULL, lease_expires_at=NULL WHERE id=$1 AND lease_owner=$2`
	if _, err := r.DB.ExecContext(ctx, query, id, token); err != nil {
		return appErrors.NewPersistence("release campaign lease", err)
	}
	return nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, appErrors.NewPersistence("rows affected", err)
	}
	return n == 1, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
