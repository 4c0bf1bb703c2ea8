package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
)

type CallRecordRepositoryInterface interface {
	ListPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]model.PendingCall, error)
	CountPending(ctx context.Context, campaignID uuid.UUID) (int, error)
	IsPending(ctx context.Context, id uuid.UUID) (bool, error)
	TransitionFromPending(ctx context.Context, id uuid.UUID, outcome model.Outcome) (bool, error)
	GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (map[string]int, error)
}

type CallRecordRepository struct {
	DB *sql.DB
}

// ListPending returns up to limit pending records of the campaign with their
// contacts, oldest first.
func (r *CallRecordRepository) ListPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]model.PendingCall, error) {
	query := `
        SELECT cr.id, cr.campaign_id, cr.contact_id, cr.provider_call_id, cr.status, cr.summary,
               cr.started_at, cr.created_at, cr.updated_at,
               c.id, c.phone_number, c.display_name
        FROM call_records cr
        JOIN contacts c ON c.id = cr.contact_id
        WHERE cr.campaign_id = $1 AND cr.status = 'pending'
        ORDER BY cr.created_at ASC, cr.id ASC
        LIMIT $2
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, limit)
	if err != nil {
		return nil, appErrors.NewPersistence("list pending call records", err)
	}
	defer rows.Close()

	pending := []model.PendingCall{}
	for rows.Next() {
		var p model.PendingCall
		var summary sql.NullString
		if err := rows.Scan(
			&p.Record.ID, &p.Record.CampaignID, &p.Record.ContactID, &p.Record.ProviderCallID,
			&p.Record.Status, &summary, &p.Record.StartedAt, &p.Record.CreatedAt, &p.Record.UpdatedAt,
			&p.Contact.ID, &p.Contact.PhoneNumber, &p.Contact.DisplayName,
		); err != nil {
			return nil, appErrors.NewPersistence("scan pending call record", err)
		}
		p.Record.Summary = summary.String
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewPersistence("list pending call records", err)
	}
	return pending, nil
}

func (r *CallRecordRepository) CountPending(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM call_records WHERE campaign_id = $1 AND status = 'pending'`, campaignID,
	).Scan(&count)
	if err != nil {
		return 0, appErrors.NewPersistence("count pending call records", err)
	}
	return count, nil
}

// IsPending reports whether the record still awaits placement. A missing
// record is not pending.
func (r *CallRecordRepository) IsPending(ctx context.Context, id uuid.UUID) (bool, error) {
	var status model.CallStatus
	err := r.DB.QueryRowContext(ctx, `SELECT status FROM call_records WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, appErrors.NewPersistence("read call record status", err)
	}
	return status == model.CallPending, nil
}

// TransitionFromPending writes the outcome only if the record is still
// pending. It reports false when the record was already transitioned.
func (r *CallRecordRepository) TransitionFromPending(ctx context.Context, id uuid.UUID, outcome model.Outcome) (bool, error) {
	var providerCallID sql.NullString
	if outcome.ProviderCallID != "" {
		providerCallID = sql.NullString{String: outcome.ProviderCallID, Valid: true}
	}
	query := `
        UPDATE call_records
        SET status=$1, provider_call_id=COALESCE($2, provider_call_id), summary=$3,
            started_at=CASE WHEN $5 THEN NOW() ELSE started_at END,
            updated_at=NOW()
        WHERE id=$4 AND status='pending'
    `
	res, err := r.DB.ExecContext(ctx, query, outcome.Status, providerCallID, outcome.Summary, id, outcome.Status == model.CallCalling)
	if err != nil {
		return false, appErrors.NewPersistence("update call record status", err)
	}
	return affectedOne(res)
}

func (r *CallRecordRepository) GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM call_records WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, appErrors.NewPersistence("call record stats", err)
	}
	defer rows.Close()

	stats := map[string]int{
		"total":                     0,
		string(model.CallPending):   0,
		string(model.CallCalling):   0,
		string(model.CallFailed):    0,
		string(model.CallCancelled): 0,
		string(model.CallCompleted): 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, appErrors.NewPersistence("scan call record stats", err)
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

var _ CallRecordRepositoryInterface = (*CallRecordRepository)(nil)
