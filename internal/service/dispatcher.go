package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/telemetry"
)

const DefaultBatchSize = 10

// PendingCallSource defines the read the dispatcher needs
type PendingCallSource interface {
	ListPending(ctx context.Context, campaignID uuid.UUID, limit int) ([]model.PendingCall, error)
	IsPending(ctx context.Context, id uuid.UUID) (bool, error)
}

// CallPlacer places one call. Implemented by *gateway.Gateway.
type CallPlacer interface {
	PlaceCall(ctx context.Context, agentID, phoneNumber, displayName string) (string, error)
}

type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, callRecordID uuid.UUID, outcome model.Outcome) (bool, error)
}

// Pacer blocks until the next placement may be issued. A *rate.Limiter
// shared by every campaign on one provider account satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// BatchDispatcher drains one bounded batch of pending calls, sequentially.
type BatchDispatcher struct {
	Records  PendingCallSource
	Gateway  CallPlacer
	Recorder AttemptRecorder
	Pacer    Pacer
	Metrics  *telemetry.CallMetrics
	Log      *zap.Logger
}

// RunBatch attempts every selected record of the campaign that is still
// pending when its turn comes. Contact-level failures are recorded and never
// abort the loop. An error is returned only when the batch could not be
// selected at all.
func (d *BatchDispatcher) RunBatch(ctx context.Context, campaignID uuid.UUID, agentID string, batchSize int) (*model.BatchResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pending, err := d.Records.ListPending(ctx, campaignID, batchSize)
	if err != nil {
		return nil, err
	}

	result := &model.BatchResult{Results: make([]model.ContactResult, 0, len(pending))}
	for _, p := range pending {
		if err := d.Pacer.Wait(ctx); err != nil {
			if result.Attempted == 0 {
				return nil, err
			}
			// Unattempted records stay pending for the next batch.
			d.Log.Warn("batch interrupted",
				zap.String("campaign_id", campaignID.String()),
				zap.Int("attempted", result.Attempted),
				zap.Int("selected", len(pending)),
				zap.Error(err))
			break
		}

		if !d.stillPending(ctx, p.Record.ID) {
			result.Skipped++
			continue
		}

		cr := d.dispatchOne(ctx, agentID, p)
		result.Attempted++
		if cr.Status == model.CallCalling {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, cr)
	}

	d.Log.Info("batch finished",
		zap.String("campaign_id", campaignID.String()),
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// stillPending reports whether the record may be placed. A record cancelled
// by a stop after selection is skipped. A failed lookup also skips, leaving
// the record pending for the next batch.
func (d *BatchDispatcher) stillPending(ctx context.Context, id uuid.UUID) bool {
	ok, err := d.Records.IsPending(ctx, id)
	if err != nil {
		d.Log.Warn("failed to check call record status, skipping",
			zap.String("call_record_id", id.String()), zap.Error(err))
		return false
	}
	return ok
}

func (d *BatchDispatcher) dispatchOne(ctx context.Context, agentID string, p model.PendingCall) model.ContactResult {
	cr := model.ContactResult{
		CallRecordID: p.Record.ID,
		ContactID:    p.Contact.ID,
		PhoneNumber:  p.Contact.PhoneNumber,
	}

	started := time.Now()
	callID, placeErr := d.place(ctx, agentID, p.Contact)
	d.observe(ctx, time.Since(started), placeErr == nil)

	if placeErr != nil {
		cr.Status = model.CallFailed
		cr.Error = placeErr.Error()
		if _, err := d.Recorder.RecordAttempt(ctx, p.Record.ID, model.FailedOutcome(placeErr.Error())); err != nil {
			d.Log.Error("failed to record failed attempt",
				zap.String("call_record_id", p.Record.ID.String()), zap.Error(err))
		}
		return cr
	}

	applied, err := d.Recorder.RecordAttempt(ctx, p.Record.ID, model.CallingOutcome(callID))
	switch {
	case err != nil:
		cr.Status = model.CallFailed
		cr.ProviderCallID = callID
		cr.Error = fmt.Sprintf("call %s placed to %s but not recorded: %v", callID, p.Contact.PhoneNumber, err)
		d.Log.Error("failed to record placed call",
			zap.String("call_record_id", p.Record.ID.String()), zap.Error(err))
	case !applied:
		cr.Status = model.CallFailed
		cr.ProviderCallID = callID
		cr.Error = fmt.Sprintf("call record %s for %s was no longer pending", p.Record.ID, p.Contact.PhoneNumber)
	default:
		cr.Status = model.CallCalling
		cr.ProviderCallID = callID
	}
	return cr
}

// place converts a panicking provider into a placement error so one
// contact can never abort the batch.
func (d *BatchDispatcher) place(ctx context.Context, agentID string, c model.Contact) (callID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &appErrors.PlacementError{PhoneNumber: c.PhoneNumber, Msg: fmt.Sprintf("provider panic: %v", r)}
		}
	}()
	callID, err = d.Gateway.PlaceCall(ctx, agentID, c.PhoneNumber, c.DisplayName)
	if err != nil {
		var pe *appErrors.PlacementError
		if !errors.As(err, &pe) {
			err = &appErrors.PlacementError{PhoneNumber: c.PhoneNumber, Msg: err.Error(), Cause: err}
		}
	}
	return callID, err
}

func (d *BatchDispatcher) observe(ctx context.Context, elapsed time.Duration, ok bool) {
	if d.Metrics == nil {
		return
	}
	outcome := attribute.String("outcome", "succeeded")
	d.Metrics.Attempted.Add(ctx, 1)
	if ok {
		d.Metrics.Succeeded.Add(ctx, 1)
	} else {
		outcome = attribute.String("outcome", "failed")
		d.Metrics.Failed.Add(ctx, 1)
	}
	d.Metrics.Latency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(outcome))
}
