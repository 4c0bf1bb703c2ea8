package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
)

// CallRecordWriter defines the write the recorder needs
type CallRecordWriter interface {
	TransitionFromPending(ctx context.Context, id uuid.UUID, outcome model.Outcome) (bool, error)
}

// CallResultRecorder persists the outcome of each placement attempt.
type CallResultRecorder struct {
	Records CallRecordWriter
	Log     *zap.Logger
}

func NewCallResultRecorder(records CallRecordWriter, log *zap.Logger) *CallResultRecorder {
	return &CallResultRecorder{Records: records, Log: log}
}

// RecordAttempt moves a pending record to calling or failed. It returns
// false without error when the record was no longer pending.
func (r *CallResultRecorder) RecordAttempt(ctx context.Context, callRecordID uuid.UUID, outcome model.Outcome) (bool, error) {
	switch outcome.Status {
	case model.CallCalling:
		if outcome.ProviderCallID == "" {
			return false, appErrors.NewValidation("provider_call_id", "required for a calling outcome")
		}
		outcome.Summary = ""
	case model.CallFailed:
		if outcome.Summary == "" {
			outcome.Summary = "call placement failed"
		}
		outcome.ProviderCallID = ""
	default:
		return false, appErrors.NewValidation("status", "outcome must be calling or failed, got "+string(outcome.Status))
	}

	applied, err := r.Records.TransitionFromPending(ctx, callRecordID, outcome)
	if err != nil {
		return false, err
	}
	if !applied {
		r.Log.Warn("call record no longer pending, outcome ignored",
			zap.String("call_record_id", callRecordID.String()),
			zap.String("status", string(outcome.Status)))
	}
	return applied, nil
}
