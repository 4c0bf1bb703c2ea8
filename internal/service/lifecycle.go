package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dialer-backend/internal/errors"
	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/queue"
	"github.com/unclebandit/dialer-backend/internal/repository"
	"github.com/unclebandit/dialer-backend/internal/telemetry"
)

// BatchRunner runs one dispatch batch. Implemented by *BatchDispatcher.
type BatchRunner interface {
	RunBatch(ctx context.Context, campaignID uuid.UUID, agentID string, batchSize int) (*model.BatchResult, error)
}

// PendingCounter reports how many records of a campaign are still pending.
type PendingCounter interface {
	CountPending(ctx context.Context, campaignID uuid.UUID) (int, error)
}

// LifecycleController owns the campaign state machine and the control
// operations start, pause, resume and stop.
type LifecycleController struct {
	Campaigns  repository.CampaignRepositoryInterface
	Agents     repository.AgentRepositoryInterface
	Records    PendingCounter
	Dispatcher BatchRunner
	States     ExecutionStateStore
	Events     queue.Publisher
	BatchSize  int
	LeaseTTL   time.Duration
	Log        *zap.Logger
	Now        func() time.Time
}

// ExecuteRequest is a validated lifecycle request.
type ExecuteRequest struct {
	CampaignID     uuid.UUID
	Action         model.Action
	OrganizationID uuid.UUID
}

// ParseExecuteRequest validates raw identifiers and the action name.
func ParseExecuteRequest(campaignID, action, organizationID string) (ExecuteRequest, error) {
	var req ExecuteRequest

	id, err := uuid.Parse(strings.TrimSpace(campaignID))
	if err != nil {
		return req, appErrors.NewValidation("campaign_id", "must be a valid UUID")
	}
	if strings.TrimSpace(action) == "" {
		return req, appErrors.NewValidation("action", "is required")
	}
	a, err := model.ParseAction(strings.TrimSpace(action))
	if err != nil {
		return req, appErrors.NewValidation("action", err.Error())
	}
	if strings.TrimSpace(organizationID) == "" {
		return req, appErrors.NewValidation("organizationId", "is required")
	}
	org, err := uuid.Parse(strings.TrimSpace(organizationID))
	if err != nil {
		return req, appErrors.NewValidation("organizationId", "must be a valid UUID")
	}
	return ExecuteRequest{CampaignID: id, Action: a, OrganizationID: org}, nil
}

// Execute applies one lifecycle action to a campaign of the organization.
func (s *LifecycleController) Execute(ctx context.Context, req ExecuteRequest) (*model.ExecutionResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "campaign.execute")
	span.SetAttributes(
		attribute.String("campaign.id", req.CampaignID.String()),
		attribute.String("campaign.action", string(req.Action)),
	)
	defer span.End()

	log := s.Log.With(zap.String("campaign_id", req.CampaignID.String()), zap.String("action", string(req.Action)))

	res, err := s.execute(ctx, req, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("campaign action failed", zap.Error(err))
		return nil, err
	}
	log.Info("campaign action applied", zap.String("status", string(res.Status)))
	return res, nil
}

func (s *LifecycleController) execute(ctx context.Context, req ExecuteRequest, log *zap.Logger) (*model.ExecutionResult, error) {
	campaign, err := s.Campaigns.GetForOrganization(ctx, req.CampaignID, req.OrganizationID)
	if err != nil {
		return nil, err
	}

	t, ok := model.Lookup(campaign.Status, req.Action)
	if !ok {
		return nil, &appErrors.TransitionError{From: string(campaign.Status), Action: string(req.Action)}
	}

	switch {
	case t.RunsBatch:
		return s.dispatch(ctx, campaign, t, log)
	case t.To == model.CampaignCompleted:
		return s.stop(ctx, campaign, t)
	default:
		return s.pause(ctx, campaign, t)
	}
}

// pause is a conditional status write without the lease, so it can land
// while a batch runs and takes effect at the batch boundary.
func (s *LifecycleController) pause(ctx context.Context, c *model.Campaign, t model.Transition) (*model.ExecutionResult, error) {
	ok, err := s.Campaigns.TransitionStatus(ctx, c.ID, t.From, t.To)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &appErrors.ConflictError{Msg: "campaign status changed concurrently, retry the request"}
	}

	s.updateState(ctx, c, t.To)
	s.publishStatus(ctx, c, t.Action, t.To, 0)
	return &model.ExecutionResult{
		CampaignID: c.ID,
		Action:     t.Action,
		Status:     t.To,
		Message:    "Campaign paused; in-flight calls continue, no new calls will be placed",
	}, nil
}

// stop does not take the lease. Cancelling the pending records is what
// halts a running batch: the dispatcher skips records that left pending.
func (s *LifecycleController) stop(ctx context.Context, c *model.Campaign, t model.Transition) (*model.ExecutionResult, error) {
	if t.From == t.To {
		return &model.ExecutionResult{
			CampaignID: c.ID,
			Action:     t.Action,
			Status:     t.To,
			Message:    "Campaign already completed",
		}, nil
	}

	cancelled, err := s.Campaigns.Complete(ctx, c.ID, model.StoppedByUserSummary)
	if err != nil {
		return nil, err
	}

	s.updateState(ctx, c, t.To)
	s.publishStatus(ctx, c, t.Action, t.To, cancelled)
	return &model.ExecutionResult{
		CampaignID: c.ID,
		Action:     t.Action,
		Status:     t.To,
		Message:    fmt.Sprintf("Campaign stopped; %d pending calls cancelled", cancelled),
		Cancelled:  cancelled,
	}, nil
}

// dispatch handles start and resume: guard, move to running, run one batch
// and fold it into the rollups.
func (s *LifecycleController) dispatch(ctx context.Context, c *model.Campaign, t model.Transition, log *zap.Logger) (*model.ExecutionResult, error) {
	action := t.Action
	release, err := s.acquire(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	agent, err := s.Agents.GetByID(ctx, c.AgentID, c.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !agent.Integrated() {
		return nil, appErrors.NewValidation("agent",
			fmt.Sprintf("agent %s is not integrated with the voice provider", agent.ID))
	}

	pending, err := s.Records.CountPending(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		if c.Status == model.CampaignDraft {
			return nil, appErrors.ErrNoPendingCalls
		}
		return s.completeNaturally(ctx, c, action)
	}

	prior := c.Status
	if err := s.markRunning(ctx, c); err != nil {
		return nil, err
	}

	batch, err := s.Dispatcher.RunBatch(ctx, c.ID, *agent.ProviderAgentID, s.BatchSize)
	if err != nil {
		s.revert(ctx, c.ID, prior, log)
		return nil, fmt.Errorf("campaign batch failed: %w", err)
	}
	if batch.Attempted == 0 {
		return s.settleEmptyBatch(ctx, c, prior, action, log)
	}

	updated, err := s.Campaigns.ApplyBatchCounters(ctx, c.ID, batch.Attempted, batch.Succeeded, batch.Failed)
	if err != nil {
		s.revert(ctx, c.ID, prior, log)
		return nil, err
	}

	now := s.now()
	state := model.StateFromCampaign(updated)
	state.Errors = batch.Errors()
	state.LastBatchAt = &now
	state.Source = model.StateSourceLive
	if err := s.States.Put(ctx, state); err != nil {
		log.Warn("failed to store execution state", zap.Error(err))
	}

	s.publish(ctx, queue.TopicBatchCompleted, queue.BatchCompletedEvent{
		CampaignID: c.ID,
		Attempted:  batch.Attempted,
		Succeeded:  batch.Succeeded,
		Failed:     batch.Failed,
		Results:    batch.Results,
		OccurredAt: now,
	})
	// A pause or stop that landed mid-batch publishes its own event.
	if prior != t.To && updated.Status == t.To {
		s.publishStatus(ctx, c, action, t.To, 0)
	}

	return &model.ExecutionResult{
		CampaignID: c.ID,
		Action:     action,
		Status:     updated.Status,
		Message: fmt.Sprintf("Processed %d calls: %d succeeded, %d failed",
			batch.Attempted, batch.Succeeded, batch.Failed),
		Batch: batch,
	}, nil
}

func (s *LifecycleController) markRunning(ctx context.Context, c *model.Campaign) error {
	var (
		ok  bool
		err error
	)
	switch c.Status {
	case model.CampaignDraft:
		ok, err = s.Campaigns.MarkStarted(ctx, c.ID, model.CampaignDraft)
	case model.CampaignPaused:
		ok, err = s.Campaigns.TransitionStatus(ctx, c.ID, model.CampaignPaused, model.CampaignRunning)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		return &appErrors.ConflictError{Msg: "campaign status changed concurrently, retry the request"}
	}
	return nil
}

// settleEmptyBatch handles a batch that placed nothing although records were
// counted as pending: a concurrent stop completed the campaign, or the
// records left pending between the count and the selection.
func (s *LifecycleController) settleEmptyBatch(ctx context.Context, c *model.Campaign, prior model.CampaignStatus, action model.Action, log *zap.Logger) (*model.ExecutionResult, error) {
	current, err := s.Campaigns.GetByID(ctx, c.ID)
	if err != nil {
		s.revert(ctx, c.ID, prior, log)
		return nil, err
	}
	switch current.Status {
	case model.CampaignCompleted, model.CampaignPaused:
		return &model.ExecutionResult{
			CampaignID: c.ID,
			Action:     action,
			Status:     current.Status,
			Message:    fmt.Sprintf("Campaign was %s before any call was placed", current.Status),
		}, nil
	}
	if prior == model.CampaignDraft {
		s.revert(ctx, c.ID, prior, log)
		return nil, appErrors.ErrNoPendingCalls
	}
	return s.completeNaturally(ctx, c, action)
}

// completeNaturally finishes a started campaign whose records are all dispatched.
func (s *LifecycleController) completeNaturally(ctx context.Context, c *model.Campaign, action model.Action) (*model.ExecutionResult, error) {
	if _, err := s.Campaigns.Complete(ctx, c.ID, model.CompletedSummary); err != nil {
		return nil, err
	}
	s.updateState(ctx, c, model.CampaignCompleted)
	s.publishStatus(ctx, c, action, model.CampaignCompleted, 0)
	return &model.ExecutionResult{
		CampaignID: c.ID,
		Action:     action,
		Status:     model.CampaignCompleted,
		Message:    "All calls have been dispatched; campaign completed",
	}, nil
}

// revert restores the pre-call status after a failed batch.
func (s *LifecycleController) revert(ctx context.Context, id uuid.UUID, prior model.CampaignStatus, log *zap.Logger) {
	if prior == model.CampaignRunning {
		return
	}
	ok, err := s.Campaigns.TransitionStatus(context.WithoutCancel(ctx), id, model.CampaignRunning, prior)
	if err != nil || !ok {
		log.Error("failed to revert campaign status",
			zap.String("to", string(prior)), zap.Bool("applied", ok), zap.Error(err))
	}
}

func (s *LifecycleController) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	ttl := s.LeaseTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	token, ok, err := s.Campaigns.AcquireLease(ctx, id, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &appErrors.ConflictError{Msg: "campaign is busy processing another request"}
	}
	return func() {
		if err := s.Campaigns.ReleaseLease(context.WithoutCancel(ctx), id, token); err != nil {
			s.Log.Error("failed to release campaign lease",
				zap.String("campaign_id", id.String()), zap.Error(err))
		}
	}, nil
}

// GetExecutionStatus returns the live execution state, or a minimal view
// rebuilt from the persisted campaign row.
func (s *LifecycleController) GetExecutionStatus(ctx context.Context, campaignID uuid.UUID) (*model.ExecutionState, error) {
	state, ok, err := s.States.Get(ctx, campaignID)
	if err != nil {
		s.Log.Warn("execution state lookup failed, using persisted campaign",
			zap.String("campaign_id", campaignID.String()), zap.Error(err))
	}
	if err == nil && ok {
		state.Source = model.StateSourceLive
		return state, nil
	}

	c, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return model.StateFromCampaign(c), nil
}

// updateState records a status change while keeping the last batch's errors.
func (s *LifecycleController) updateState(ctx context.Context, c *model.Campaign, status model.CampaignStatus) {
	state, ok, err := s.States.Get(ctx, c.ID)
	if err != nil || !ok {
		state = model.StateFromCampaign(c)
	}
	state.Status = status
	state.Source = model.StateSourceLive
	if err := s.States.Put(ctx, state); err != nil {
		s.Log.Warn("failed to store execution state",
			zap.String("campaign_id", c.ID.String()), zap.Error(err))
	}
}

func (s *LifecycleController) publishStatus(ctx context.Context, c *model.Campaign, action model.Action, to model.CampaignStatus, cancelled int) {
	s.publish(ctx, queue.TopicStatusChanged, queue.StatusChangedEvent{
		CampaignID:     c.ID,
		OrganizationID: c.OrganizationID,
		Action:         action,
		From:           c.Status,
		To:             to,
		Cancelled:      cancelled,
		OccurredAt:     s.now(),
	})
}

func (s *LifecycleController) publish(ctx context.Context, topic string, ev queue.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, topic, ev); err != nil {
		s.Log.Warn("failed to publish campaign event",
			zap.String("topic", topic), zap.String("campaign_id", ev.CampaignKey()), zap.Error(err))
	}
}

func (s *LifecycleController) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
