// Package store keeps execution states in DynamoDB so every server and
// worker instance serves the same live view.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/service"
)

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type DynamoExecutionStore struct {
	db        DynamoAPI
	tableName string
	ttl       time.Duration
}

// stateItem is the table row. campaign_id is the partition key and
// expires_at is the table's TTL attribute.
type stateItem struct {
	CampaignID      string   `dynamodbav:"campaign_id"`
	Status          string   `dynamodbav:"status"`
	TotalContacts   int      `dynamodbav:"total_contacts"`
	CompletedCalls  int      `dynamodbav:"completed_calls"`
	SuccessfulCalls int      `dynamodbav:"successful_calls"`
	FailedCalls     int      `dynamodbav:"failed_calls"`
	Errors          []string `dynamodbav:"errors"`
	LastBatchAt     int64    `dynamodbav:"last_batch_at,omitempty"`
	UpdatedAt       int64    `dynamodbav:"updated_at"`
	ExpiresAt       int64    `dynamodbav:"expires_at,omitempty"`
}

func NewDynamoExecutionStore(ctx context.Context, region, table, endpoint string, ttl time.Duration) (*DynamoExecutionStore, error) {
	if table == "" {
		return nil, fmt.Errorf("dynamo table is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoExecutionStoreWithClient(client, table, ttl), nil
}

func NewDynamoExecutionStoreWithClient(db DynamoAPI, table string, ttl time.Duration) *DynamoExecutionStore {
	return &DynamoExecutionStore{db: db, tableName: table, ttl: ttl}
}

func (s *DynamoExecutionStore) Get(ctx context.Context, campaignID uuid.UUID) (*model.ExecutionState, bool, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"campaign_id": &types.AttributeValueMemberS{Value: campaignID.String()},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("get execution state: %w", err)
	}
	if out.Item == nil {
		return nil, false, nil
	}

	var item stateItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, err
	}
	state, err := item.toState()
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

func (s *DynamoExecutionStore) Put(ctx context.Context, state *model.ExecutionState) error {
	item := newStateItem(state, time.Now(), s.ttl)
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put execution state: %w", err)
	}
	return nil
}

func newStateItem(state *model.ExecutionState, now time.Time, ttl time.Duration) stateItem {
	item := stateItem{
		CampaignID:      state.CampaignID.String(),
		Status:          string(state.Status),
		TotalContacts:   state.TotalContacts,
		CompletedCalls:  state.CompletedCalls,
		SuccessfulCalls: state.SuccessfulCalls,
		FailedCalls:     state.FailedCalls,
		Errors:          append([]string{}, state.Errors...),
		UpdatedAt:       now.UnixMilli(),
	}
	if state.LastBatchAt != nil {
		item.LastBatchAt = state.LastBatchAt.UnixMilli()
	}
	if ttl > 0 {
		item.ExpiresAt = now.Add(ttl).Unix()
	}
	return item
}

func (i stateItem) toState() (*model.ExecutionState, error) {
	id, err := uuid.Parse(i.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("execution state has bad campaign_id %q: %w", i.CampaignID, err)
	}
	state := &model.ExecutionState{
		CampaignID:      id,
		Status:          model.CampaignStatus(i.Status),
		TotalContacts:   i.TotalContacts,
		CompletedCalls:  i.CompletedCalls,
		SuccessfulCalls: i.SuccessfulCalls,
		FailedCalls:     i.FailedCalls,
		Errors:          append([]string{}, i.Errors...),
		Source:          model.StateSourceLive,
	}
	if i.LastBatchAt != 0 {
		t := time.UnixMilli(i.LastBatchAt).UTC()
		state.LastBatchAt = &t
	}
	return state, nil
}

var _ service.ExecutionStateStore = (*DynamoExecutionStore)(nil)
