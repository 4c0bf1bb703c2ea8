// internal/service/campaign_service.go
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/unclebandit/dialer-backend/internal/model"
)

type CampaignReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
}

type CallRecordStats interface {
	GetCampaignStats(ctx context.Context, campaignID uuid.UUID) (map[string]int, error)
}

// CampaignService serves read-only campaign views.
type CampaignService struct {
	Campaigns CampaignReader
	Records   CallRecordStats
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID uuid.UUID) (*CampaignDetails, error) {
	campaign, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Records.GetCampaignStats(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}
