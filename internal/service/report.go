package service

import (
	"github.com/google/uuid"

	"github.com/victor-igor/wacrm-backend/internal/repository"
)

// ReportService loads a campaign's log history and folds it into chart-ready
// statistics via Aggregate.
type ReportService struct {
	Campaigns repository.CampaignRepositoryInterface
	Logs      repository.CampaignLogRepositoryInterface
}

// Report aggregates the campaign's full log history, optionally bounded to a
// window.
func (s *ReportService) Report(campaignID uuid.UUID, window *Window) (CampaignStats, error) {
	campaign, err := s.Campaigns.GetByID(campaignID)
	if err != nil {
		return CampaignStats{}, err
	}
	logs, err := s.Logs.ListByCampaign(campaignID)
	if err != nil {
		return CampaignStats{}, err
	}
	return Aggregate(campaign, logs, window), nil
}
