package businessflow

import (
	"context"

	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/repository"
	"github.com/hendarSu/locationtracker/utils"
)

// StatsFlow computes dashboard aggregates. Results are always computed live.
type StatsFlow interface {
	ComputeStats(ctx context.Context) (*models.TrackingStats, error)
}

type StatsFlowImpl struct {
	linkRepo     repository.TrackingLinkRepository
	locationRepo repository.LocationRecordRepository
}

func NewStatsFlow(linkRepo repository.TrackingLinkRepository, locationRepo repository.LocationRecordRepository) StatsFlow {
	return &StatsFlowImpl{
		linkRepo:     linkRepo,
		locationRepo: locationRepo,
	}
}

func (f *StatsFlowImpl) ComputeStats(ctx context.Context) (*models.TrackingStats, error) {
	totalLinks, err := f.linkRepo.Count(ctx, models.TrackingLinkFilter{})
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to count tracking links", err)
	}
	totalLocations, err := f.locationRepo.Count(ctx, models.LocationRecordFilter{})
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to count locations", err)
	}
	uniquePhones, err := f.locationRepo.CountDistinctPhones(ctx)
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to count phone numbers", err)
	}
	activity, err := f.locationRepo.DailyActivity(ctx, utils.UTCNow().Add(-utils.RecentActivityWindow))
	if err != nil {
		return nil, NewBusinessError("STATS_FAILED", "Failed to compute recent activity", err)
	}
	if activity == nil {
		activity = []models.DailyActivity{}
	}

	return &models.TrackingStats{
		TotalLinks:     totalLinks,
		TotalLocations: totalLocations,
		UniquePhones:   uniquePhones,
		RecentActivity: activity,
	}, nil
}
