package progress

import (
	"context"

	"go.uber.org/zap"
)

// StatsAggregator computes read-only learning statistics and maintains the
// two denormalized user counters. All statistics are derived from the
// progress rows at query time; nothing here is incrementally maintained.
type StatsAggregator struct {
	store Store
	log   *zap.Logger
}

func NewStatsAggregator(store Store, log *zap.Logger) *StatsAggregator {
	return &StatsAggregator{store: store, log: log}
}

// RefreshUserCounters recomputes total watch time and completed-video count
// from scratch and writes them onto the user row. Callers treating this as a
// side effect should log the returned error and move on; the refresh is
// idempotent and the next completion will converge the counters anyway.
func (a *StatsAggregator) RefreshUserCounters(ctx context.Context, userID string) (UserCounters, error) {
	c, err := a.store.RefreshUserCounters(ctx, userID)
	if err != nil {
		a.log.Warn("refresh user counters", zap.String("user_id", userID), zap.Error(err))
		return UserCounters{}, err
	}
	return c, nil
}

// GetLearningStats assembles the three statistics sections. Each section is
// queried independently; a concurrent write may be visible in one section and
// not another, which is accepted for read-only reporting. A user with no
// progress gets zeroes and empty slices, never an error.
func (a *StatsAggregator) GetLearningStats(ctx context.Context, userID string) (LearningStats, error) {
	overall, err := a.store.OverallStats(ctx, userID)
	if err != nil {
		return LearningStats{}, err
	}
	bySubject, err := a.store.SubjectStats(ctx, userID)
	if err != nil {
		return LearningStats{}, err
	}
	recent, err := a.store.RecentActivity(ctx, userID, recentActivityLimit)
	if err != nil {
		return LearningStats{}, err
	}

	if bySubject == nil {
		bySubject = []SubjectStats{}
	}
	if recent == nil {
		recent = []ActivityItem{}
	}
	return LearningStats{Overall: overall, BySubject: bySubject, RecentActivity: recent}, nil
}
