package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ecochamp/ecochamp-backend/internal/rankings"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
)

type rankingRecomputer interface {
	Recompute(ctx context.Context, year, month int) (*rankings.RecomputeResult, error)
}

// RankingRecomputeJobParams configure the monthly leaderboard refresh.
type RankingRecomputeJobParams struct {
	Logger   *logger.Logger
	Rankings rankingRecomputer
	Now      func() time.Time
}

// RankingRecomputeJob rebuilds the current period's ranking snapshots.
type RankingRecomputeJob struct {
	logg     *logger.Logger
	rankings rankingRecomputer
	now      func() time.Time
}

// NewRankingRecomputeJob builds the recompute job.
func NewRankingRecomputeJob(params RankingRecomputeJobParams) (*RankingRecomputeJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rankings == nil {
		return nil, fmt.Errorf("rankings service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &RankingRecomputeJob{
		logg:     params.Logger,
		rankings: params.Rankings,
		now:      now,
	}, nil
}

// Name implements Job.
func (j *RankingRecomputeJob) Name() string {
	return "ranking_recompute"
}

// Run recomputes the snapshots for the month the job fires in.
func (j *RankingRecomputeJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	year, month := now.Year(), int(now.Month())

	result, err := j.rankings.Recompute(ctx, year, month)
	if err != nil {
		return fmt.Errorf("recomputing rankings for %d-%02d: %w", year, month, err)
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"year":        result.Year,
		"month":       result.Month,
		"individuals": result.Individuals,
		"departments": result.Departments,
	})
	j.logg.Info(ctx, "ranking snapshots rebuilt")
	return nil
}
