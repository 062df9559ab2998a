package rankings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/internal/usage"
	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UsageSource supplies per-account usage totals for a period.
type UsageSource interface {
	TotalsByAccount(ctx context.Context, from, to time.Time) (map[uuid.UUID]usage.TypeTotals, error)
}

// Service recomputes and serves the monthly leaderboard snapshots.
type Service interface {
	Recompute(ctx context.Context, year, month int) (*RecomputeResult, error)
	Individual(ctx context.Context, year, month, limit int) ([]IndividualEntry, error)
	Departments(ctx context.Context, year, month int) ([]models.DepartmentRanking, error)
	Position(ctx context.Context, accountID uuid.UUID, year, month int) (*PositionResult, error)
	Achievements(ctx context.Context, accountID uuid.UUID) ([]Achievement, error)
}

type service struct {
	repo  Repository
	usage UsageSource
	tx    txRunner
}

// RecomputeResult summarises one snapshot rebuild.
type RecomputeResult struct {
	Year        int `json:"year"`
	Month       int `json:"month"`
	Individuals int `json:"individuals"`
	Departments int `json:"departments"`
}

// IndividualEntry is a leaderboard row with the display fields captured when
// the snapshot was computed.
type IndividualEntry struct {
	Rank          int             `json:"rank"`
	AccountID     uuid.UUID       `json:"account_id"`
	Name          string          `json:"name"`
	Department    string          `json:"department"`
	ReductionRate decimal.Decimal `json:"reduction_rate"`
	TotalPoints   int             `json:"total_points"`
}

// PositionResult reports one account's standing within a period snapshot.
type PositionResult struct {
	Ranked        bool            `json:"ranked"`
	Rank          int             `json:"rank"`
	ReductionRate decimal.Decimal `json:"reduction_rate"`
	TotalPoints   int             `json:"total_points"`
	Participants  int64           `json:"participants"`
}

// Achievement is a badge derived from ranking snapshots.
type Achievement struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Earned      bool   `json:"earned"`
}

// NewService wires a rankings service with its repository, usage source and
// transaction runner.
func NewService(repo Repository, usageSource UsageSource, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rankings repository required")
	}
	if usageSource == nil {
		return nil, fmt.Errorf("usage source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, usage: usageSource, tx: tx}, nil
}

// Recompute rebuilds both snapshot tables for (year, month). The delete and
// reinsert happen in one transaction so readers never observe a partial
// leaderboard. Accounts without a positive reduction are excluded.
func (s *service) Recompute(ctx context.Context, year, month int) (*RecomputeResult, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	currStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	currEnd := currStart.AddDate(0, 1, 0)
	prevStart := currStart.AddDate(0, -1, 0)

	currTotals, err := s.usage.TotalsByAccount(ctx, currStart, currEnd)
	if err != nil {
		return nil, fmt.Errorf("loading current usage: %w", err)
	}
	prevTotals, err := s.usage.TotalsByAccount(ctx, prevStart, currStart)
	if err != nil {
		return nil, fmt.Errorf("loading previous usage: %w", err)
	}

	accounts, err := s.repo.ListActiveAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}

	individuals := rankIndividuals(accounts, prevTotals, currTotals, year, month)
	departments := rankDepartments(individuals, year, month)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeletePeriod(ctx, year, month); err != nil {
			return err
		}
		if err := repo.InsertIndividual(ctx, individuals); err != nil {
			return err
		}
		return repo.InsertDepartments(ctx, departments)
	})
	if err != nil {
		return nil, err
	}

	return &RecomputeResult{
		Year:        year,
		Month:       month,
		Individuals: len(individuals),
		Departments: len(departments),
	}, nil
}

func rankIndividuals(accounts []models.Account, prev, curr map[uuid.UUID]usage.TypeTotals, year, month int) []models.IndividualRanking {
	type candidate struct {
		account   models.Account
		reduction decimal.Decimal
	}

	var candidates []candidate
	for _, account := range accounts {
		prevTotal := sumTotals(prev[account.ID])
		currTotal := sumTotals(curr[account.ID])
		if prevTotal <= 0 {
			continue
		}
		reduction := decimal.NewFromFloat((prevTotal - currTotal) / prevTotal * 100).Round(2)
		if !reduction.IsPositive() {
			continue
		}
		candidates = append(candidates, candidate{account: account, reduction: reduction})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].reduction.Equal(candidates[j].reduction) {
			return candidates[i].reduction.GreaterThan(candidates[j].reduction)
		}
		return candidates[i].account.Points > candidates[j].account.Points
	})

	rows := make([]models.IndividualRanking, 0, len(candidates))
	for i, c := range candidates {
		rows = append(rows, models.IndividualRanking{
			AccountID:     c.account.ID,
			AccountName:   c.account.Name,
			Department:    c.account.Department,
			Year:          year,
			Month:         month,
			ReductionRate: c.reduction,
			TotalPoints:   c.account.Points,
			Rank:          i + 1,
		})
	}
	return rows
}

func rankDepartments(individuals []models.IndividualRanking, year, month int) []models.DepartmentRanking {
	type aggregate struct {
		reductionSum decimal.Decimal
		totalPoints  int
		members      int
	}
	aggregates := map[string]*aggregate{}
	for _, row := range individuals {
		department := row.Department
		if department == "" {
			continue
		}
		agg := aggregates[department]
		if agg == nil {
			agg = &aggregate{}
			aggregates[department] = agg
		}
		agg.reductionSum = agg.reductionSum.Add(row.ReductionRate)
		agg.totalPoints += row.TotalPoints
		agg.members++
	}

	rows := make([]models.DepartmentRanking, 0, len(aggregates))
	for department, agg := range aggregates {
		rows = append(rows, models.DepartmentRanking{
			Department:       department,
			Year:             year,
			Month:            month,
			AvgReductionRate: agg.reductionSum.Div(decimal.NewFromInt(int64(agg.members))).Round(2),
			TotalPoints:      agg.totalPoints,
			MemberCount:      agg.members,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].AvgReductionRate.Equal(rows[j].AvgReductionRate) {
			return rows[i].AvgReductionRate.GreaterThan(rows[j].AvgReductionRate)
		}
		return rows[i].TotalPoints > rows[j].TotalPoints
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func sumTotals(totals usage.TypeTotals) float64 {
	var sum float64
	for _, amount := range totals {
		sum += amount
	}
	return sum
}

func (s *service) Individual(ctx context.Context, year, month, limit int) ([]IndividualEntry, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListIndividual(ctx, year, month, limit)
	if err != nil {
		return nil, err
	}

	// Display fields come from the snapshot itself, so entries stay labelled
	// even after the underlying account is deactivated.
	entries := make([]IndividualEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, IndividualEntry{
			Rank:          row.Rank,
			AccountID:     row.AccountID,
			Name:          row.AccountName,
			Department:    row.Department,
			ReductionRate: row.ReductionRate,
			TotalPoints:   row.TotalPoints,
		})
	}
	return entries, nil
}

func (s *service) Departments(ctx context.Context, year, month int) ([]models.DepartmentRanking, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	return s.repo.ListDepartments(ctx, year, month)
}

func (s *service) Position(ctx context.Context, accountID uuid.UUID, year, month int) (*PositionResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	row, participants, err := s.repo.FindPosition(ctx, accountID, year, month)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &PositionResult{Ranked: false, Participants: participants}, nil
	}
	return &PositionResult{
		Ranked:        true,
		Rank:          row.Rank,
		ReductionRate: row.ReductionRate,
		TotalPoints:   row.TotalPoints,
		Participants:  participants,
	}, nil
}

const (
	achievementMonthlyWinner   = "monthly_winner"
	achievementTopTenStreak    = "top_ten_x3"
	achievementBigReduction    = "reduction_15"
	achievementPointsMilestone = "points_1000"
)

var reductionBadgeThreshold = decimal.NewFromInt(15)

// Achievements derives badges from the account's snapshot history.
func (s *service) Achievements(ctx context.Context, accountID uuid.UUID) ([]Achievement, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	rows, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var (
		won       bool
		topTen    int
		bigCut    bool
		maxPoints int
	)
	for _, row := range rows {
		if row.Rank == 1 {
			won = true
		}
		if row.Rank <= 10 {
			topTen++
		}
		if row.ReductionRate.GreaterThanOrEqual(reductionBadgeThreshold) {
			bigCut = true
		}
		if row.TotalPoints > maxPoints {
			maxPoints = row.TotalPoints
		}
	}

	return []Achievement{
		{
			Code:        achievementMonthlyWinner,
			Name:        "Monthly Winner",
			Description: "Finished first in a monthly ranking",
			Earned:      won,
		},
		{
			Code:        achievementTopTenStreak,
			Name:        "Top 10 Regular",
			Description: "Placed in the top 10 three times",
			Earned:      topTen >= 3,
		},
		{
			Code:        achievementBigReduction,
			Name:        "Serious Saver",
			Description: "Cut usage by 15% or more in a month",
			Earned:      bigCut,
		},
		{
			Code:        achievementPointsMilestone,
			Name:        "Point Collector",
			Description: "Held 1000 or more points",
			Earned:      maxPoints >= 1000,
		},
	}, nil
}

func validatePeriod(year, month int) error {
	if year < 2000 || year > 2200 {
		return pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}
	if month < 1 || month > 12 {
		return pkgerrors.New(pkgerrors.CodeValidation, "month out of range")
	}
	return nil
}
