package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IndividualRanking is a fully recomputed per-account snapshot row for one
// (year, month) period. Rows for a period are replaced atomically, never
// updated in place. AccountName and Department are captured at recompute
// time so leaderboards stay readable after an account is deactivated.
type IndividualRanking struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID     uuid.UUID       `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_individual_rankings_period"`
	AccountName   string          `gorm:"column:account_name;not null;default:''"`
	Department    string          `gorm:"column:department;not null;default:''"`
	Year          int             `gorm:"column:year;not null;uniqueIndex:idx_individual_rankings_period"`
	Month         int             `gorm:"column:month;not null;uniqueIndex:idx_individual_rankings_period"`
	ReductionRate decimal.Decimal `gorm:"column:reduction_rate;type:numeric(6,2);not null"`
	TotalPoints   int             `gorm:"column:total_points;not null"`
	Rank          int             `gorm:"column:rank;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// DepartmentRanking aggregates the ranked members of one department for a
// period. Same replace-only lifecycle as IndividualRanking.
type DepartmentRanking struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Department       string          `gorm:"column:department;not null;uniqueIndex:idx_department_rankings_period"`
	Year             int             `gorm:"column:year;not null;uniqueIndex:idx_department_rankings_period"`
	Month            int             `gorm:"column:month;not null;uniqueIndex:idx_department_rankings_period"`
	AvgReductionRate decimal.Decimal `gorm:"column:avg_reduction_rate;type:numeric(6,2);not null"`
	TotalPoints      int             `gorm:"column:total_points;not null"`
	MemberCount      int             `gorm:"column:member_count;not null"`
	Rank             int             `gorm:"column:rank;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
