package models

import (
	"time"

	"github.com/google/uuid"
)

// Reward is a redeemable catalog item with a fixed point cost. The catalog is
// maintained administratively and read-only from the ledger's perspective.
type Reward struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	PointCost   int       `gorm:"column:point_cost;not null"`
	Category    string    `gorm:"column:category;not null;default:''"`
	Active      bool      `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RewardRedemption links a redeem ledger entry to the catalog item it paid for.
type RewardRedemption struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID     uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	RewardID      uuid.UUID `gorm:"column:reward_id;type:uuid;not null"`
	LedgerEntryID uuid.UUID `gorm:"column:ledger_entry_id;type:uuid;not null"`
	PointsUsed    int       `gorm:"column:points_used;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
