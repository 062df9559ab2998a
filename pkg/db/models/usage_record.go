package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

// UsageRecord is a raw metered usage row ingested from bills or manual entry.
// Records are never mutated once written; rankings derive from them.
type UsageRecord struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID  uuid.UUID        `gorm:"column:account_id;type:uuid;not null;index"`
	EnergyType enums.EnergyType `gorm:"column:energy_type;type:energy_type_enum;not null"`
	Amount     decimal.Decimal  `gorm:"column:amount;type:numeric(12,3);not null"`
	Cost       decimal.Decimal  `gorm:"column:cost;type:numeric(12,2);not null"`
	Unit       string           `gorm:"column:unit;not null;default:''"`
	UsageDate  time.Time        `gorm:"column:usage_date;not null;index"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}
