package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

// LedgerEntry records an immutable point balance change for an account.
// Rows are append-only; the sum of deltas for an account always equals the
// account's current balance.
type LedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID   uuid.UUID             `gorm:"column:account_id;type:uuid;not null;index"`
	Delta       int                   `gorm:"column:delta;not null"`
	Kind        enums.LedgerEntryKind `gorm:"column:kind;type:ledger_entry_kind_enum;not null"`
	Description string                `gorm:"column:description;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
