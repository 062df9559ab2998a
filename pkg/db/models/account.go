package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

// Account represents the canonical employee identity entity. The points
// balance is mutated only through the ledger service.
type Account struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	Name         string            `gorm:"column:name;not null"`
	Department   string            `gorm:"column:department;not null"`
	EmployeeID   *string           `gorm:"column:employee_id"`
	CompanyCode  *string           `gorm:"column:company_code"`
	Role         enums.AccountRole `gorm:"column:role;type:account_role_enum;not null;default:'employee'"`
	Points       int               `gorm:"column:points;not null;default:0"`
	IsActive     bool              `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
