package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

// AccountDTO is the transport shape that omits the credential hash.
type AccountDTO struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Department  string            `json:"department"`
	EmployeeID  *string           `json:"employee_id,omitempty"`
	CompanyCode *string           `json:"company_code,omitempty"`
	Role        enums.AccountRole `json:"role"`
	Points      int               `json:"points"`
	IsActive    bool              `json:"is_active"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CreateAccountDTO holds the data required by the repo to persist a new account.
type CreateAccountDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Department   string
	EmployeeID   *string
	CompanyCode  *string
	Role         enums.AccountRole
	IsActive     *bool
}

func FromModel(a *models.Account) *AccountDTO {
	if a == nil {
		return nil
	}

	return &AccountDTO{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Department:  a.Department,
		EmployeeID:  a.EmployeeID,
		CompanyCode: a.CompanyCode,
		Role:        a.Role,
		Points:      a.Points,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (c CreateAccountDTO) ToModel() *models.Account {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.AccountRoleEmployee
	}

	return &models.Account{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		Department:   c.Department,
		EmployeeID:   c.EmployeeID,
		CompanyCode:  c.CompanyCode,
		Role:         role,
		IsActive:     isActive,
	}
}
