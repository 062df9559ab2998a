package auth

import (
	"github.com/ecochamp/ecochamp-backend/internal/accounts"
)

// RegisterRequest contains the payload required to onboard a new employee.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	Name        string  `json:"name" validate:"required"`
	Department  string  `json:"department" validate:"required"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	CompanyCode *string `json:"company_code,omitempty"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the tokens and account produced by a successful
// registration or login.
type AuthResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	Account      *accounts.AccountDTO `json:"account"`
}
