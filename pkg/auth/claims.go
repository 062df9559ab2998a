package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID  uuid.UUID
	Name       string
	Department string
	Role       enums.AccountRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	AccountID  uuid.UUID         `json:"account_id"`
	Name       string            `json:"name"`
	Department string            `json:"department"`
	Role       enums.AccountRole `json:"role"`
	jwt.RegisteredClaims
}
