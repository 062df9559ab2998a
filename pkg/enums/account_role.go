package enums

import "fmt"

// AccountRole maps to the account_role_enum enum in Postgres.
type AccountRole string

const (
	AccountRoleEmployee AccountRole = "employee"
	AccountRoleAdmin    AccountRole = "admin"
)

var validAccountRoles = []AccountRole{
	AccountRoleEmployee,
	AccountRoleAdmin,
}

// IsValid reports whether the value matches the canonical account role enum.
func (r AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAccountRole converts raw input into AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
