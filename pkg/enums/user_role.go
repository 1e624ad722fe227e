package enums

import "fmt"

// UserRole is the dashboard role carried in access tokens.
type UserRole string

const (
	UserRoleShop  UserRole = "shop"
	UserRoleAdmin UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleShop,
	UserRoleAdmin,
}

// String returns the string representation.
func (v UserRole) String() string {
	return string(v)
}

// IsValid reports whether the value is supported.
func (v UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
