package authz

import "authservice/internal/models"

func IsAdmin(role string) bool {
	return role == models.RoleAdmin
}

func Known(role string) bool {
	return role == models.RoleUser || role == models.RoleAdmin
}

// Allowed reports whether role is in allowed. Admin passes every check.
func Allowed(role string, allowed ...string) bool {
	if IsAdmin(role) {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
