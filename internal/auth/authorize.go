package auth

import "github.com/BradenHooton/littlespace/internal/models"

// RoleSet is an allow-list of roles for an operation
type RoleSet []models.Role

var (
	// AdminOnly guards task create, edit and delete
	AdminOnly = RoleSet{models.RoleAdmin}
	// TaskViewers guards task reads, status changes and last-seen tracking
	TaskViewers = RoleSet{models.RoleAdmin, models.RoleRestricted}
)

func (rs RoleSet) Contains(role models.Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns user when its role is in allowed
func Authorize(user *models.User, allowed RoleSet) (*models.User, error) {
	if user == nil {
		return nil, models.ErrUnauthenticated
	}
	if !allowed.Contains(user.Role) {
		return nil, models.ErrForbidden
	}
	return user, nil
}
