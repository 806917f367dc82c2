package services

import (
	"github.com/kendall-kelly/restaurant-pos-api/authz"
	"github.com/kendall-kelly/restaurant-pos-api/models"
)

// Principal is the authenticated actor behind an operation
type Principal struct {
	UserID uint
	Role   models.Role
}

func requirePermission(policy *authz.Policy, p Principal, permission authz.Permission) error {
	if !policy.HasPermission(p.Role, permission) {
		return forbiddenError("role %q is not allowed to %s", p.Role, permission)
	}
	return nil
}
