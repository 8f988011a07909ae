package auth

import (
	"fmt"

	"github.com/jx-dohwan/devlog/internal/user"
)

// Access declares what a route requires. A public route needs no principal
// at all; an empty role set admits any authenticated principal.
type Access struct {
	Public bool
	Roles  []user.Role
}

// Public is the access declaration for routes that skip authentication.
var Public = Access{Public: true}

// Authenticated admits any signed-in principal.
var Authenticated = Access{}

// RequireRoles builds an access declaration for the given role set.
func RequireRoles(roles ...user.Role) Access {
	return Access{Roles: roles}
}

// Authorize decides whether the principal may use a route with the given
// access declaration. The returned ErrForbidden is wrapped with a
// diagnostic naming the subject, its role and the required set; that detail
// is for server-side logs, the client sees only a generic denial.
func Authorize(p *Principal, access Access) error {
	if access.Public {
		return nil
	}
	if p == nil {
		return ErrUnauthorized
	}
	if len(access.Roles) == 0 {
		return nil
	}
	for _, role := range access.Roles {
		if p.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: subject %s with role %s is not in required roles %v",
		ErrForbidden, p.ID, p.Role, access.Roles)
}
