// internal/services/authz.go
package services

import (
	"github.com/ricelink/ricelink-backend/internal/models"
)

// Authorize reports whether the actor's role is in the allowed set. It is
// the single capability check used by every core operation; delivery-layer
// middleware calls the same function.
func Authorize(role models.Role, allowed ...models.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// IsSupervisor reports whether the role sees all records regardless of
// ownership (government oversight and platform administration).
func IsSupervisor(role models.Role) bool {
	return role == models.RoleGovt || role == models.RoleAdmin
}
