package model

// RoleAdmin is the role allowed to manage coupons, stock and order status.
const RoleAdmin = "admin"

// Actor is the authenticated caller as established by the upstream auth layer.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
