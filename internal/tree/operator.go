package tree

import "errors"

// Role names as issued by the backend's session.
const (
	RoleAdmin           = "admin"
	RoleServiceProvider = "service_provider"
	RolePartsProvider   = "parts_provider"
)

var ErrNotAdmin = errors.New("category management requires an admin operator")

// Operator is the signed-in user driving the view. It is passed in
// explicitly rather than read from global session state.
type Operator struct {
	ID   string
	Name string
	Role string
}

// RequireAdmin is a plain role check, not a security boundary. The backend
// enforces authorization on its own.
func RequireAdmin(op *Operator) error {
	if op == nil || op.Role != RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}
