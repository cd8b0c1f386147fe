package models

// Actor is the authenticated principal acting on a core operation.
// It is derived from the verified token claims and passed explicitly into
// every service call; there is no ambient current-user state.
type Actor struct {
	ID           string
	Role         UserRole
	DepartmentID *string
}

// Department returns the actor's department id, or "" when unset.
func (a Actor) Department() string {
	if a.DepartmentID == nil {
		return ""
	}
	return *a.DepartmentID
}
