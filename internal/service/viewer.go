package service

// Roles carried in the caller's token. Observers (the console's admin
// read-only mode) may view any conversation but never write.
const (
	RoleUser     = "user"
	RoleObserver = "observer"
)

// Viewer is the authenticated caller of an operation.
type Viewer struct {
	ID   string
	Name string
	Role string
}

func (v Viewer) IsObserver() bool {
	return v.Role == RoleObserver
}
