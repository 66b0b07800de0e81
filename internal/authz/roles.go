package authz

const (
	RoleWorker = 10
	RoleAdmin  = 50
)

func IsAdmin(roleID int) bool {
	return roleID == RoleAdmin
}

func IsKnownRole(roleID int) bool {
	return roleID == RoleWorker || roleID == RoleAdmin
}

// ActorContextKey is the gin context key holding the request's Actor.
const ActorContextKey = "actor"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID    int64
	RoleID    int
	CompanyID int64
}

func (a Actor) IsAdmin() bool {
	return IsAdmin(a.RoleID)
}
