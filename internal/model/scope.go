package model

// Role is a restaurant membership privilege level.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// roleRank orders roles from most to least privileged; lower rank wins when
// resolving ties (spec.md 4.2: owner<admin<manager<staff).
var roleRank = map[Role]int{
	RoleOwner:   0,
	RoleAdmin:   1,
	RoleManager: 2,
	RoleStaff:   3,
}

// RoleRank returns the privilege rank of r, or len(roleRank) if unknown.
func RoleRank(r Role) int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return len(roleRank)
}

// RestaurantScope is the restaurant the current user operates under.
type RestaurantScope struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
	Role Role   `json:"role"`
}

// User identifies the signed-in backend account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthState is the in-memory authentication state of the running agent.
type AuthState struct {
	User  *User
	Scope *RestaurantScope
}

// Clear resets auth state, as performed by clearSession.
func (a *AuthState) Clear() {
	a.User = nil
	a.Scope = nil
}
