package models

import "strings"

// Role is a user's access role. Roles are ordered: user < moderator < editor < admin.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleEditor    Role = "editor"
	RoleAdmin     Role = "admin"
)

var roleLevels = map[Role]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleEditor:    3,
	RoleAdmin:     4,
}

// ParseRole normalizes raw into a known role.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := roleLevels[r]
	return r, ok
}

// Level returns the numeric rank of the role, 0 for unknown roles.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r ranks at or above min. Unknown roles never pass.
func (r Role) AtLeast(min Role) bool {
	level := r.Level()
	return level > 0 && level >= min.Level()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// Roles lists every role in ascending order.
func Roles() []Role {
	return []Role{RoleUser, RoleModerator, RoleEditor, RoleAdmin}
}
