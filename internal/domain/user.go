package domain

import "time"

// Role enumerates the four workflow actor roles.
type Role string

const (
	RoleTenant   Role = "TENANT"
	RoleGM       Role = "GM"
	RoleDeptHead Role = "DEPT_HEAD"
	RoleStaff    Role = "STAFF"
)

// Valid reports whether the role is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleGM, RoleDeptHead, RoleStaff:
		return true
	}
	return false
}

// User is a directory member: tenant reporter, general manager, department
// head, or department staff. DepartmentID is set for heads and staff only.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	DepartmentID *string
	CreatedAt    time.Time
}

// BelongsTo reports whether the user is attached to the given department.
func (u *User) BelongsTo(deptID string) bool {
	return u.DepartmentID != nil && *u.DepartmentID == deptID
}
