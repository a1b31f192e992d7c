package domain

import (
	"strings"
	"time"
)

// Role enumerates the actors of the maintenance workflow.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleTechnician Role = "TECHNICIAN"
	RoleStaff      Role = "STAFF"
)

// ParseRole maps an external role string onto the closed Role set.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RoleSupervisor, RoleTechnician, RoleStaff:
		return role, true
	}
	return "", false
}

// User is the collaborator view of an account.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TechnicianProfile carries technician-only attributes.
type TechnicianProfile struct {
	UserID    string
	Specialty string
	Available bool
	CreatedAt time.Time
}
