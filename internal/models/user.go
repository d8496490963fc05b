package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin         UserRole = "ADMIN"
	RoleAccountsAdmin UserRole = "ACCOUNTS_ADMIN"
	RoleTeacher       UserRole = "TEACHER"
	RoleStudent       UserRole = "STUDENT"
)

// Valid reports whether the role is one the API understands.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountsAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Staff reports whether the role acts on behalf of the institution.
func (r UserRole) Staff() bool {
	return r == RoleAdmin || r == RoleAccountsAdmin || r == RoleTeacher
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
