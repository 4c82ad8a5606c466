package models

import "time"

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

func (s UserStatus) Valid() bool { return s == UserActive || s == UserInactive }

// User is a console account. PasswordHash never leaves the service boundary.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Session binds a bearer token (stored hashed) to a user for a bounded window.
type Session struct {
	ID            string
	UserID        int64
	TokenHash     string
	IPHint        string
	UserAgentHash string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
	RevokedAt     *time.Time
}

type Department string

const (
	DepartmentIT      Department = "IT"
	DepartmentHR      Department = "HR"
	DepartmentFinance Department = "Finance"
	DepartmentSales   Department = "Sales"
)

func (d Department) Valid() bool {
	switch d {
	case DepartmentIT, DepartmentHR, DepartmentFinance, DepartmentSales:
		return true
	}
	return false
}

type EmployeeRole string

const (
	EmployeeRoleEmployee EmployeeRole = "Employee"
	EmployeeRoleManager  EmployeeRole = "Manager"
)

func (r EmployeeRole) Valid() bool {
	return r == EmployeeRoleEmployee || r == EmployeeRoleManager
}

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "Active"
	EmployeeInactive EmployeeStatus = "Inactive"
)

func (s EmployeeStatus) Valid() bool { return s == EmployeeActive || s == EmployeeInactive }

// Employee is an HR record. JoinDate is kept as a fixed-format 2006-01-02
// string so range filters and sorting reduce to lexicographic comparison.
type Employee struct {
	ID             int64          `json:"id"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	Email          string         `json:"email"`
	Mobile         string         `json:"mobile"`
	Department     Department     `json:"department"`
	Role           EmployeeRole   `json:"role"`
	JoinDate       string         `json:"joinDate"`
	Salary         float64        `json:"salary"`
	Address        string         `json:"address"`
	Status         EmployeeStatus `json:"status"`
	ProfilePicture *string        `json:"profilePicture,omitempty"`
}

func (e Employee) FullName() string { return e.FirstName + " " + e.LastName }

// EmployeePatch is a partial update; nil fields keep the stored value.
type EmployeePatch struct {
	FirstName      *string         `json:"firstName"`
	LastName       *string         `json:"lastName"`
	Email          *string         `json:"email"`
	Mobile         *string         `json:"mobile"`
	Department     *Department     `json:"department"`
	Role           *EmployeeRole   `json:"role"`
	JoinDate       *string         `json:"joinDate"`
	Salary         *float64        `json:"salary"`
	Address        *string         `json:"address"`
	Status         *EmployeeStatus `json:"status"`
	ProfilePicture *string         `json:"profilePicture"`
}

const (
	SortByFullName = "fullName"
	SortByJoinDate = "joinDate"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// EmployeeQuery is the complete filter/sort/page specification for the
// employee listing. Zero filter fields mean "no filter"; SortBy, SortOrder,
// Page and Limit are always populated by query.Parse.
type EmployeeQuery struct {
	Search       string
	Department   Department
	Status       EmployeeStatus
	JoinDateFrom string
	JoinDateTo   string
	SortBy       string
	SortOrder    string
	Page         int
	Limit        int
}

type PaginatedEmployees struct {
	Data       []Employee `json:"data"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

type AuditEntry struct {
	ID          string    `json:"id"`
	ActorUserID int64     `json:"actor_user_id"`
	Action      string    `json:"action"`
	Target      string    `json:"target"`
	Metadata    string    `json:"metadata_json"`
	CreatedAt   time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalEmployees int                `json:"totalEmployees"`
	Active         int                `json:"active"`
	Inactive       int                `json:"inactive"`
	ByDepartment   map[Department]int `json:"byDepartment"`
}
