package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Status is the employment status of a user.
type Status string

const (
	StatusIntern    Status = "INTERN"
	StatusProbation Status = "PROBATION"
	StatusOfficial  Status = "OFFICIAL"
)

// StatusAll disables the status filter on listings.
const StatusAll = "ALL"

// User is the full profile of an account, without credentials.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Phone           *string    `json:"phone"`
	Address         *string    `json:"address"`
	Avatar          *string    `json:"avatar"`
	Status          Status     `json:"status"`
	EmployeeID      string     `json:"employeeId"`
	ManagerID       *uuid.UUID `json:"managerId"`
	InsuranceNumber *string    `json:"insuranceNumber"`
	CitizenID       *string    `json:"citizenId"`
	IsDeleted       bool       `json:"isDeleted"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// Summary is the list projection of a user.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	EmployeeID string    `json:"employeeId"`
	Avatar     *string   `json:"avatar"`
	Status     Status    `json:"status"`
}

// RoleAssignment is one role held by a user, including revoked ones.
type RoleAssignment struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	UserRoleID  uuid.UUID `json:"userRoleId"`
	IsDeleted   bool      `json:"isDeleted"`
}

// UserWithRoles pairs a user summary with its role assignments.
type UserWithRoles struct {
	Summary
	Roles []RoleAssignment `json:"roles"`
}

// ListFilter narrows GET /api/users.
type ListFilter struct {
	FirstName  string
	LastName   string
	Email      string
	EmployeeID string
	ManagerID  *uuid.UUID
	Status     Status
	IsDeleted  *bool
	Page       shared.Page
	Order      []shared.OrderTerm
}

// UserOrderFields lists the sortable fields of user listings.
var UserOrderFields = []string{"createdAt", "updatedAt", "deletedAt", "email", "first_name", "last_name", "employee_id", "address"}

// UserRoleOrderFields adds role name sorting for user-role listings.
var UserRoleOrderFields = append(append([]string(nil), UserOrderFields...), "roleName")

// UpdateMeRequest holds the self-editable profile fields.
type UpdateMeRequest struct {
	FirstName       *string `json:"firstName" validate:"omitempty,min=1,max=30"`
	LastName        *string `json:"lastName" validate:"omitempty,min=1,max=30"`
	Phone           *string `json:"phone" validate:"omitempty,min=6,max=15"`
	Address         *string `json:"address" validate:"omitempty,min=1,max=500"`
	InsuranceNumber *string `json:"insuranceNumber" validate:"omitempty,min=1,max=20"`
	CitizenID       *string `json:"citizenId" validate:"omitempty,min=1,max=20"`
}

// Empty reports whether no field is being updated.
func (r UpdateMeRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Phone == nil &&
		r.Address == nil && r.InsuranceNumber == nil && r.CitizenID == nil
}

// ChangePasswordRequest is the body of PATCH /change-password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword" validate:"required,min=6,max=50"`
	Password        string `json:"password" validate:"required,min=6,max=50,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=6,max=50"`
}

// UpdateStatusRequest is the body of PATCH /:userId/update-status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=INTERN PROBATION OFFICIAL"`
}
