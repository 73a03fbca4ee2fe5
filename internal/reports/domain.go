package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// FilterAll disables the userStatus and userFormStatus filters.
const FilterAll = "ALL"

// FormHeader is the form a report is about.
type FormHeader struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Total       int       `json:"total"`
	IsDeleted   bool      `json:"isDeleted"`
}

// User is the owner summary shown on each report row.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Status     string    `json:"status"`
	EmployeeID string    `json:"employeeId"`
}

// Row is one user form of the reported form.
type Row struct {
	ID        uuid.UUID  `json:"id"`
	Status    string     `json:"status"`
	IsDeleted bool       `json:"isDeleted"`
	FilledAt  *time.Time `json:"filledAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	User      User       `json:"user"`
}

// Report is the body of GET /api/reports/forms/:formId.
type Report struct {
	Form      FormHeader             `json:"form"`
	UserForms shared.ListResult[Row] `json:"userForms"`
}

// Filter narrows the user forms of a report. Empty status filters match everything.
type Filter struct {
	FormID         uuid.UUID
	UserStatus     string
	UserFormStatus string
	Page           shared.Page
	Order          []shared.OrderTerm
}

// OrderFields lists the sortable report fields.
var OrderFields = []string{"createdAt", "updatedAt", "filledAt", "status"}

// UserStatuses are the accepted userStatus values.
var UserStatuses = []string{FilterAll, "INTERN", "PROBATION", "OFFICIAL"}

// UserFormStatuses are the accepted userFormStatus values.
var UserFormStatuses = []string{FilterAll, "NEW", "PENDING_APPROVAL", "APPROVED", "REJECTED", "CLOSED"}
