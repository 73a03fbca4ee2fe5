package userforms

import (
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/notify"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// UserForm is one assignment of a form to a user.
type UserForm struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	FormID    uuid.UUID  `json:"formId"`
	Status    Status     `json:"status"`
	IsDeleted bool       `json:"isDeleted"`
	FilledAt  *time.Time `json:"filledAt"`
	FilledBy  *uuid.UUID `json:"filledBy"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy *uuid.UUID `json:"createdBy"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy *uuid.UUID `json:"updatedBy,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy *uuid.UUID `json:"deletedBy,omitempty"`
}

// State returns the lifecycle state of the user form.
func (u UserForm) State() State {
	return State{Status: u.Status, Deleted: u.IsDeleted}
}

// Question is one active detail of the assigned form.
type Question struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
	Index   int       `json:"index"`
}

// FormSummary is the form part of a user form view.
type FormSummary struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Total       int        `json:"total"`
	IsDeleted   bool       `json:"isDeleted"`
	Questions   []Question `json:"formDetails,omitempty"`
}

// Answer is the owner's answer to one question and the manager's evaluation.
type Answer struct {
	ID           uuid.UUID `json:"id"`
	FormDetailID uuid.UUID `json:"formDetailsId"`
	Answer       string    `json:"answer"`
	Evaluation   *string   `json:"evaluation"`
}

// Detail is the full view of one user form.
type Detail struct {
	UserForm
	Form    FormSummary `json:"form"`
	Answers []Answer    `json:"userFormDetails"`
}

// UserSummary is the owner part of a user form listing.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	EmployeeID string    `json:"employeeId"`
	Status     string    `json:"status"`
	Avatar     *string   `json:"avatar"`
}

// ListItem is one row of a user form listing.
type ListItem struct {
	ID        uuid.UUID   `json:"id"`
	Status    Status      `json:"status"`
	IsDeleted bool        `json:"isDeleted"`
	FilledAt  *time.Time  `json:"filledAt"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
	User      UserSummary `json:"user"`
	Form      FormSummary `json:"form"`
}

// Scope restricts a listing to what the caller's rank may see.
type Scope int

const (
	// ScopeOwn lists the caller's own active user forms.
	ScopeOwn Scope = iota + 1
	// ScopeTeam lists active user forms of the caller and their direct reports.
	ScopeTeam
	// ScopeAll lists every user form, deleted ones included.
	ScopeAll
)

// ListFilter narrows GET /api/user-forms.
type ListFilter struct {
	Scope          Scope
	CallerID       uuid.UUID
	Name           string
	UserFormStatus Status
	UserStatus     string
	FormID         *uuid.UUID
	UserID         *uuid.UUID
	IsDeleted      *bool
	Page           shared.Page
	Order          []shared.OrderTerm
}

// OrderFields lists the sortable fields of user form listings.
var OrderFields = []string{"createdAt", "updatedAt", "filledAt", "status"}

// UserStatuses are the employment statuses accepted by the userStatus filter.
var UserStatuses = []string{"INTERN", "PROBATION", "OFFICIAL"}

// Answers maps a form detail id to free text. It is the body of submit,
// update, approve and reject.
type Answers map[uuid.UUID]string

// Validate requires at least one entry and 2 to 1000 characters per value.
func (a Answers) Validate(v *validator.Validate) error {
	if len(a) == 0 {
		return shared.Validation([]shared.FieldError{{Field: "body", Message: "body must contain at least one answer"}})
	}
	var failures []shared.FieldError
	for id, text := range a {
		if err := v.Var(text, "min=2,max=1000"); err != nil {
			failures = append(failures, shared.FieldError{Field: id.String(), Message: "content must be a string with length from 2 to 1000"})
		}
	}
	if len(failures) > 0 {
		slices.SortFunc(failures, func(a, b shared.FieldError) int { return strings.Compare(a.Field, b.Field) })
		return shared.Validation(failures)
	}
	return nil
}

// AssignRequest is the body of POST /api/user-forms/assign.
type AssignRequest struct {
	FormID  uuid.UUID   `json:"formId" validate:"required"`
	UserIDs []uuid.UUID `json:"userIds" validate:"required,min=1,dive,required"`
}

// Owner is the user a form is assigned to.
type Owner struct {
	ID        uuid.UUID
	ManagerID *uuid.UUID
	IsDeleted bool
	Person    notify.Person
}
