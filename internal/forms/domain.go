package forms

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/notify"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Form is a questionnaire template assigned to users.
type Form struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Total       int        `json:"total"`
	IsDeleted   bool       `json:"isDeleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   *uuid.UUID `json:"createdBy"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy   *uuid.UUID `json:"updatedBy,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	DeletedBy   *uuid.UUID `json:"deletedBy,omitempty"`
	Details     []Detail   `json:"formDetails"`
}

// Detail is one question of a form.
type Detail struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
	Index   int       `json:"index"`
}

// DetailInput is a question in a create or update request. The client picks
// the id so answers can reference it before the form is saved.
type DetailInput struct {
	ID      uuid.UUID `json:"id" validate:"required"`
	Content string    `json:"content" validate:"required,min=2,max=1000"`
	Index   *int      `json:"index" validate:"required"`
}

// CreateRequest is the body of POST /api/forms.
type CreateRequest struct {
	Name        string        `json:"name" validate:"required,min=1,max=300"`
	Description string        `json:"description" validate:"required,min=1,max=500"`
	Total       *int          `json:"total" validate:"required"`
	Details     []DetailInput `json:"form_details" validate:"required,min=1,dive"`
	Users       []uuid.UUID   `json:"users" validate:"omitempty,dive,required"`
}

// UpdateRequest is the body of PATCH /api/forms/:formId.
type UpdateRequest struct {
	Name        string        `json:"name" validate:"required,min=1,max=300"`
	Description string        `json:"description" validate:"required,min=1,max=500"`
	Total       *int          `json:"total" validate:"required"`
	Details     []DetailInput `json:"form_details" validate:"required,min=1,dive"`
}

// Assignment is a freshly created user form with its recipient.
type Assignment struct {
	UserFormID uuid.UUID
	UserID     uuid.UUID
	Recipient  notify.Person
}

// ListFilter narrows GET /api/forms.
type ListFilter struct {
	Name      string
	IsDeleted *bool
	Page      shared.Page
	Order     []shared.OrderTerm
}

// OrderFields lists the sortable fields of form listings.
var OrderFields = []string{"createdAt", "updatedAt", "name", "total"}
