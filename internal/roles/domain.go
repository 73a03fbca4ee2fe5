package roles

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Role is a named rank with its active permission grants.
type Role struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
	RoleModules []RoleModule `json:"roleModules"`
}

// RoleModule is one persisted capability grant of a role on an API path.
type RoleModule struct {
	ID           uuid.UUID  `json:"id"`
	RoleID       uuid.UUID  `json:"roleId"`
	API          string     `json:"api"`
	IsCanRead    bool       `json:"isCanRead"`
	IsCanAdd     bool       `json:"isCanAdd"`
	IsCanEdit    bool       `json:"isCanEdit"`
	IsCanDelete  bool       `json:"isCanDelete"`
	IsCanApprove bool       `json:"isCanApprove"`
	IsDeleted    bool       `json:"isDeleted"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// UserRole maps a user to a role.
type UserRole struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	RoleID    uuid.UUID `json:"roleId"`
	IsDeleted bool      `json:"isDeleted"`
}

// RoleNameAll disables the role name filter.
const RoleNameAll = "ALL"

// ListFilter narrows GET /api/roles. Capability filters apply to the
// embedded grants, not to the roles themselves.
type ListFilter struct {
	RoleName    string
	IsCanRead   *bool
	IsCanAdd    *bool
	IsCanEdit   *bool
	IsCanDelete *bool
	Order       []shared.OrderTerm
}

// RoleOrderFields lists the sortable fields of role listings.
var RoleOrderFields = []string{"name", "api", "description"}

// ModuleGrant is one element of the role-modules request body.
type ModuleGrant struct {
	API          string `json:"api" validate:"required,max=255"`
	IsCanRead    *bool  `json:"isCanRead" validate:"required"`
	IsCanAdd     *bool  `json:"isCanAdd" validate:"required"`
	IsCanEdit    *bool  `json:"isCanEdit" validate:"required"`
	IsCanDelete  *bool  `json:"isCanDelete" validate:"required"`
	IsCanApprove *bool  `json:"isCanApprove" validate:"required"`
}

// Assignment is one element of the POST /api/user-roles body.
type Assignment struct {
	UserID  uuid.UUID   `json:"userId" validate:"required"`
	RoleIDs []uuid.UUID `json:"roleIds" validate:"required,min=1,dive,required"`
}

func deref(b *bool) bool {
	return b != nil && *b
}
