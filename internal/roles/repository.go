package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hrforms/internal/platform/db"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Repository defines data access for roles, role modules and user roles.
type Repository interface {
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	ListRoles(ctx context.Context, filter ListFilter) ([]Role, error)
	ModuleAPIs(ctx context.Context, roleID uuid.UUID) ([]string, error)
	GetRoleModule(ctx context.Context, id uuid.UUID) (RoleModule, error)
	SetRoleModuleDeleted(ctx context.Context, id uuid.UUID, deleted bool) error
	GetUserRole(ctx context.Context, id uuid.UUID) (UserRole, error)
	SetUserRoleDeleted(ctx context.Context, id uuid.UUID, deleted bool) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertRoleModule(ctx context.Context, roleID uuid.UUID, grant ModuleGrant) error
	UpdateRoleModule(ctx context.Context, roleID uuid.UUID, grant ModuleGrant) error
	EnsureUserRole(ctx context.Context, userID, roleID uuid.UUID) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// WithTx wraps callback in repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetRole returns one role with its active grants.
func (r *PGRepository) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, role_id, api, is_can_read, is_can_add, is_can_edit, is_can_delete, is_can_approve, is_deleted, created_at, updated_at
FROM role_modules
WHERE role_id = $1 AND is_deleted = FALSE
ORDER BY api`, id)
	if err != nil {
		return Role{}, err
	}
	defer rows.Close()
	role.RoleModules = []RoleModule{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return Role{}, err
		}
		role.RoleModules = append(role.RoleModules, m)
	}
	return role, rows.Err()
}

func scanModule(row pgx.Row) (RoleModule, error) {
	var m RoleModule
	err := row.Scan(&m.ID, &m.RoleID, &m.API, &m.IsCanRead, &m.IsCanAdd, &m.IsCanEdit, &m.IsCanDelete, &m.IsCanApprove, &m.IsDeleted, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

var roleOrderColumns = map[string]string{
	"name":        "r.name",
	"description": "r.description",
	"api":         "rm.api",
}

// ListRoles returns roles with their active grants. Capability filters
// narrow the joined grants; roles without matching grants are still listed.
func (r *PGRepository) ListRoles(ctx context.Context, filter ListFilter) ([]Role, error) {
	join := &db.Where{}
	join.Add("rm.is_deleted = FALSE")
	if filter.IsCanRead != nil {
		join.Add("rm.is_can_read = ?", *filter.IsCanRead)
	}
	if filter.IsCanAdd != nil {
		join.Add("rm.is_can_add = ?", *filter.IsCanAdd)
	}
	if filter.IsCanEdit != nil {
		join.Add("rm.is_can_edit = ?", *filter.IsCanEdit)
	}
	if filter.IsCanDelete != nil {
		join.Add("rm.is_can_delete = ?", *filter.IsCanDelete)
	}

	where := ""
	if filter.RoleName != "" && filter.RoleName != RoleNameAll {
		where = " WHERE r.name = " + join.Arg(filter.RoleName)
	}

	query := `
SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
	rm.id, rm.role_id, rm.api, rm.is_can_read, rm.is_can_add, rm.is_can_edit, rm.is_can_delete, rm.is_can_approve, rm.is_deleted, rm.created_at, rm.updated_at
FROM roles r
LEFT JOIN role_modules rm ON rm.role_id = r.id AND ` + join.Predicate() + where +
		` ORDER BY ` + shared.OrderClause(filter.Order, roleOrderColumns, "rm.api ASC") + `, r.name, rm.api`

	rows, err := r.pool.Query(ctx, query, join.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []Role
		index = map[uuid.UUID]int{}
	)
	for rows.Next() {
		var (
			role                                      Role
			modID, modRole                            *uuid.UUID
			api                                       *string
			canRead, canAdd, canEdit, canDel, canAppr *bool
			modDeleted                                *bool
			modCreated                                *time.Time
			modUpdated                                *time.Time
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt,
			&modID, &modRole, &api, &canRead, &canAdd, &canEdit, &canDel, &canAppr, &modDeleted, &modCreated, &modUpdated); err != nil {
			return nil, err
		}
		i, ok := index[role.ID]
		if !ok {
			role.RoleModules = []RoleModule{}
			out = append(out, role)
			i = len(out) - 1
			index[role.ID] = i
		}
		if modID == nil {
			continue
		}
		m := RoleModule{
			ID:           *modID,
			RoleID:       *modRole,
			API:          *api,
			IsCanRead:    deref(canRead),
			IsCanAdd:     deref(canAdd),
			IsCanEdit:    deref(canEdit),
			IsCanDelete:  deref(canDel),
			IsCanApprove: deref(canAppr),
			IsDeleted:    deref(modDeleted),
		}
		if modCreated != nil {
			m.CreatedAt = *modCreated
		}
		m.UpdatedAt = modUpdated
		out[i].RoleModules = append(out[i].RoleModules, m)
	}
	if out == nil {
		out = []Role{}
	}
	return out, rows.Err()
}

// ModuleAPIs lists every api the role has a grant row for, deleted or not.
func (r *PGRepository) ModuleAPIs(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT api FROM role_modules WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetRoleModule returns one grant row.
func (r *PGRepository) GetRoleModule(ctx context.Context, id uuid.UUID) (RoleModule, error) {
	m, err := scanModule(r.pool.QueryRow(ctx, `
SELECT id, role_id, api, is_can_read, is_can_add, is_can_edit, is_can_delete, is_can_approve, is_deleted, created_at, updated_at
FROM role_modules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return RoleModule{}, shared.ErrNotFound
	}
	return m, err
}

// SetRoleModuleDeleted flips the grant's soft-delete flag.
func (r *PGRepository) SetRoleModuleDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE role_modules SET is_deleted = $2, deleted_at = CASE WHEN $2 THEN NOW() ELSE NULL END, updated_at = NOW()
WHERE id = $1`, id, deleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetUserRole returns one user-role mapping.
func (r *PGRepository) GetUserRole(ctx context.Context, id uuid.UUID) (UserRole, error) {
	var ur UserRole
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, role_id, is_deleted FROM user_roles WHERE id = $1`, id).
		Scan(&ur.ID, &ur.UserID, &ur.RoleID, &ur.IsDeleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRole{}, shared.ErrNotFound
	}
	return ur, err
}

// SetUserRoleDeleted flips the mapping's soft-delete flag.
func (r *PGRepository) SetUserRoleDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE user_roles SET is_deleted = $2, deleted_at = CASE WHEN $2 THEN NOW() ELSE NULL END, updated_at = NOW()
WHERE id = $1`, id, deleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) InsertRoleModule(ctx context.Context, roleID uuid.UUID, g ModuleGrant) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO role_modules (id, role_id, api, is_can_read, is_can_add, is_can_edit, is_can_delete, is_can_approve)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), roleID, g.API, deref(g.IsCanRead), deref(g.IsCanAdd), deref(g.IsCanEdit), deref(g.IsCanDelete), deref(g.IsCanApprove))
	if db.IsUniqueViolation(err) {
		return shared.BadRequest("Role module already exists", shared.Context{"api": g.API})
	}
	return err
}

func (t *txRepo) UpdateRoleModule(ctx context.Context, roleID uuid.UUID, g ModuleGrant) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE role_modules
SET is_can_read = $3, is_can_add = $4, is_can_edit = $5, is_can_delete = $6, is_can_approve = $7, updated_at = NOW()
WHERE role_id = $1 AND api = $2`,
		roleID, g.API, deref(g.IsCanRead), deref(g.IsCanAdd), deref(g.IsCanEdit), deref(g.IsCanDelete), deref(g.IsCanApprove))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// EnsureUserRole creates the mapping or revives a soft-deleted one.
func (t *txRepo) EnsureUserRole(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO user_roles (id, user_id, role_id)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, role_id) DO UPDATE
SET is_deleted = FALSE, deleted_at = NULL, updated_at = NOW()
WHERE user_roles.is_deleted`, uuid.New(), userID, roleID)
	if db.IsForeignKeyViolation(err) {
		return shared.NotFound("User or role not found", shared.Context{"userId": userID.String(), "roleId": roleID.String()})
	}
	if err != nil {
		return fmt.Errorf("ensure user role: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
