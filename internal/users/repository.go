package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hrforms/internal/platform/db"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Repository defines data access methods for users.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (User, error)
	PasswordHash(ctx context.Context, id uuid.UUID) (string, error)
	List(ctx context.Context, filter ListFilter) ([]Summary, int, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateMeRequest) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetDeleted(ctx context.Context, id uuid.UUID, deleted bool, actor uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, actor uuid.UUID) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error
	ListWithRoles(ctx context.Context, filter ListFilter) ([]UserWithRoles, int, error)
	GetWithRoles(ctx context.Context, id uuid.UUID) (UserWithRoles, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var userOrderColumns = map[string]string{
	"createdAt":   "u.created_at",
	"updatedAt":   "u.updated_at",
	"deletedAt":   "u.deleted_at",
	"email":       "u.email",
	"first_name":  "u.first_name",
	"last_name":   "u.last_name",
	"employee_id": "u.employee_id",
	"address":     "u.address",
	"roleName":    "first_role",
}

const userColumns = `u.id, u.email, u.first_name, u.last_name, u.phone, u.address, u.avatar, u.status,
u.employee_id, u.manager_id, u.insurance_number, u.citizen_id, u.is_deleted, u.deleted_at, u.created_at, u.updated_at`

// Get returns one user.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Address, &u.Avatar, &u.Status,
		&u.EmployeeID, &u.ManagerID, &u.InsuranceNumber, &u.CitizenID, &u.IsDeleted, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// PasswordHash returns the stored bcrypt hash.
func (r *PGRepository) PasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(password, '') FROM users WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return hash, err
}

func userWhere(filter ListFilter) *db.Where {
	w := &db.Where{}
	if filter.FirstName != "" {
		w.Add("u.first_name ILIKE ?", db.Contains(filter.FirstName))
	}
	if filter.LastName != "" {
		w.Add("u.last_name ILIKE ?", db.Contains(filter.LastName))
	}
	if filter.Email != "" {
		w.Add("u.email ILIKE ?", db.Contains(filter.Email))
	}
	if filter.EmployeeID != "" {
		w.Add("u.employee_id = ?", filter.EmployeeID)
	}
	if filter.ManagerID != nil {
		w.Add("u.manager_id = ?", *filter.ManagerID)
	}
	if filter.Status != "" {
		w.Add("u.status = ?", string(filter.Status))
	}
	if filter.IsDeleted != nil {
		w.Add("u.is_deleted = ?", *filter.IsDeleted)
	}
	return w
}

// List returns one page of user summaries and the total match count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	w := userWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT u.id, u.first_name, u.last_name, u.email, u.employee_id, u.avatar, u.status FROM users u` + w.SQL() +
		` ORDER BY ` + shared.OrderClause(filter.Order, userOrderColumns, "u.created_at DESC") +
		` LIMIT ` + w.Arg(filter.Page.Limit) + ` OFFSET ` + w.Arg(filter.Page.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.EmployeeID, &s.Avatar, &s.Status); err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *PGRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateProfile writes the non-nil fields of req.
func (r *PGRepository) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateMeRequest) error {
	return r.exec(ctx, `
UPDATE users SET
	first_name = COALESCE($2, first_name),
	last_name = COALESCE($3, last_name),
	phone = COALESCE($4, phone),
	address = COALESCE($5, address),
	insurance_number = COALESCE($6, insurance_number),
	citizen_id = COALESCE($7, citizen_id),
	updated_by = $1,
	updated_at = NOW()
WHERE id = $1`, id, req.FirstName, req.LastName, req.Phone, req.Address, req.InsuranceNumber, req.CitizenID)
}

// UpdatePassword stores a new bcrypt hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.exec(ctx, `UPDATE users SET password = $2, updated_by = $1, updated_at = NOW() WHERE id = $1`, id, hash)
}

// SetDeleted flips the soft-delete flag.
func (r *PGRepository) SetDeleted(ctx context.Context, id uuid.UUID, deleted bool, actor uuid.UUID) error {
	return r.exec(ctx, `
UPDATE users SET
	is_deleted = $2,
	deleted_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
	updated_by = $3,
	updated_at = NOW()
WHERE id = $1`, id, deleted, actor)
}

// UpdateStatus changes the employment status.
func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, actor uuid.UUID) error {
	return r.exec(ctx, `UPDATE users SET status = $2, updated_by = $3, updated_at = NOW() WHERE id = $1`, id, string(status), actor)
}

// UpdateAvatar stores the avatar URL.
func (r *PGRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error {
	return r.exec(ctx, `UPDATE users SET avatar = $2, updated_by = $1, updated_at = NOW() WHERE id = $1`, id, url)
}

// ListWithRoles returns users with every role assignment, active or revoked.
func (r *PGRepository) ListWithRoles(ctx context.Context, filter ListFilter) ([]UserWithRoles, int, error) {
	w := userWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
SELECT u.id, u.first_name, u.last_name, u.email, u.employee_id, u.avatar, u.status,
	(SELECT MIN(r.name) FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id) AS first_role
FROM users u` + w.SQL() +
		` ORDER BY ` + shared.OrderClause(filter.Order, userOrderColumns, "u.created_at DESC") +
		` LIMIT ` + w.Arg(filter.Page.Limit) + ` OFFSET ` + w.Arg(filter.Page.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	items := []UserWithRoles{}
	ids := []uuid.UUID{}
	for rows.Next() {
		var (
			u         UserWithRoles
			firstRole *string
		)
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.EmployeeID, &u.Avatar, &u.Status, &firstRole); err != nil {
			rows.Close()
			return nil, 0, err
		}
		u.Roles = []RoleAssignment{}
		items = append(items, u)
		ids = append(ids, u.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return items, total, nil
	}

	byUser, err := r.rolesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		if roles, ok := byUser[items[i].ID]; ok {
			items[i].Roles = roles
		}
	}
	return items, total, nil
}

// GetWithRoles returns one user with its role assignments.
func (r *PGRepository) GetWithRoles(ctx context.Context, id uuid.UUID) (UserWithRoles, error) {
	var u UserWithRoles
	err := r.pool.QueryRow(ctx, `SELECT u.id, u.first_name, u.last_name, u.email, u.employee_id, u.avatar, u.status FROM users u WHERE u.id = $1`, id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.EmployeeID, &u.Avatar, &u.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserWithRoles{}, shared.ErrNotFound
		}
		return UserWithRoles{}, err
	}
	byUser, err := r.rolesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return UserWithRoles{}, err
	}
	u.Roles = byUser[id]
	if u.Roles == nil {
		u.Roles = []RoleAssignment{}
	}
	return u, nil
}

func (r *PGRepository) rolesFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT ur.user_id, r.id, r.name, r.description, ur.id, ur.is_deleted
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = ANY($1)
ORDER BY r.name`, ids)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]RoleAssignment, len(ids))
	for rows.Next() {
		var (
			userID uuid.UUID
			ra     RoleAssignment
		)
		if err := rows.Scan(&userID, &ra.ID, &ra.Name, &ra.Description, &ra.UserRoleID, &ra.IsDeleted); err != nil {
			return nil, err
		}
		out[userID] = append(out[userID], ra)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
