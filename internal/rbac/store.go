package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GrantStore reads active role_modules rows from Postgres.
type GrantStore struct {
	pool *pgxpool.Pool
}

// NewGrantStore constructs a GrantStore.
func NewGrantStore(pool *pgxpool.Pool) *GrantStore {
	return &GrantStore{pool: pool}
}

const grantsByRolesSQL = `
SELECT r.name, rm.api, rm.is_can_read, rm.is_can_add, rm.is_can_edit, rm.is_can_delete, rm.is_can_approve
FROM role_modules rm
JOIN roles r ON r.id = rm.role_id
WHERE r.name = ANY($1) AND rm.is_deleted = FALSE
ORDER BY r.name, rm.api`

// PermissionsByRoles returns the non-deleted grants of each requested role.
// Roles without grants are present with an empty slice.
func (s *GrantStore) PermissionsByRoles(ctx context.Context, roles []RoleName) (map[RoleName][]Permission, error) {
	names := make([]string, len(roles))
	out := make(map[RoleName][]Permission, len(roles))
	for i, r := range roles {
		names[i] = string(r)
		out[r] = []Permission{}
	}
	rows, err := s.pool.Query(ctx, grantsByRolesSQL, names)
	if err != nil {
		return nil, fmt.Errorf("rbac: load grants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			role string
			p    Permission
		)
		if err := rows.Scan(&role, &p.API, &p.IsCanRead, &p.IsCanAdd, &p.IsCanEdit, &p.IsCanDelete, &p.IsCanApprove); err != nil {
			return nil, fmt.Errorf("rbac: scan grant: %w", err)
		}
		out[RoleName(role)] = append(out[RoleName(role)], p)
	}
	return out, rows.Err()
}

// StaticGrants serves a fixed permission matrix, typically DefaultGrants.
type StaticGrants map[RoleName][]Permission

// PermissionsByRoles returns a copy of the grants of each requested role.
func (s StaticGrants) PermissionsByRoles(_ context.Context, roles []RoleName) (map[RoleName][]Permission, error) {
	out := make(map[RoleName][]Permission, len(roles))
	for _, r := range roles {
		out[r] = append([]Permission{}, s[r]...)
	}
	return out, nil
}
