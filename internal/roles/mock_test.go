package roles

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

type mockRepository struct {
	mu        sync.Mutex
	roles     map[uuid.UUID]*Role
	modules   map[uuid.UUID]*RoleModule
	userRoles map[uuid.UUID]*UserRole
	failTx    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:     map[uuid.UUID]*Role{},
		modules:   map[uuid.UUID]*RoleModule{},
		userRoles: map[uuid.UUID]*UserRole{},
	}
}

func (m *mockRepository) addRole(name string) Role {
	role := &Role{ID: uuid.New(), Name: name}
	m.roles[role.ID] = role
	return *role
}

func (m *mockRepository) addModule(roleID uuid.UUID, api string, deleted bool) RoleModule {
	mod := &RoleModule{ID: uuid.New(), RoleID: roleID, API: api, IsCanRead: true, IsDeleted: deleted}
	m.modules[mod.ID] = mod
	return *mod
}

func (m *mockRepository) GetRole(_ context.Context, id uuid.UUID) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	out := *role
	out.RoleModules = []RoleModule{}
	for _, mod := range m.modules {
		if mod.RoleID == id && !mod.IsDeleted {
			out.RoleModules = append(out.RoleModules, *mod)
		}
	}
	return out, nil
}

func (m *mockRepository) ListRoles(ctx context.Context, _ ListFilter) ([]Role, error) {
	var out []Role
	for id := range m.roles {
		role, _ := m.GetRole(ctx, id)
		out = append(out, role)
	}
	return out, nil
}

func (m *mockRepository) ModuleAPIs(_ context.Context, roleID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, mod := range m.modules {
		if mod.RoleID == roleID {
			out = append(out, mod.API)
		}
	}
	return out, nil
}

func (m *mockRepository) GetRoleModule(_ context.Context, id uuid.UUID) (RoleModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod, ok := m.modules[id]
	if !ok {
		return RoleModule{}, shared.ErrNotFound
	}
	return *mod, nil
}

func (m *mockRepository) SetRoleModuleDeleted(_ context.Context, id uuid.UUID, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[id].IsDeleted = deleted
	return nil
}

func (m *mockRepository) GetUserRole(_ context.Context, id uuid.UUID) (UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ur, ok := m.userRoles[id]
	if !ok {
		return UserRole{}, shared.ErrNotFound
	}
	return *ur, nil
}

func (m *mockRepository) SetUserRoleDeleted(_ context.Context, id uuid.UUID, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRoles[id].IsDeleted = deleted
	return nil
}

// WithTx applies the callback to a staged copy and commits it only on success.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.failTx != nil {
		return m.failTx
	}
	tx := &mockTx{parent: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range tx.ops {
		op()
	}
	return nil
}

type mockTx struct {
	parent *mockRepository
	ops    []func()
}

func (t *mockTx) InsertRoleModule(_ context.Context, roleID uuid.UUID, g ModuleGrant) error {
	t.ops = append(t.ops, func() {
		mod := &RoleModule{ID: uuid.New(), RoleID: roleID, API: g.API, IsCanRead: deref(g.IsCanRead), IsCanAdd: deref(g.IsCanAdd)}
		t.parent.modules[mod.ID] = mod
	})
	return nil
}

func (t *mockTx) UpdateRoleModule(_ context.Context, roleID uuid.UUID, g ModuleGrant) error {
	t.ops = append(t.ops, func() {
		for _, mod := range t.parent.modules {
			if mod.RoleID == roleID && mod.API == g.API {
				mod.IsCanRead = deref(g.IsCanRead)
				mod.IsCanAdd = deref(g.IsCanAdd)
				mod.IsCanEdit = deref(g.IsCanEdit)
				mod.IsCanDelete = deref(g.IsCanDelete)
				mod.IsCanApprove = deref(g.IsCanApprove)
			}
		}
	})
	return nil
}

func (t *mockTx) EnsureUserRole(_ context.Context, userID, roleID uuid.UUID) error {
	t.ops = append(t.ops, func() {
		for _, ur := range t.parent.userRoles {
			if ur.UserID == userID && ur.RoleID == roleID {
				ur.IsDeleted = false
				return
			}
		}
		ur := &UserRole{ID: uuid.New(), UserID: userID, RoleID: roleID}
		t.parent.userRoles[ur.ID] = ur
	})
	return nil
}

type invalidations struct {
	roles []rbac.RoleName
}

func (i *invalidations) Invalidate(_ context.Context, roles ...rbac.RoleName) error {
	i.roles = append(i.roles, roles...)
	return nil
}

func flag(b bool) *bool { return &b }

func readGrant(api string) ModuleGrant {
	return ModuleGrant{API: api, IsCanRead: flag(true), IsCanAdd: flag(false), IsCanEdit: flag(false), IsCanDelete: flag(false), IsCanApprove: flag(false)}
}
