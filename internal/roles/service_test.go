package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

func TestAddRoleModules(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	role := repo.addRole("HR")
	repo.addModule(role.ID, rbac.RouteUsers.API(), false)
	cache := &invalidations{}
	svc := NewService(repo, cache, nil)

	err := svc.AddRoleModules(ctx, role.ID, []ModuleGrant{readGrant(rbac.RouteUsers.API())})
	assert.True(t, shared.IsKind(err, shared.KindBadRequest))

	err = svc.AddRoleModules(ctx, role.ID, []ModuleGrant{readGrant("/api/nowhere")})
	assert.True(t, shared.IsKind(err, shared.KindBadRequest))

	err = svc.AddRoleModules(ctx, role.ID, []ModuleGrant{readGrant(rbac.RouteForms.API()), readGrant(rbac.RouteForms.API())})
	assert.True(t, shared.IsKind(err, shared.KindBadRequest))

	require.NoError(t, svc.AddRoleModules(ctx, role.ID, []ModuleGrant{readGrant(rbac.RouteForms.API()), readGrant(rbac.RouteFormByID.API())}))
	got, err := svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, got.RoleModules, 3)
	assert.Equal(t, []rbac.RoleName{"HR"}, cache.roles)

	err = svc.AddRoleModules(ctx, uuid.New(), []ModuleGrant{readGrant(rbac.RouteForms.API())})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestUpdateRoleModulesRequiresExistingRows(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	role := repo.addRole("Manager")
	mod := repo.addModule(role.ID, rbac.RouteUsers.API(), false)
	cache := &invalidations{}
	svc := NewService(repo, cache, nil)

	err := svc.UpdateRoleModules(ctx, role.ID, []ModuleGrant{readGrant(rbac.RouteForms.API())})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
	assert.Empty(t, cache.roles)

	grant := readGrant(rbac.RouteUsers.API())
	grant.IsCanEdit = flag(true)
	require.NoError(t, svc.UpdateRoleModules(ctx, role.ID, []ModuleGrant{grant}))
	assert.True(t, repo.modules[mod.ID].IsCanEdit)
	assert.Equal(t, []rbac.RoleName{"Manager"}, cache.roles)
}

func TestRoleModuleAddIsAtomic(t *testing.T) {
	repo := newMockRepository()
	role := repo.addRole("HR")
	repo.failTx = errors.New("connection reset")
	svc := NewService(repo, nil, nil)

	err := svc.AddRoleModules(context.Background(), role.ID, []ModuleGrant{readGrant(rbac.RouteForms.API())})
	assert.True(t, shared.IsKind(err, shared.KindDatabase))
	assert.Empty(t, repo.modules)
}

func TestDeleteRoleModuleTwice(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	role := repo.addRole("HR")
	mod := repo.addModule(role.ID, rbac.RouteUsers.API(), false)
	cache := &invalidations{}
	svc := NewService(repo, cache, nil)

	require.NoError(t, svc.DeleteRoleModule(ctx, mod.ID))
	assert.True(t, shared.IsKind(svc.DeleteRoleModule(ctx, mod.ID), shared.KindBadRequest))
	require.NoError(t, svc.UndeleteRoleModule(ctx, mod.ID))
	assert.True(t, shared.IsKind(svc.UndeleteRoleModule(ctx, mod.ID), shared.KindBadRequest))
	assert.Len(t, cache.roles, 2)
	assert.True(t, shared.IsKind(svc.DeleteRoleModule(ctx, uuid.New()), shared.KindNotFound))
}

func TestAssignRolesRevivesDeleted(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	role := repo.addRole("Employee")
	other := repo.addRole("Manager")
	userID := uuid.New()
	revoked := &UserRole{ID: uuid.New(), UserID: userID, RoleID: role.ID, IsDeleted: true}
	repo.userRoles[revoked.ID] = revoked
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.AssignRoles(ctx, []Assignment{{UserID: userID, RoleIDs: []uuid.UUID{role.ID, other.ID}}}))
	assert.Len(t, repo.userRoles, 2)
	assert.False(t, repo.userRoles[revoked.ID].IsDeleted)

	require.NoError(t, svc.AssignRoles(ctx, []Assignment{{UserID: userID, RoleIDs: []uuid.UUID{role.ID}}}))
	assert.Len(t, repo.userRoles, 2)
}

func TestUserRoleDeleteUndelete(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	ur := &UserRole{ID: uuid.New(), UserID: uuid.New(), RoleID: uuid.New()}
	repo.userRoles[ur.ID] = ur
	svc := NewService(repo, nil, nil)

	assert.True(t, shared.IsKind(svc.UndeleteUserRole(ctx, ur.ID), shared.KindBadRequest))
	require.NoError(t, svc.DeleteUserRole(ctx, ur.ID))
	assert.True(t, shared.IsKind(svc.DeleteUserRole(ctx, ur.ID), shared.KindBadRequest))
	assert.True(t, shared.IsKind(svc.DeleteUserRole(ctx, uuid.New()), shared.KindNotFound))
}
