package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

type staticGrants struct {
	byRole map[RoleName][]Permission
	err    error
	calls  int
}

func (s *staticGrants) PermissionsByRoles(ctx context.Context, roles []RoleName) (map[RoleName][]Permission, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[RoleName][]Permission, len(roles))
	for _, r := range roles {
		out[r] = append([]Permission(nil), s.byRole[r]...)
	}
	return out, nil
}

type managerMap map[uuid.UUID]uuid.UUID

func (m managerMap) ManagerOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, ok := m[userID]
	if !ok {
		return uuid.Nil, shared.NotFound("User not have manager", shared.Context{"api": "getManager"})
	}
	return id, nil
}

type deletedSet map[uuid.UUID]bool

func (d deletedSet) IsDeleted(ctx context.Context, userID uuid.UUID) (bool, error) {
	deleted, ok := d[userID]
	if !ok {
		return false, shared.ErrNotFound
	}
	return deleted, nil
}

func identity(roles ...RoleName) shared.Identity {
	raw := make([]string, len(roles))
	for i, r := range roles {
		raw[i] = string(r)
	}
	return shared.Identity{UserID: uuid.New(), Roles: raw}
}

func TestAdminBypassesEveryRouteAndVerb(t *testing.T) {
	grants := &staticGrants{}
	engine := NewEngine(DefaultRanks(), grants)
	admin := identity(Admin)

	for _, route := range Routes() {
		for _, verb := range Verbs() {
			assert.NoError(t, engine.Authorize(context.Background(), admin, verb, route), "%s %s", verb, route)
		}
	}
	assert.Zero(t, grants.calls)
}

func TestAuthorizeCombinesRoles(t *testing.T) {
	grants := &staticGrants{byRole: map[RoleName][]Permission{
		Employee: {{API: RouteUsers.API(), IsCanRead: true}},
		Manager:  {{API: RouteUsers.API(), IsCanEdit: true}},
	}}
	engine := NewEngine(DefaultRanks(), grants)
	caller := identity(Employee, Manager)

	assert.NoError(t, engine.Authorize(context.Background(), caller, VerbGet, RouteUsers))
	assert.NoError(t, engine.Authorize(context.Background(), caller, VerbPatch, RouteUsers))

	err := engine.Authorize(context.Background(), caller, VerbDelete, RouteUsers)
	require.Error(t, err)
	typed, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, shared.KindAuthorization, typed.Kind)
	assert.Equal(t, RouteUsers.API(), typed.Context["api"])
	assert.Equal(t, "delete", typed.Context["capability"])
}

func TestAuthorizeMissingGrantDenies(t *testing.T) {
	engine := NewEngine(DefaultRanks(), &staticGrants{})
	err := engine.Authorize(context.Background(), identity(Director), VerbGet, RouteRoles)
	assert.True(t, shared.IsKind(err, shared.KindAuthorization))
}

func TestAuthorizeApproveRouteNeedsApproveCapability(t *testing.T) {
	grants := &staticGrants{byRole: map[RoleName][]Permission{
		Manager: {{API: RouteUserFormApprove.API(), IsCanEdit: true}},
	}}
	engine := NewEngine(DefaultRanks(), grants)

	err := engine.Authorize(context.Background(), identity(Manager), VerbPatch, RouteUserFormApprove)
	require.Error(t, err)
	typed, _ := shared.AsError(err)
	assert.Equal(t, "approve", typed.Context["capability"])

	grants.byRole[Manager][0].IsCanApprove = true
	assert.NoError(t, engine.Authorize(context.Background(), identity(Manager), VerbPatch, RouteUserFormApprove))
}

func TestAuthorizeRejectsEmptyOrUnknownRoles(t *testing.T) {
	engine := NewEngine(DefaultRanks(), &staticGrants{})

	err := engine.Authorize(context.Background(), shared.Identity{UserID: uuid.New()}, VerbGet, RouteUsers)
	assert.True(t, shared.IsKind(err, shared.KindAuthentication))

	err = engine.Authorize(context.Background(), shared.Identity{UserID: uuid.New(), Roles: []string{"Root"}}, VerbGet, RouteUsers)
	assert.True(t, shared.IsKind(err, shared.KindAuthentication))
}

func TestAuthorizeGrantSourceFailure(t *testing.T) {
	engine := NewEngine(DefaultRanks(), &staticGrants{err: errors.New("conn reset")})
	err := engine.Authorize(context.Background(), identity(Employee), VerbGet, RouteUsers)
	assert.True(t, shared.IsKind(err, shared.KindDatabase))
}

func TestAuthorizeOwnerOrManager(t *testing.T) {
	engine := NewEngine(DefaultRanks(), &staticGrants{})
	owner := identity(Employee)
	manager := identity(Manager)
	otherManager := identity(Manager)
	managers := managerMap{owner.UserID: manager.UserID}
	ctx := context.Background()

	assert.NoError(t, engine.AuthorizeOwnerOrManager(ctx, owner, owner.UserID, managers))
	assert.NoError(t, engine.AuthorizeOwnerOrManager(ctx, manager, owner.UserID, managers))
	assert.NoError(t, engine.AuthorizeOwnerOrManager(ctx, identity(HR), owner.UserID, managers))

	err := engine.AuthorizeOwnerOrManager(ctx, otherManager, owner.UserID, managers)
	assert.True(t, shared.IsKind(err, shared.KindAuthorization))

	err = engine.AuthorizeOwnerOrManager(ctx, identity(Employee), owner.UserID, managers)
	assert.True(t, shared.IsKind(err, shared.KindAuthorization))

	orphan := uuid.New()
	err = engine.AuthorizeOwnerOrManager(ctx, manager, orphan, managers)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	err = engine.AuthorizeOwnerOrManager(ctx, shared.Identity{UserID: owner.UserID}, owner.UserID, managers)
	assert.True(t, shared.IsKind(err, shared.KindAuthentication))
}

func TestAuthorizeDirectManager(t *testing.T) {
	engine := NewEngine(DefaultRanks(), &staticGrants{})
	owner := uuid.New()
	manager := identity(Manager)
	managers := managerMap{owner: manager.UserID}
	ctx := context.Background()

	assert.NoError(t, engine.AuthorizeDirectManager(ctx, manager, owner, managers))
	assert.NoError(t, engine.AuthorizeDirectManager(ctx, identity(Admin), uuid.New(), managers))
	assert.True(t, shared.IsKind(engine.AuthorizeDirectManager(ctx, identity(Director), owner, managers), shared.KindAuthorization))
	assert.True(t, shared.IsKind(engine.AuthorizeDirectManager(ctx, manager, uuid.New(), managers), shared.KindNotFound))
}

func TestAuthorizeSelfRejectsDeletedAccount(t *testing.T) {
	engine := NewEngine(DefaultRanks(), &staticGrants{})
	active := identity(Employee)
	deleted := identity(Employee)
	accounts := deletedSet{active.UserID: false, deleted.UserID: true}
	ctx := context.Background()

	assert.NoError(t, engine.AuthorizeSelf(ctx, active, accounts))
	assert.True(t, shared.IsKind(engine.AuthorizeSelf(ctx, deleted, accounts), shared.KindAuthentication))
	assert.True(t, shared.IsKind(engine.AuthorizeSelf(ctx, identity(Employee), accounts), shared.KindAuthentication))
}

func TestEffectivePermissions(t *testing.T) {
	engine := NewEngine(DefaultRanks(), &staticGrants{byRole: DefaultGrants()})

	perms, err := engine.EffectivePermissions(context.Background(), identity(Admin))
	require.NoError(t, err)
	assert.Len(t, perms, len(Routes()))

	perms, err = engine.EffectivePermissions(context.Background(), identity(Employee, Manager))
	require.NoError(t, err)
	p, ok := Find(perms, RouteUserFormApprove.API())
	require.True(t, ok)
	assert.True(t, p.IsCanApprove)
}
