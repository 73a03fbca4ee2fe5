package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// GrantSource loads active grants for a set of roles.
type GrantSource interface {
	PermissionsByRoles(ctx context.Context, roles []RoleName) (map[RoleName][]Permission, error)
}

// ManagerResolver returns the direct manager of a user. It fails with a
// not-found error when the user has no manager on file.
type ManagerResolver interface {
	ManagerOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// AccountChecker reports whether a user account is soft-deleted.
type AccountChecker interface {
	IsDeleted(ctx context.Context, userID uuid.UUID) (bool, error)
}

const deniedMessage = "You do not have permission to access this resource"

// Engine decides whether a caller may perform a verb on a route.
type Engine struct {
	ranks  RankTable
	grants GrantSource
}

// NewEngine constructs an Engine over an immutable rank table.
func NewEngine(ranks RankTable, grants GrantSource) *Engine {
	return &Engine{ranks: ranks, grants: grants}
}

// Ranks exposes the rank table the engine was built with.
func (e *Engine) Ranks() RankTable { return e.ranks }

// Roles resolves the caller's claim roles, failing for empty or unknown sets.
func (e *Engine) Roles(caller shared.Identity) ([]RoleName, error) {
	roles, err := e.ranks.Parse(caller.Roles)
	if err != nil {
		return nil, shared.Authentication("Invalid role claims", shared.Context{"api": "rbac.roles", "reason": err.Error()})
	}
	return roles, nil
}

// HighestRank returns the caller's highest rank.
func (e *Engine) HighestRank(caller shared.Identity) (int, error) {
	roles, err := e.Roles(caller)
	if err != nil {
		return 0, err
	}
	rank, err := e.ranks.Highest(roles)
	if err != nil {
		return 0, shared.Authentication("Invalid role claims", shared.Context{"api": "rbac.highestRank"})
	}
	return rank, nil
}

// Authorize allows the top role unconditionally; otherwise it merges the
// caller's grants and requires the verb's capability on the route's API path.
func (e *Engine) Authorize(ctx context.Context, caller shared.Identity, verb Verb, route Route) error {
	roles, err := e.Roles(caller)
	if err != nil {
		return err
	}
	if e.ranks.IsTop(roles) {
		return nil
	}
	capability := verb.Capability()
	api := route.API()
	denied := shared.Authorization(deniedMessage, shared.Context{"api": api, "capability": capability.String()})
	if capability == 0 {
		return denied
	}

	byRole, err := e.grants.PermissionsByRoles(ctx, roles)
	if err != nil {
		return shared.Database(err, shared.Context{"api": "rbac.authorize"})
	}
	perm, ok := Find(Combine(byRole), api)
	if !ok || !perm.Allows(capability) {
		return denied
	}
	if route.NeedsApprove() && !perm.Allows(CapApprove) {
		return shared.Authorization(deniedMessage, shared.Context{"api": api, "capability": CapApprove.String()})
	}
	return nil
}

// AuthorizeOwnerOrManager lets through callers ranked above Manager, the
// resource owner, and a Manager who is the owner's direct manager.
func (e *Engine) AuthorizeOwnerOrManager(ctx context.Context, caller shared.Identity, ownerID uuid.UUID, managers ManagerResolver) error {
	roles, err := e.Roles(caller)
	if err != nil {
		return err
	}
	highest, err := e.ranks.Highest(roles)
	if err != nil {
		return shared.Authentication("Invalid role claims", shared.Context{"api": "rbac.authorizeOwnerOrManager"})
	}
	if managerRank, ok := e.ranks.Rank(Manager); ok && highest > managerRank {
		return nil
	}
	if caller.UserID == ownerID {
		return nil
	}
	if Has(roles, Manager) {
		managerID, err := managers.ManagerOf(ctx, ownerID)
		if err != nil {
			return err
		}
		if managerID == caller.UserID {
			return nil
		}
	}
	return shared.Authorization(deniedMessage, shared.Context{"api": "rbac.ownerOrManager"})
}

// AuthorizeDirectManager requires the caller to be the owner's direct
// manager. The top role is always allowed.
func (e *Engine) AuthorizeDirectManager(ctx context.Context, caller shared.Identity, ownerID uuid.UUID, managers ManagerResolver) error {
	roles, err := e.Roles(caller)
	if err != nil {
		return err
	}
	if e.ranks.IsTop(roles) {
		return nil
	}
	managerID, err := managers.ManagerOf(ctx, ownerID)
	if err != nil {
		return err
	}
	if managerID != caller.UserID {
		return shared.Authorization("Only the direct manager can perform this action", shared.Context{"api": "rbac.directManager"})
	}
	return nil
}

// AuthorizeSelf allows callers acting on their own account as long as that
// account is not soft-deleted.
func (e *Engine) AuthorizeSelf(ctx context.Context, caller shared.Identity, accounts AccountChecker) error {
	deleted, err := accounts.IsDeleted(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || shared.IsKind(err, shared.KindNotFound) {
			return shared.Authentication("User not found", shared.Context{"api": "rbac.self"})
		}
		return err
	}
	if deleted {
		return shared.Authentication("Your account is deleted", shared.Context{"api": "rbac.self"})
	}
	return nil
}

// EffectivePermissions returns the caller's merged permissions. The top role
// receives every capability on every route.
func (e *Engine) EffectivePermissions(ctx context.Context, caller shared.Identity) ([]Permission, error) {
	roles, err := e.Roles(caller)
	if err != nil {
		return nil, err
	}
	if e.ranks.IsTop(roles) {
		routes := Routes()
		perms := make([]Permission, 0, len(routes))
		for _, r := range routes {
			perms = append(perms, grant(r, CapRead, CapAdd, CapEdit, CapDelete, CapApprove))
		}
		return Combine(map[RoleName][]Permission{e.ranks.Top(): perms}), nil
	}
	byRole, err := e.grants.PermissionsByRoles(ctx, roles)
	if err != nil {
		return nil, shared.Database(err, shared.Context{"api": "rbac.effectivePermissions"})
	}
	return Combine(byRole), nil
}
