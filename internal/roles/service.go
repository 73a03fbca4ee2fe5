package roles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// GrantInvalidator drops cached grants after role_modules change.
type GrantInvalidator interface {
	Invalidate(ctx context.Context, roles ...rbac.RoleName) error
}

// Service handles role, role-module and user-role business logic.
type Service struct {
	repo   Repository
	grants GrantInvalidator
	logger *slog.Logger
}

// NewService builds Service instance. grants may be nil when no cache is used.
func NewService(repo Repository, grants GrantInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, grants: grants, logger: logger}
}

// ListRoles returns roles with their active grants.
func (s *Service) ListRoles(ctx context.Context, filter ListFilter) ([]Role, error) {
	roles, err := s.repo.ListRoles(ctx, filter)
	if err != nil {
		return nil, shared.Database(err, shared.Context{"api": "listRoles"})
	}
	return roles, nil
}

// GetRole returns one role with its active grants.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	errCtx := shared.Context{"api": "getRole", "roleId": id.String()}
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Role{}, shared.NotFound("Role not found", errCtx)
		}
		return Role{}, shared.Database(err, errCtx)
	}
	return role, nil
}

// checkAPIs rejects apis that are not protected routes or appear twice.
func checkAPIs(op string, grants []ModuleGrant) error {
	var unknown, duplicated []string
	seen := map[string]bool{}
	for _, g := range grants {
		if _, ok := rbac.LookupAPI(g.API); !ok {
			unknown = append(unknown, g.API)
		}
		if seen[g.API] {
			duplicated = append(duplicated, g.API)
		}
		seen[g.API] = true
	}
	if len(unknown) > 0 {
		return shared.BadRequest("One or more apis are not protected routes. See details in context.",
			shared.Context{"api": op, "result": unknown})
	}
	if len(duplicated) > 0 {
		return shared.BadRequest("One or more apis are listed twice. See details in context.",
			shared.Context{"api": op, "result": duplicated})
	}
	return nil
}

// AddRoleModules creates grants for apis the role has no row for yet.
func (s *Service) AddRoleModules(ctx context.Context, roleID uuid.UUID, grants []ModuleGrant) error {
	errCtx := shared.Context{"api": "addRoleModules", "roleId": roleID.String()}
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if err := checkAPIs("addRoleModules", grants); err != nil {
		return err
	}
	existing, err := s.existingAPIs(ctx, roleID, errCtx)
	if err != nil {
		return err
	}
	var clash []string
	for _, g := range grants {
		if existing[g.API] {
			clash = append(clash, g.API)
		}
	}
	if len(clash) > 0 {
		return shared.BadRequest("One or more role modules already existed for the role. See details in context.",
			shared.Context{"api": "addRoleModules", "result": clash})
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, g := range grants {
			if err := tx.InsertRoleModule(ctx, roleID, g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return shared.Database(err, errCtx)
	}
	s.invalidate(ctx, role.Name)
	return nil
}

// UpdateRoleModules rewrites the capabilities of existing grants.
func (s *Service) UpdateRoleModules(ctx context.Context, roleID uuid.UUID, grants []ModuleGrant) error {
	errCtx := shared.Context{"api": "updateRoleModules", "roleId": roleID.String()}
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if err := checkAPIs("updateRoleModules", grants); err != nil {
		return err
	}
	existing, err := s.existingAPIs(ctx, roleID, errCtx)
	if err != nil {
		return err
	}
	var missing []string
	for _, g := range grants {
		if !existing[g.API] {
			missing = append(missing, g.API)
		}
	}
	if len(missing) > 0 {
		return shared.NotFound("One or more role modules are not existed in the role. See details in context.",
			shared.Context{"api": "updateRoleModules", "result": missing})
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, g := range grants {
			if err := tx.UpdateRoleModule(ctx, roleID, g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("Role module not found", errCtx)
		}
		return shared.Database(err, errCtx)
	}
	s.invalidate(ctx, role.Name)
	return nil
}

func (s *Service) existingAPIs(ctx context.Context, roleID uuid.UUID, errCtx shared.Context) (map[string]bool, error) {
	apis, err := s.repo.ModuleAPIs(ctx, roleID)
	if err != nil {
		return nil, shared.Database(err, errCtx)
	}
	out := make(map[string]bool, len(apis))
	for _, api := range apis {
		out[api] = true
	}
	return out, nil
}

// DeleteRoleModule soft-deletes a grant.
func (s *Service) DeleteRoleModule(ctx context.Context, id uuid.UUID) error {
	return s.setRoleModuleDeleted(ctx, id, true)
}

// UndeleteRoleModule restores a soft-deleted grant.
func (s *Service) UndeleteRoleModule(ctx context.Context, id uuid.UUID) error {
	return s.setRoleModuleDeleted(ctx, id, false)
}

func (s *Service) setRoleModuleDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	errCtx := shared.Context{"api": "setRoleModuleDeleted", "roleModuleId": id.String()}
	module, err := s.repo.GetRoleModule(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("Role module not found", errCtx)
		}
		return shared.Database(err, errCtx)
	}
	if module.IsDeleted == deleted {
		if deleted {
			return shared.BadRequest("Role module already deleted", errCtx)
		}
		return shared.BadRequest("Role module already undeleted", errCtx)
	}
	if err := s.repo.SetRoleModuleDeleted(ctx, id, deleted); err != nil {
		return shared.Database(err, errCtx)
	}
	if role, err := s.repo.GetRole(ctx, module.RoleID); err == nil {
		s.invalidate(ctx, role.Name)
	} else {
		s.logger.Warn("resolve role for grant invalidation", slog.String("roleId", module.RoleID.String()), slog.Any("error", err))
	}
	return nil
}

// AssignRoles find-or-creates every (user, role) pair, reviving deleted ones.
func (s *Service) AssignRoles(ctx context.Context, assignments []Assignment) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, a := range assignments {
			for _, roleID := range a.RoleIDs {
				if err := tx.EnsureUserRole(ctx, a.UserID, roleID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return shared.Database(err, shared.Context{"api": "assignRoles"})
}

// DeleteUserRole revokes a role from a user.
func (s *Service) DeleteUserRole(ctx context.Context, id uuid.UUID) error {
	return s.setUserRoleDeleted(ctx, id, true)
}

// UndeleteUserRole restores a revoked role.
func (s *Service) UndeleteUserRole(ctx context.Context, id uuid.UUID) error {
	return s.setUserRoleDeleted(ctx, id, false)
}

func (s *Service) setUserRoleDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	errCtx := shared.Context{"api": "setUserRoleDeleted", "userRoleId": id.String()}
	ur, err := s.repo.GetUserRole(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("User role not found", errCtx)
		}
		return shared.Database(err, errCtx)
	}
	if ur.IsDeleted == deleted {
		if deleted {
			return shared.BadRequest("User role already deleted", errCtx)
		}
		return shared.BadRequest("User role already undeleted", errCtx)
	}
	return shared.Database(s.repo.SetUserRoleDeleted(ctx, id, deleted), errCtx)
}

func (s *Service) invalidate(ctx context.Context, role string) {
	if s.grants == nil {
		return
	}
	if err := s.grants.Invalidate(ctx, rbac.RoleName(role)); err != nil {
		s.logger.Warn("invalidate cached grants", slog.String("role", role), slog.Any("error", err))
	}
}
