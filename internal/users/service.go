package users

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// AvatarStore persists uploaded avatar images and returns their public URL.
type AvatarStore interface {
	Store(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// Service handles user business logic.
type Service struct {
	repo       Repository
	engine     *rbac.Engine
	avatars    AvatarStore
	bcryptCost int
}

// NewService builds Service instance.
func NewService(repo Repository, engine *rbac.Engine, avatars AvatarStore, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, engine: engine, avatars: avatars, bcryptCost: bcryptCost}
}

func (s *Service) lookup(ctx context.Context, id uuid.UUID, errCtx shared.Context) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("User not found", errCtx)
		}
		return User{}, shared.Database(err, errCtx)
	}
	return user, nil
}

// GetMe returns the caller's own profile.
func (s *Service) GetMe(ctx context.Context, caller shared.Identity) (User, error) {
	return s.lookup(ctx, caller.UserID, shared.Context{"api": "getMe", "userId": caller.UserID.String()})
}

// UpdateMe edits the caller's own profile fields.
func (s *Service) UpdateMe(ctx context.Context, caller shared.Identity, req UpdateMeRequest) (User, error) {
	errCtx := shared.Context{"api": "updateMe", "userId": caller.UserID.String()}
	if req.Empty() {
		return User{}, shared.BadRequest("Nothing to update", errCtx)
	}
	if err := s.repo.UpdateProfile(ctx, caller.UserID, req); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("User not found", errCtx)
		}
		return User{}, shared.Database(err, errCtx)
	}
	return s.lookup(ctx, caller.UserID, errCtx)
}

// ChangePassword verifies the old password and stores a new bcrypt hash.
func (s *Service) ChangePassword(ctx context.Context, caller shared.Identity, req ChangePasswordRequest) error {
	errCtx := shared.Context{"api": "changePassword", "userId": caller.UserID.String()}
	if req.Password != req.ConfirmPassword {
		return shared.BadRequest("Passwords do not match", errCtx)
	}
	hash, err := s.repo.PasswordHash(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("User not found", errCtx)
		}
		return shared.Database(err, errCtx)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.OldPassword)) != nil {
		return shared.Authentication("Old password is incorrect", errCtx)
	}
	next, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return shared.Database(s.repo.UpdatePassword(ctx, caller.UserID, string(next)), errCtx)
}

// List returns a page of users matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (shared.ListResult[Summary], error) {
	if filter.Status == StatusAll {
		filter.Status = ""
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return shared.ListResult[Summary]{}, shared.Database(err, shared.Context{"api": "listUsers"})
	}
	return shared.NewListResult(items, filter.Page, total), nil
}

// Get returns one user. Manager-ranked callers cannot see deleted accounts.
func (s *Service) Get(ctx context.Context, caller shared.Identity, id uuid.UUID) (User, error) {
	errCtx := shared.Context{"api": "getUser", "userId": id.String()}
	user, err := s.lookup(ctx, id, errCtx)
	if err != nil {
		return User{}, err
	}
	if user.IsDeleted {
		highest, err := s.engine.HighestRank(caller)
		if err != nil {
			return User{}, err
		}
		if managerRank, ok := s.engine.Ranks().Rank(rbac.Manager); ok && highest <= managerRank {
			return User{}, shared.BadRequest("User is deleted", errCtx)
		}
	}
	return user, nil
}

// Delete soft-deletes a user.
func (s *Service) Delete(ctx context.Context, caller shared.Identity, id uuid.UUID) error {
	return s.setDeleted(ctx, caller, id, true)
}

// Undelete restores a soft-deleted user.
func (s *Service) Undelete(ctx context.Context, caller shared.Identity, id uuid.UUID) error {
	return s.setDeleted(ctx, caller, id, false)
}

func (s *Service) setDeleted(ctx context.Context, caller shared.Identity, id uuid.UUID, deleted bool) error {
	errCtx := shared.Context{"api": "setUserDeleted", "userId": id.String()}
	user, err := s.lookup(ctx, id, errCtx)
	if err != nil {
		return err
	}
	if user.IsDeleted == deleted {
		if deleted {
			return shared.BadRequest("User is already deleted", errCtx)
		}
		return shared.BadRequest("User is not deleted", errCtx)
	}
	return shared.Database(s.repo.SetDeleted(ctx, id, deleted, caller.UserID), errCtx)
}

// UpdateStatus changes a user's employment status.
func (s *Service) UpdateStatus(ctx context.Context, caller shared.Identity, id uuid.UUID, status Status) (User, error) {
	errCtx := shared.Context{"api": "updateUserStatus", "userId": id.String()}
	if err := s.repo.UpdateStatus(ctx, id, status, caller.UserID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("User not found", errCtx)
		}
		return User{}, shared.Database(err, errCtx)
	}
	return s.lookup(ctx, id, errCtx)
}

// UploadAvatar stores an image and records its URL on the caller's profile.
func (s *Service) UploadAvatar(ctx context.Context, caller shared.Identity, body io.Reader, size, maxBytes int64) (User, error) {
	errCtx := shared.Context{"api": "uploadAvatar", "userId": caller.UserID.String()}
	if size <= 0 {
		return User{}, shared.BadRequest("Avatar file is required", errCtx)
	}
	if maxBytes > 0 && size > maxBytes {
		return User{}, shared.BadRequest(fmt.Sprintf("Avatar must not exceed %d bytes", maxBytes), errCtx)
	}
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return User{}, shared.BadRequest("Avatar file could not be read", errCtx)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return User{}, shared.BadRequest("Avatar must be an image", errCtx)
	}
	key := fmt.Sprintf("avatars/%s/%s%s", caller.UserID, uuid.NewString(), mt.Extension())
	url, err := s.avatars.Store(ctx, key, mt.String(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return User{}, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.repo.UpdateAvatar(ctx, caller.UserID, url); err != nil {
		return User{}, shared.Database(err, errCtx)
	}
	return s.lookup(ctx, caller.UserID, errCtx)
}

// ListWithRoles returns users together with their role assignments.
func (s *Service) ListWithRoles(ctx context.Context, filter ListFilter) (shared.ListResult[UserWithRoles], error) {
	if filter.Status == StatusAll {
		filter.Status = ""
	}
	items, total, err := s.repo.ListWithRoles(ctx, filter)
	if err != nil {
		return shared.ListResult[UserWithRoles]{}, shared.Database(err, shared.Context{"api": "listUserRoles"})
	}
	return shared.NewListResult(items, filter.Page, total), nil
}

// GetWithRoles returns one user's role assignments.
func (s *Service) GetWithRoles(ctx context.Context, id uuid.UUID) (UserWithRoles, error) {
	errCtx := shared.Context{"api": "getUserRoles", "userId": id.String()}
	u, err := s.repo.GetWithRoles(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return UserWithRoles{}, shared.NotFound("User not found", errCtx)
		}
		return UserWithRoles{}, shared.Database(err, errCtx)
	}
	return u, nil
}

// ManagerOf resolves the direct manager of userID.
func (s *Service) ManagerOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	manager, err := s.GetManager(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return manager.ID, nil
}

// GetManager returns the direct manager's profile.
func (s *Service) GetManager(ctx context.Context, userID uuid.UUID) (User, error) {
	errCtx := shared.Context{"api": "getManager", "userId": userID.String()}
	user, err := s.lookup(ctx, userID, errCtx)
	if err != nil {
		return User{}, err
	}
	if user.ManagerID == nil {
		return User{}, shared.NotFound("User not have manager", errCtx)
	}
	manager, err := s.repo.Get(ctx, *user.ManagerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.NotFound("Manager not found", errCtx)
		}
		return User{}, shared.Database(err, errCtx)
	}
	return manager, nil
}

// IsDeleted reports the soft-delete flag of an account.
func (s *Service) IsDeleted(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, shared.ErrNotFound
		}
		return false, shared.Database(err, shared.Context{"api": "isDeleted"})
	}
	return user.IsDeleted, nil
}

var (
	_ rbac.ManagerResolver = (*Service)(nil)
	_ rbac.AccountChecker  = (*Service)(nil)
)
