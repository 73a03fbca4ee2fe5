package users

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	user := repo.add("jane@example.com", nil, false)
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret#1"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.hashes[user.ID] = string(hash)
	svc := newTestService(repo, nil)
	caller := identity(user.ID, rbac.Employee)

	err = svc.ChangePassword(ctx, caller, ChangePasswordRequest{OldPassword: "Wrong#11", Password: "Better#2", ConfirmPassword: "Better#2"})
	assert.True(t, shared.IsKind(err, shared.KindAuthentication))

	err = svc.ChangePassword(ctx, caller, ChangePasswordRequest{OldPassword: "Secret#1", Password: "Better#2", ConfirmPassword: "Other#22"})
	assert.True(t, shared.IsKind(err, shared.KindBadRequest))

	require.NoError(t, svc.ChangePassword(ctx, caller, ChangePasswordRequest{OldPassword: "Secret#1", Password: "Better#2", ConfirmPassword: "Better#2"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[user.ID]), []byte("Better#2")))
}

func TestUpdateMeRejectsEmptyBody(t *testing.T) {
	repo := newMockRepository()
	user := repo.add("jane@example.com", nil, false)
	svc := newTestService(repo, nil)

	_, err := svc.UpdateMe(context.Background(), identity(user.ID, rbac.Employee), UpdateMeRequest{})
	assert.True(t, shared.IsKind(err, shared.KindBadRequest))

	name := "Janet"
	updated, err := svc.UpdateMe(context.Background(), identity(user.ID, rbac.Employee), UpdateMeRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
}

func TestListStatusAllDisablesFilter(t *testing.T) {
	repo := newMockRepository()
	repo.add("a@example.com", nil, false)
	svc := newTestService(repo, nil)

	result, err := svc.List(context.Background(), ListFilter{Status: StatusAll, Page: shared.GetPagination(shared.PageOptions{})})
	require.NoError(t, err)
	assert.Equal(t, Status(""), repo.last.Status)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.Pagination.Total)
}

func TestGetDeletedUserHiddenFromManagers(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	deleted := repo.add("gone@example.com", nil, true)
	svc := newTestService(repo, nil)

	_, err := svc.Get(ctx, identity(uuid.New(), rbac.Manager), deleted.ID)
	require.Error(t, err)
	typed, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, shared.KindBadRequest, typed.Kind)
	assert.Equal(t, "User is deleted", typed.Message)

	got, err := svc.Get(ctx, identity(uuid.New(), rbac.HR), deleted.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}

func TestDeleteAndUndelete(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	user := repo.add("jane@example.com", nil, false)
	svc := newTestService(repo, nil)
	caller := identity(uuid.New(), rbac.HR)

	require.NoError(t, svc.Delete(ctx, caller, user.ID))
	assert.True(t, shared.IsKind(svc.Delete(ctx, caller, user.ID), shared.KindBadRequest))
	require.NoError(t, svc.Undelete(ctx, caller, user.ID))
	assert.True(t, shared.IsKind(svc.Undelete(ctx, caller, user.ID), shared.KindBadRequest))
	assert.True(t, shared.IsKind(svc.Delete(ctx, caller, uuid.New()), shared.KindNotFound))
}

func TestGetManager(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	boss := repo.add("boss@example.com", nil, false)
	report := repo.add("report@example.com", &boss.ID, false)
	orphanBoss := uuid.New()
	orphan := repo.add("orphan@example.com", &orphanBoss, false)
	svc := newTestService(repo, nil)

	id, err := svc.ManagerOf(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, boss.ID, id)

	_, err = svc.GetManager(ctx, boss.ID)
	typed, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "User not have manager", typed.Message)

	_, err = svc.GetManager(ctx, orphan.ID)
	typed, ok = shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Manager not found", typed.Message)
}

func TestUploadAvatar(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	user := repo.add("jane@example.com", nil, false)
	store := &memoryStore{}
	svc := newTestService(repo, store)
	caller := identity(user.ID, rbac.Employee)

	updated, err := svc.UploadAvatar(ctx, caller, bytes.NewReader(pngHeader), int64(len(pngHeader)), 1024)
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.Contains(t, store.keys[0], user.ID.String())
	require.NotNil(t, updated.Avatar)
	assert.Contains(t, *updated.Avatar, ".png")

	_, err = svc.UploadAvatar(ctx, caller, bytes.NewReader([]byte("plain text")), 10, 1024)
	assert.True(t, shared.IsKind(err, shared.KindBadRequest))

	_, err = svc.UploadAvatar(ctx, caller, bytes.NewReader(pngHeader), int64(len(pngHeader)), 8)
	assert.True(t, shared.IsKind(err, shared.KindBadRequest))
}

func TestIsDeleted(t *testing.T) {
	repo := newMockRepository()
	user := repo.add("gone@example.com", nil, true)
	svc := newTestService(repo, nil)

	deleted, err := svc.IsDeleted(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.IsDeleted(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
