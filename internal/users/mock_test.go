package users

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

type mockRepository struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*User
	hashes map[uuid.UUID]string
	roles  map[uuid.UUID][]RoleAssignment
	last   ListFilter
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:  map[uuid.UUID]*User{},
		hashes: map[uuid.UUID]string{},
		roles:  map[uuid.UUID][]RoleAssignment{},
	}
}

func (m *mockRepository) add(email string, manager *uuid.UUID, deleted bool) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &User{
		ID:         uuid.New(),
		Email:      email,
		FirstName:  "First",
		LastName:   "Last",
		Status:     StatusIntern,
		EmployeeID: "0000",
		ManagerID:  manager,
		IsDeleted:  deleted,
		CreatedAt:  time.Now(),
	}
	m.users[u.ID] = u
	return *u
}

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return *u, nil
}

func (m *mockRepository) PasswordHash(_ context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return "", shared.ErrNotFound
	}
	return m.hashes[id], nil
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]Summary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = filter
	var out []Summary
	for _, u := range m.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.IsDeleted != nil && u.IsDeleted != *filter.IsDeleted {
			continue
		}
		out = append(out, Summary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Status: u.Status})
	}
	return out, len(out), nil
}

func (m *mockRepository) UpdateProfile(_ context.Context, id uuid.UUID, req UpdateMeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Address != nil {
		u.Address = req.Address
	}
	return nil
}

func (m *mockRepository) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[id] = hash
	return nil
}

func (m *mockRepository) SetDeleted(_ context.Context, id uuid.UUID, deleted bool, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsDeleted = deleted
	return nil
}

func (m *mockRepository) UpdateStatus(_ context.Context, id uuid.UUID, status Status, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *mockRepository) UpdateAvatar(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Avatar = &url
	return nil
}

func (m *mockRepository) ListWithRoles(ctx context.Context, filter ListFilter) ([]UserWithRoles, int, error) {
	summaries, total, err := m.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserWithRoles, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, UserWithRoles{Summary: s, Roles: m.roles[s.ID]})
	}
	return out, total, nil
}

func (m *mockRepository) GetWithRoles(ctx context.Context, id uuid.UUID) (UserWithRoles, error) {
	u, err := m.Get(ctx, id)
	if err != nil {
		return UserWithRoles{}, err
	}
	return UserWithRoles{Summary: Summary{ID: u.ID, Email: u.Email}, Roles: m.roles[id]}, nil
}

type memoryStore struct {
	keys []string
}

func (s *memoryStore) Store(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func identity(id uuid.UUID, roles ...rbac.RoleName) shared.Identity {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return shared.Identity{UserID: id, Roles: names}
}

func newTestService(repo *mockRepository, store AvatarStore) *Service {
	engine := rbac.NewEngine(rbac.DefaultRanks(), rbac.StaticGrants(rbac.DefaultGrants()))
	return NewService(repo, engine, store, 4)
}
