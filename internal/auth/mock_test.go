package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

type mockRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
	roles    map[uuid.UUID][]string
	tokens   map[string]StoredRefreshToken

	rotateErr error
	created   []NewOAuthAccount
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts: make(map[uuid.UUID]*Account),
		roles:    make(map[uuid.UUID][]string),
		tokens:   make(map[string]StoredRefreshToken),
	}
}

func (m *mockRepository) addAccount(email, hash string, deleted bool, roles ...string) Account {
	a := &Account{ID: uuid.New(), Email: email, PasswordHash: hash, IsDeleted: deleted}
	m.accounts[a.ID] = a
	m.roles[a.ID] = roles
	return *a
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			return *a, nil
		}
	}
	return Account{}, shared.ErrNotFound
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return *a, nil
}

func (m *mockRepository) RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[userID], nil
}

func (m *mockRepository) SaveRefreshToken(ctx context.Context, token StoredRefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRepository) FindRefreshToken(ctx context.Context, token string) (StoredRefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return StoredRefreshToken{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *mockRepository) RotateRefreshToken(ctx context.Context, old string, next StoredRefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rotateErr != nil {
		return m.rotateErr
	}
	if _, ok := m.tokens[old]; !ok {
		return shared.ErrNotFound
	}
	delete(m.tokens, old)
	m.tokens[next.Token] = next
	return nil
}

func (m *mockRepository) CreateOAuthAccount(ctx context.Context, account NewOAuthAccount) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, account)
	a := &Account{ID: uuid.New(), Email: account.Email, PasswordHash: account.PasswordHash}
	m.accounts[a.ID] = a
	m.roles[a.ID] = []string{account.Role}
	return *a, nil
}

type stubProvider struct {
	profile GoogleProfile
	err     error
}

func (s stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (s stubProvider) Exchange(ctx context.Context, code string) (GoogleProfile, error) {
	return s.profile, s.err
}
