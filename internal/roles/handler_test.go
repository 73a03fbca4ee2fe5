package roles

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
	_ "github.com/odyssey-erp/hrforms/testing"
)

type tokenTable map[string]shared.Identity

func (t tokenTable) VerifyAccessToken(token string) (shared.Identity, error) {
	id, ok := t[token]
	if !ok {
		return shared.Identity{}, shared.Authentication("Invalid access token", nil)
	}
	return id, nil
}

func newTestRouter(repo *mockRepository) chi.Router {
	engine := rbac.NewEngine(rbac.DefaultRanks(), rbac.StaticGrants(rbac.DefaultGrants()))
	mw := rbac.Middleware{Engine: engine, Tokens: tokenTable{
		"admin": {UserID: uuid.New(), Roles: []string{"Admin"}},
		"hr":    {UserID: uuid.New(), Roles: []string{"HR"}},
	}}
	h := NewHandler(nil, NewService(repo, nil, nil), mw)
	r := chi.NewRouter()
	r.Route(rbac.MountRoles, h.MountRoutes)
	r.Route(rbac.MountUserRoles, h.MountUserRoleRoutes)
	r.Route(rbac.MountRoleModules, h.MountRoleModuleRoutes)
	return r
}

func send(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRoleModulesEndpoint(t *testing.T) {
	repo := newMockRepository()
	role := repo.addRole("Employee")
	router := newTestRouter(repo)
	path := "/api/roles/" + role.ID.String() + "/role-modules"
	body := `[{"api":"/api/forms","isCanRead":true,"isCanAdd":false,"isCanEdit":false,"isCanDelete":false,"isCanApprove":false}]`

	assert.Equal(t, http.StatusForbidden, send(router, http.MethodPost, path, "hr", body).Code)

	rr := send(router, http.MethodPost, path, "admin", `[{"api":"/api/forms"}]`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"[0].isCanRead"`)

	assert.Equal(t, http.StatusOK, send(router, http.MethodPost, path, "admin", body).Code)
	assert.Equal(t, http.StatusBadRequest, send(router, http.MethodPost, path, "admin", body).Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodPatch, path, "admin", body).Code)
}

func TestListRolesEndpoint(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("HR")
	router := newTestRouter(repo)

	assert.Equal(t, http.StatusOK, send(router, http.MethodGet, "/api/roles", "hr", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, send(router, http.MethodGet, "/api/roles?isCanRead=maybe", "hr", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, send(router, http.MethodGet, "/api/roles?orderBy=id", "hr", "").Code)
}

func TestUserRolesEndpoint(t *testing.T) {
	repo := newMockRepository()
	role := repo.addRole("Employee")
	router := newTestRouter(repo)

	body := `[{"userId":"` + uuid.NewString() + `","roleIds":["` + role.ID.String() + `"]}]`
	assert.Equal(t, http.StatusCreated, send(router, http.MethodPost, "/api/user-roles", "admin", body).Code)
	assert.Len(t, repo.userRoles, 1)

	rr := send(router, http.MethodPost, "/api/user-roles", "admin", `[{"userId":"`+uuid.NewString()+`","roleIds":[]}]`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
