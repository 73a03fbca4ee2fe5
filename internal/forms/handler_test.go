package forms

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
		"hr":       hr,
		"employee": {UserID: uuid.New(), Roles: []string{"Employee"}},
	}}
	r := chi.NewRouter()
	r.Route(rbac.MountForms, NewHandler(nil, NewService(repo, nil, nil), mw).MountRoutes)
	return r
}

func send(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestFormEndpoints(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)
	body := `{"name":"Review","description":"Yearly","total":3,"form_details":[{"id":"` + uuid.NewString() + `","content":"How?","index":1}]}`

	assert.Equal(t, http.StatusForbidden, send(router, http.MethodPost, "/api/forms", "employee", body).Code)

	rr := send(router, http.MethodPost, "/api/forms", "hr", `{"name":"","form_details":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"name"`)
	assert.Contains(t, rr.Body.String(), `"field":"total"`)

	rr = send(router, http.MethodPost, "/api/forms", "hr", body)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Result Form `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	path := "/api/forms/" + created.Result.ID.String()

	assert.Equal(t, http.StatusOK, send(router, http.MethodGet, path, "hr", "").Code)
	assert.Equal(t, http.StatusNotFound, send(router, http.MethodGet, "/api/forms/"+uuid.NewString(), "hr", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, send(router, http.MethodGet, "/api/forms/nope", "hr", "").Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodGet, "/api/forms?name=rev&orderBy=name&order=DESC", "hr", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, send(router, http.MethodGet, "/api/forms?limit=101", "hr", "").Code)

	rr = send(router, http.MethodDelete, path+"/delete", "hr", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Delete form successfully")
	rr = send(router, http.MethodDelete, path+"/delete", "hr", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Form is already deleted")

	assert.Equal(t, http.StatusBadRequest, send(router, http.MethodPatch, path, "hr", body).Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodPatch, path+"/undelete", "hr", "").Code)
	assert.Equal(t, http.StatusBadRequest, send(router, http.MethodPatch, path+"/undelete", "hr", "").Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodPatch, path, "hr", body).Code)
}
