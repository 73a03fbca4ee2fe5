package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/platform/httpx"
	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Handler exposes role, role-module and user-role endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac}
}

// MountRoutes registers /api/roles.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.With(h.rbac.Require(rbac.RouteRoles)).Get(rbac.RouteRoles.Pattern(), h.listRoles)
		r.With(h.rbac.Require(rbac.RouteRoleByID)).Get(rbac.RouteRoleByID.Pattern(), h.getRole)
		r.With(h.rbac.Require(rbac.RouteRoleModules)).Post(rbac.RouteRoleModules.Pattern(), h.addRoleModules)
		r.With(h.rbac.Require(rbac.RouteRoleModules)).Patch(rbac.RouteRoleModules.Pattern(), h.updateRoleModules)
	})
}

// MountUserRoleRoutes registers /api/user-roles.
func (h *Handler) MountUserRoleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.With(h.rbac.Require(rbac.RouteUserRoleCreate)).Post(rbac.RouteUserRoleCreate.Pattern(), h.assignRoles)
		r.With(h.rbac.Require(rbac.RouteUserRoleDelete)).Delete(rbac.RouteUserRoleDelete.Pattern(), h.deleteUserRole)
		r.With(h.rbac.Require(rbac.RouteUserRoleUndelete)).Patch(rbac.RouteUserRoleUndelete.Pattern(), h.undeleteUserRole)
	})
}

// MountRoleModuleRoutes registers /api/role-modules.
func (h *Handler) MountRoleModuleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.With(h.rbac.Require(rbac.RouteRoleModuleDelete)).Delete(rbac.RouteRoleModuleDelete.Pattern(), h.deleteRoleModule)
		r.With(h.rbac.Require(rbac.RouteRoleModuleUndelete)).Patch(rbac.RouteRoleModuleUndelete.Pattern(), h.undeleteRoleModule)
	})
}

func idParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, shared.Validation([]shared.FieldError{{Field: name, Message: name + " must be a valid UUID"}})
	}
	return id, nil
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	q := shared.NewQueryReader(r.URL.Query())
	filter := ListFilter{
		RoleName:    q.String("roleName"),
		IsCanRead:   q.Bool("isCanRead"),
		IsCanAdd:    q.Bool("isCanAdd"),
		IsCanEdit:   q.Bool("isCanEdit"),
		IsCanDelete: q.Bool("isCanDelete"),
		Order:       q.Order(RoleOrderFields),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	roles, err := h.service.ListRoles(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get roles successfully", roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "roleId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get role successfully", role)
}

func (h *Handler) addRoleModules(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "roleId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	grants, err := httpx.DecodeAndValidateList[ModuleGrant](h.validator, r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.AddRoleModules(r.Context(), id, grants); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Add new role modules successfully", nil)
}

func (h *Handler) updateRoleModules(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "roleId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	grants, err := httpx.DecodeAndValidateList[ModuleGrant](h.validator, r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.UpdateRoleModules(r.Context(), id, grants); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Update role modules successfully", nil)
}

func (h *Handler) deleteRoleModule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "roleModuleId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteRoleModule(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Role module deleted successfully", nil)
}

func (h *Handler) undeleteRoleModule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "roleModuleId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.UndeleteRoleModule(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Role module undeleted successfully", nil)
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	assignments, err := httpx.DecodeAndValidateList[Assignment](h.validator, r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.AssignRoles(r.Context(), assignments); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "User roles successfully created", nil)
}

func (h *Handler) deleteUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userRoleId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteUserRole(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User role successfully deleted", nil)
}

func (h *Handler) undeleteUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userRoleId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.UndeleteUserRole(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User role successfully undeleted", nil)
}
