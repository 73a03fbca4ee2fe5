package users

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

const maxListLimit = 100

// Handler manages user management endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	validator      *validator.Validate
	rbac           rbac.Middleware
	avatarMaxBytes int64
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, avatarMaxBytes int64) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac, avatarMaxBytes: avatarMaxBytes}
}

// MountRoutes registers user routes. The public token endpoints are mounted
// separately by the auth handler.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireSelf(h.service))
			r.Get("/me", h.getMe)
			r.Patch("/me", h.updateMe)
		})

		r.With(h.rbac.Require(rbac.RouteUserMeAvatar)).Patch(rbac.RouteUserMeAvatar.Pattern(), h.uploadAvatar)
		r.With(h.rbac.Require(rbac.RouteUsers)).Get(rbac.RouteUsers.Pattern(), h.listUsers)
		r.With(h.rbac.Require(rbac.RouteUserChangePassword)).Patch(rbac.RouteUserChangePassword.Pattern(), h.changePassword)
		r.With(h.rbac.Require(rbac.RouteUserRoles)).Get(rbac.RouteUserRoles.Pattern(), h.listUserRoles)
		r.With(h.rbac.Require(rbac.RouteUserRolesByUser)).Get(rbac.RouteUserRolesByUser.Pattern(), h.getUserRoles)
		r.With(h.rbac.Require(rbac.RouteUserDelete)).Delete(rbac.RouteUserDelete.Pattern(), h.deleteUser)
		r.With(h.rbac.Require(rbac.RouteUserUndelete)).Patch(rbac.RouteUserUndelete.Pattern(), h.undeleteUser)
		r.With(h.rbac.Require(rbac.RouteUserUpdateStatus)).Patch(rbac.RouteUserUpdateStatus.Pattern(), h.updateStatus)
		r.With(h.ownerOrManager, h.rbac.Require(rbac.RouteUserByID)).Get(rbac.RouteUserByID.Pattern(), h.getUser)
	})
}

func (h *Handler) ownerOrManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := userIDParam(r)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		caller, _ := shared.IdentityFromContext(r.Context())
		if err := h.rbac.Engine.AuthorizeOwnerOrManager(r.Context(), caller, id, h.service); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return uuid.Nil, shared.Validation([]shared.FieldError{{Field: "userId", Message: "userId must be a valid UUID"}})
	}
	return id, nil
}

func readFilter(r *http.Request, orderFields []string) (ListFilter, error) {
	q := shared.NewQueryReader(r.URL.Query())
	filter := ListFilter{
		FirstName:  q.String("firstName"),
		LastName:   q.String("lastName"),
		Email:      q.String("email"),
		EmployeeID: q.String("employeeId"),
		ManagerID:  q.UUID("managerId"),
		Status:     Status(q.OneOf("status", string(StatusIntern), string(StatusProbation), string(StatusOfficial), StatusAll)),
		IsDeleted:  q.Bool("isDeleted"),
		Page:       q.Page(maxListLimit),
		Order:      q.Order(orderFields),
	}
	return filter, q.Err()
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := shared.IdentityFromContext(r.Context())
	user, err := h.service.GetMe(r.Context(), caller)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get user successfully", user)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if err := httpx.DecodeAndValidate(h.validator, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	user, err := h.service.UpdateMe(r.Context(), caller, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Update user successfully", user)
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	errCtx := shared.Context{"api": rbac.RouteUserMeAvatar.API()}
	r.Body = http.MaxBytesReader(w, r.Body, h.avatarMaxBytes+1<<20)
	if err := r.ParseMultipartForm(h.avatarMaxBytes); err != nil {
		httpx.RespondError(w, h.logger, shared.BadRequest("Invalid multipart form", errCtx))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		httpx.RespondError(w, h.logger, shared.BadRequest("Avatar file is required", errCtx))
		return
	}
	defer file.Close()

	caller, _ := shared.IdentityFromContext(r.Context())
	user, err := h.service.UploadAvatar(r.Context(), caller, file, header.Size, h.avatarMaxBytes)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Upload avatar successfully", user)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := readFilter(r, UserOrderFields)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get users successfully", result)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := httpx.DecodeAndValidate(h.validator, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), caller, req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Change password successfully", nil)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	filter, err := readFilter(r, UserRoleOrderFields)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.ListWithRoles(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get user roles successfully", result)
}

func (h *Handler) getUserRoles(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.GetWithRoles(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get user roles successfully", result)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Delete user successfully", nil)
}

func (h *Handler) undeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.Undelete(r.Context(), caller, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Undelete user successfully", nil)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeAndValidate(h.validator, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	user, err := h.service.UpdateStatus(r.Context(), caller, id, req.Status)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Update user status successfully", user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	user, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get user successfully", user)
}
