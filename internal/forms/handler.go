package forms

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

// Handler exposes form endpoints.
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

// MountRoutes registers /api/forms.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.With(h.rbac.Require(rbac.RouteForms)).Post(rbac.RouteForms.Pattern(), h.create)
		r.With(h.rbac.Require(rbac.RouteForms)).Get(rbac.RouteForms.Pattern(), h.list)
		r.With(h.rbac.Require(rbac.RouteFormByID)).Get(rbac.RouteFormByID.Pattern(), h.get)
		r.With(h.rbac.Require(rbac.RouteFormByID)).Patch(rbac.RouteFormByID.Pattern(), h.update)
		r.With(h.rbac.Require(rbac.RouteFormDelete)).Delete(rbac.RouteFormDelete.Pattern(), h.delete)
		r.With(h.rbac.Require(rbac.RouteFormUndelete)).Patch(rbac.RouteFormUndelete.Pattern(), h.undelete)
	})
}

func formID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "formId"))
	if err != nil {
		return uuid.Nil, shared.Validation([]shared.FieldError{{Field: "formId", Message: "formId must be a valid UUID"}})
	}
	return id, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeAndValidate(h.validator, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	form, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Create form successfully", form)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := shared.NewQueryReader(r.URL.Query())
	filter := ListFilter{
		Name:      q.String("name"),
		IsDeleted: q.Bool("isDeleted"),
		Page:      q.Page(maxListLimit),
		Order:     q.Order(OrderFields),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get forms successfully", result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	form, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get form details successfully", form)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeAndValidate(h.validator, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	form, err := h.service.Update(r.Context(), caller, id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Update form successfully", form)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	deleted, err := h.service.Delete(r.Context(), caller, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if !deleted {
		httpx.OK(w, http.StatusOK, "Form is already deleted", nil)
		return
	}
	httpx.OK(w, http.StatusOK, "Delete form successfully", nil)
}

func (h *Handler) undelete(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Undelete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Undelete form successfully", nil)
}
