package userforms

import (
	"context"
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

// Handler exposes user form endpoints.
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

// MountRoutes registers /api/user-forms.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.With(h.rbac.Require(rbac.RouteUserForms)).Get(rbac.RouteUserForms.Pattern(), h.list)
		r.With(h.rbac.Require(rbac.RouteUserFormAssign)).Post(rbac.RouteUserFormAssign.Pattern(), h.assign)
		r.With(h.rbac.Require(rbac.RouteUserFormByID)).Get(rbac.RouteUserFormByID.Pattern(), h.get)
		r.With(h.rbac.Require(rbac.RouteUserFormByID)).Post(rbac.RouteUserFormByID.Pattern(),
			h.withAnswers(http.StatusCreated, "Submit form successfully", h.service.Submit))
		r.With(h.rbac.Require(rbac.RouteUserFormByID)).Patch(rbac.RouteUserFormByID.Pattern(),
			h.withAnswers(http.StatusOK, "Update form successfully", h.service.Update))
		r.With(h.rbac.Require(rbac.RouteUserFormApprove)).Patch(rbac.RouteUserFormApprove.Pattern(),
			h.withAnswers(http.StatusOK, "Approve form successfully", h.service.Approve))
		r.With(h.rbac.Require(rbac.RouteUserFormReject)).Patch(rbac.RouteUserFormReject.Pattern(),
			h.withAnswers(http.StatusOK, "Reject form successfully", h.service.Reject))
		r.With(h.rbac.Require(rbac.RouteUserFormClose)).Patch(rbac.RouteUserFormClose.Pattern(),
			h.mutate("Close form successfully", h.service.Close))
		r.With(h.rbac.Require(rbac.RouteUserFormDelete)).Delete(rbac.RouteUserFormDelete.Pattern(),
			h.mutate("Delete form successfully", h.service.Delete))
		r.With(h.rbac.Require(rbac.RouteUserFormUndelete)).Patch(rbac.RouteUserFormUndelete.Pattern(),
			h.mutate("Undelete form successfully", h.service.Undelete))
	})
}

func userFormID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userFormId"))
	if err != nil {
		return uuid.Nil, shared.Validation([]shared.FieldError{{Field: "userFormId", Message: "userFormId must be a valid UUID"}})
	}
	return id, nil
}

func (h *Handler) decodeAnswers(r *http.Request) (Answers, error) {
	var answers Answers
	if err := httpx.DecodeJSON(r, &answers); err != nil {
		return nil, err
	}
	if err := answers.Validate(h.validator); err != nil {
		return nil, err
	}
	return answers, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := shared.NewQueryReader(r.URL.Query())
	filter := ListFilter{
		Name:           q.String("name"),
		UserFormStatus: Status(q.OneOf("userFormStatus", statusValues()...)),
		UserStatus:     q.OneOf("userStatus", UserStatuses...),
		FormID:         q.UUID("formId"),
		UserID:         q.UUID("userId"),
		IsDeleted:      q.Bool("isDeleted"),
		Page:           q.Page(maxListLimit),
		Order:          q.Order(OrderFields),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	result, err := h.service.List(r.Context(), caller, filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get user forms successfully", result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := userFormID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	detail, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get user form details successfully", detail)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := httpx.DecodeAndValidate(h.validator, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	caller, _ := shared.IdentityFromContext(r.Context())
	created, err := h.service.Assign(r.Context(), caller, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Assign forms with users successfully", created)
}

type answerFunc func(ctx context.Context, caller shared.Identity, id uuid.UUID, answers Answers) (Detail, error)

// withAnswers serves the mutations that carry an answer or evaluation map.
func (h *Handler) withAnswers(status int, message string, fn answerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := userFormID(r)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		answers, err := h.decodeAnswers(r)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		caller, _ := shared.IdentityFromContext(r.Context())
		detail, err := fn(r.Context(), caller, id, answers)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, status, message, detail)
	}
}

type mutation func(ctx context.Context, caller shared.Identity, id uuid.UUID) (UserForm, error)

func (h *Handler) mutate(message string, fn mutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := userFormID(r)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		caller, _ := shared.IdentityFromContext(r.Context())
		uf, err := fn(r.Context(), caller, id)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.OK(w, http.StatusOK, message, uf)
	}
}
