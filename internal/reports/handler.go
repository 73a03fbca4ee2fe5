package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/platform/httpx"
	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

const maxReportLimit = 50

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.With(h.rbac.Require(rbac.RouteReportForm)).Get(rbac.RouteReportForm.Pattern(), h.formReport)
	})
}

func dropAll(v string) string {
	if v == FilterAll {
		return ""
	}
	return v
}

func (h *Handler) formReport(w http.ResponseWriter, r *http.Request) {
	formID, err := uuid.Parse(chi.URLParam(r, "formId"))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.Validation([]shared.FieldError{{Field: "formId", Message: "formId must be a valid UUID"}}))
		return
	}
	q := shared.NewQueryReader(r.URL.Query())
	filter := Filter{
		FormID:         formID,
		UserStatus:     dropAll(q.OneOf("userStatus", UserStatuses...)),
		UserFormStatus: dropAll(q.OneOf("userFormStatus", UserFormStatuses...)),
		Page:           q.Page(maxReportLimit),
		Order:          q.Order(OrderFields),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report, err := h.service.FormReport(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Report retrieved successfully", report)
}
