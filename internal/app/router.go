package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/hrforms/internal/auth"
	"github.com/odyssey-erp/hrforms/internal/forms"
	"github.com/odyssey-erp/hrforms/internal/observability"
	"github.com/odyssey-erp/hrforms/internal/platform/httpx"
	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/reports"
	"github.com/odyssey-erp/hrforms/internal/roles"
	"github.com/odyssey-erp/hrforms/internal/shared"
	"github.com/odyssey-erp/hrforms/internal/userforms"
	"github.com/odyssey-erp/hrforms/internal/users"
	"github.com/odyssey-erp/hrforms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	FormsHandler       *forms.Handler
	UserFormsHandler   *userforms.Handler
	ReportsHandler     *reports.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, params.Logger, shared.NotFound("Route not found", shared.Context{"path": r.URL.Path}))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, params.Logger, shared.NotFound("Route not found", shared.Context{"path": r.URL.Path, "method": r.Method}))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route(rbac.MountUsers, func(r chi.Router) {
		if params.AuthHandler != nil {
			params.AuthHandler.MountUserRoutes(r)
		}
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
	})
	r.Route(rbac.MountAuth, func(r chi.Router) {
		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(r)
		}
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountRoutes(r)
		}
	})
	if params.RolesHandler != nil {
		r.Route(rbac.MountRoles, params.RolesHandler.MountRoutes)
		r.Route(rbac.MountUserRoles, params.RolesHandler.MountUserRoleRoutes)
		r.Route(rbac.MountRoleModules, params.RolesHandler.MountRoleModuleRoutes)
	}
	if params.FormsHandler != nil {
		r.Route(rbac.MountForms, params.FormsHandler.MountRoutes)
	}
	if params.UserFormsHandler != nil {
		r.Route(rbac.MountUserForms, params.UserFormsHandler.MountRoutes)
	}
	if params.ReportsHandler != nil {
		r.Route(rbac.MountReports, params.ReportsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
