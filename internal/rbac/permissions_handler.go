package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/hrforms/internal/platform/httpx"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// PermissionsHandler exposes the caller's effective permission matrix.
type PermissionsHandler struct {
	logger *slog.Logger
	engine *Engine
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, engine *Engine, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, engine: engine, rbac: rbac}
}

// MountRoutes registers GET /permissions under the auth mount.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.Get("/permissions", h.listPermissions)
	})
}

type permissionsResult struct {
	Roles       []string     `json:"roles"`
	Permissions []Permission `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	perms, err := h.engine.EffectivePermissions(r.Context(), identity)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Get permissions successfully", permissionsResult{Roles: identity.Roles, Permissions: perms})
}
