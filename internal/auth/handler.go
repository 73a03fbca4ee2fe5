package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/hrforms/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	validator    *validator.Validate
	frontendURL  string
	loginLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance. loginLimiter may be nil.
func NewHandler(logger *slog.Logger, service *Service, frontendURL string, loginLimiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		validator:    httpx.NewValidator(),
		frontendURL:  frontendURL,
		loginLimiter: loginLimiter,
	}
}

// MountUserRoutes registers the public token endpoints under /api/users.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimiter != nil {
			r.Use(h.loginLimiter)
		}
		r.Post("/login", h.handleLogin)
	})
	r.Post("/refresh-token", h.handleRefresh)
}

// MountRoutes registers the Google OAuth endpoints under /api/auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/oauth-google/request", h.handleGoogleRequest)
	r.Get("/oauth-google", h.handleGoogleCallback)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=50"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(h.validator, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Login successfully", pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Refresh token successfully", pair)
}

func (h *Handler) handleGoogleRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
	httpx.OK(w, http.StatusOK, "OAuth Google Success", map[string]string{"url": h.service.GoogleAuthURL()})
}

func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	pair, err := h.service.LoginWithGoogle(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, RedirectURL(h.frontendURL, pair), http.StatusFound)
}
