package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
)

type contextKey struct{}

// UserIDFromContext returns the authenticated user id, zero when anonymous.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKey{}).(int64)
	return id
}

// Handler wires login endpoints and the bearer-token middleware.
type Handler struct {
	logger   *slog.Logger
	provider Provider
	sessions SessionStore
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, provider Provider, sessions SessionStore) *Handler {
	return &Handler{logger: logger, provider: provider, sessions: sessions, validate: validator.New()}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	user, err := h.provider.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, httpx.KindUnauthorized, "Unauthorized", "invalid credentials")
		return
	}
	token, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("session create failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, httpx.KindInternal, "Internal Server Error", "could not create session")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"token": token, "user_id": user.ID, "email": user.Email})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		_ = h.sessions.Revoke(r.Context(), token)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequireAuth rejects requests without a valid bearer token and stores the
// user id on the context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, httpx.KindUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		userID, err := h.sessions.Resolve(r.Context(), token)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, httpx.KindUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, userID)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
