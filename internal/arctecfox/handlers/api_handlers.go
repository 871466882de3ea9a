package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gartstein/arctecfox/internal/arctecfox/auth"
	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// AuthService is the account and token provider.
type AuthService interface {
	SignUp(ctx context.Context, creds auth.Credentials) (*models.AuthUser, error)
	SignIn(ctx context.Context, creds auth.Credentials) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	GetUser(ctx context.Context, token string) (*models.AuthUser, error)
}

// ProfileController defines the business logic interface
// that the profile endpoints will invoke.
type ProfileController interface {
	CompleteProfile(ctx context.Context, token string, profile *models.ProfileData) (*models.User, error)
	IsProfileComplete(ctx context.Context, userID string) (bool, error)
}

// TableReader reads whole tables.
type TableReader interface {
	FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error)
}

// APIHandler serves the backend's HTTP API.
type APIHandler struct {
	auth     AuthService
	profiles ProfileController
	tables   TableReader
	plans    http.Handler
	logger   *zap.Logger
}

// NewAPIHandler constructs an APIHandler. plans serves the planning API and
// may be nil when plan generation is disabled.
func NewAPIHandler(authService AuthService, profiles ProfileController, tables TableReader, plans http.Handler, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		auth:     authService,
		profiles: profiles,
		tables:   tables,
		plans:    plans,
		logger:   logger.Named("api_handler"),
	}
}

// Register adds every route to the mux.
func (h *APIHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/auth/v1/signup", h.SignUp},
		{http.MethodPost, "/auth/v1/token", h.SignIn},
		{http.MethodPost, "/auth/v1/logout", h.SignOut},
		{http.MethodGet, "/auth/v1/user", h.CurrentUser},
		{http.MethodGet, "/rest/v1/{table}", h.FetchTable},
		{http.MethodPost, "/rest/v1/profile", h.CompleteProfile},
		{http.MethodGet, "/rest/v1/profile/{user_id}/completed", h.ProfileStatus},
		{http.MethodPost, "/api/generate_pm_plan", h.GeneratePlan},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return err
		}
	}
	return nil
}

// SignUp registers an account.
func (h *APIHandler) SignUp(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var creds auth.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.writeServiceError(w, err)
		return
	}
	user, err := h.auth.SignUp(r.Context(), creds)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// SignIn exchanges credentials for an access token.
func (h *APIHandler) SignIn(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var creds auth.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.writeServiceError(w, err)
		return
	}
	session, err := h.auth.SignIn(r.Context(), creds)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// SignOut revokes the caller's token.
func (h *APIHandler) SignOut(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := h.auth.SignOut(r.Context(), auth.TokenFromContext(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser returns the caller's identity.
func (h *APIHandler) CurrentUser(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeServiceError(w, e.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// FetchTable returns every row of a readable table.
func (h *APIHandler) FetchTable(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rows, err := h.tables.FetchAll(r.Context(), params["table"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// CompleteProfile runs the profile completion workflow for the caller.
func (h *APIHandler) CompleteProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var profile models.ProfileData
	if err := decodeJSON(r, &profile); err != nil {
		h.writeServiceError(w, err)
		return
	}
	user, err := h.profiles.CompleteProfile(r.Context(), auth.TokenFromContext(r.Context()), &profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ProfileStatus reports whether a user's profile is complete.
func (h *APIHandler) ProfileStatus(w http.ResponseWriter, r *http.Request, params map[string]string) {
	completed, err := h.profiles.IsProfileComplete(r.Context(), params["user_id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"profile_completed": completed})
}

// GeneratePlan forwards to the planning API.
func (h *APIHandler) GeneratePlan(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if h.plans == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "plan generation is not configured")
		return
	}
	h.plans.ServeHTTP(w, r)
}

func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	status, code := h.mapServiceError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeError(w, status, code, message)
}

var errMissingBody = errors.New("request body required")
