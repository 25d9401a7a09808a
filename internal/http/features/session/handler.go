package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// Handler handles session endpoints.
type Handler struct {
	logger         *slog.Logger
	sessionService *auth.SessionService
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, sessionService *auth.SessionService, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{
		logger:         logger,
		sessionService: sessionService,
		cookieConfig:   cookieConfig,
	}
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshToken reads the token from the body, falling back to the cookie.
func refreshToken(r *http.Request) (string, error) {
	var req RefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			return "", err
		}
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	token, _ := httputil.GetRefreshTokenFromCookie(r)
	return token, nil
}

// Refresh mints a new access token.
// POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := refreshToken(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tokens, err := h.sessionService.RefreshSession(r.Context(), token, auth.IssueSessionOpts{Request: r})
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) ||
			errors.Is(err, domain.ErrSessionExpired) ||
			errors.Is(err, domain.ErrSessionRevoked) ||
			errors.Is(err, domain.ErrSessionFingerprint) {
			httputil.ClearRefreshCookie(w, h.cookieConfig)
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		httputil.ServiceError(w, h.logger, err)
		return
	}

	httputil.SetRefreshCookie(w, tokens.RefreshToken, h.sessionService.RefreshTokenTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, tokens)
}

// Logout revokes the session of a refresh token.
// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := refreshToken(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if token != "" {
		// Errors are ignored to prevent enumeration.
		_ = h.sessionService.RevokeSession(r.Context(), token)
	} else if claims, ok := middleware.GetClaims(r.Context()); ok && claims.ID != "" {
		if err := revokeByClaims(r, h.sessionService, claims); err != nil {
			h.logger.Warn("failed to revoke session", "error", err)
		}
	}

	httputil.ClearRefreshCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func revokeByClaims(r *http.Request, sessions *auth.SessionService, claims *auth.AccessTokenClaims) error {
	id, err := claims.SessionID()
	if err != nil {
		return err
	}
	return sessions.RevokeSessionByID(r.Context(), id)
}

// LogoutAll revokes all sessions for the current user.
// POST /auth/logout/all
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessionService.RevokeAllSessions(r.Context(), userID); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	httputil.ClearRefreshCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "All sessions revoked"})
}
