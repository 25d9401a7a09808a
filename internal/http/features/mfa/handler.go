package mfa

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Handler handles MFA-related HTTP requests
type Handler struct {
	logger          *slog.Logger
	mfaService      *auth.MFAService
	passwordService *auth.PasswordService
	sessionService  *auth.SessionService
}

// NewHandler creates a new MFA handler
func NewHandler(
	logger *slog.Logger,
	mfaService *auth.MFAService,
	passwordService *auth.PasswordService,
	sessionService *auth.SessionService,
) *Handler {
	return &Handler{
		logger:          logger,
		mfaService:      mfaService,
		passwordService: passwordService,
		sessionService:  sessionService,
	}
}

// SetupRequest represents the request body for MFA setup
type SetupRequest struct {
	Password string `json:"password"`
}

// SetupResponse represents the response body for MFA setup
type SetupResponse struct {
	QRCode        string   `json:"qr_code"`
	Secret        string   `json:"secret"`
	RecoveryCodes []string `json:"recovery_codes"`
}

// checkPassword writes the error response and reports false when the password is wrong.
func (h *Handler) checkPassword(w http.ResponseWriter, r *http.Request, id middleware.Identity, password string) bool {
	err := h.passwordService.CheckPassword(r.Context(), id.UserID, password)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrIncorrectPassword):
		httputil.Error(w, http.StatusUnauthorized, "invalid password")
	default:
		httputil.ServiceError(w, h.logger, err)
	}
	return false
}

// Setup handles POST /auth/mfa/setup
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SetupRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "password is required")
		return
	}
	if !h.checkPassword(w, r, id, req.Password) {
		return
	}

	setup, err := h.mfaService.SetupTOTP(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrMFAAlreadyEnabled) {
			httputil.Error(w, http.StatusConflict, "MFA is already enabled")
			return
		}
		h.logger.Error("failed to setup TOTP", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to setup MFA")
		return
	}

	httputil.JSON(w, http.StatusOK, SetupResponse{
		QRCode:        setup.QRCodeDataURI,
		Secret:        setup.Secret,
		RecoveryCodes: setup.RecoveryCodes,
	})
}

// EnableRequest represents the request body for enabling MFA
type EnableRequest struct {
	Code string `json:"code"`
}

// Enable handles POST /auth/mfa/enable
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req EnableRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.mfaService.VerifyTOTPAndEnable(r.Context(), id.UserID, req.Code); err != nil {
		if errors.Is(err, domain.ErrMFANotSetUp) {
			httputil.Error(w, http.StatusBadRequest, "MFA setup not initiated. Please call /auth/mfa/setup first")
			return
		}
		httputil.ServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("MFA enabled", "user_id", id.UserID)
	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "MFA enabled successfully",
	})
}

// DisableRequest represents the request body for disabling MFA
type DisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Disable handles POST /auth/mfa/disable
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DisableRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Password == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "password and code are required")
		return
	}
	if !h.checkPassword(w, r, id, req.Password) {
		return
	}

	valid, err := h.mfaService.VerifyTOTP(r.Context(), id.UserID, req.Code)
	if err != nil && !errors.Is(err, domain.ErrMFANotSetUp) {
		h.logger.Error("failed to verify TOTP", "error", err)
	}
	if !valid && h.mfaService.VerifyRecoveryCode(r.Context(), id.UserID, req.Code) != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid MFA code")
		return
	}

	if err := h.mfaService.DisableMFA(r.Context(), id.UserID); err != nil {
		h.logger.Error("failed to disable MFA", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to disable MFA")
		return
	}

	if err := h.sessionService.RevokeAllSessions(r.Context(), id.UserID); err != nil {
		h.logger.Error("failed to revoke sessions", "error", err)
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "MFA disabled. All sessions revoked.",
	})
}

// Status handles GET /auth/mfa/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := h.mfaService.GetMFAStatus(r.Context(), id.UserID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusOK, status)
}

// VerifyRequest represents the request body for MFA verification
type VerifyRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
	RecoveryCode   string `json:"recovery_code"`
}

// Verify handles POST /auth/mfa/verify
//
// It completes a login that stopped at the MFA challenge and issues the session.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if req.ChallengeToken == "" || (req.Code == "" && req.RecoveryCode == "") {
		httputil.Error(w, http.StatusBadRequest, "challenge_token and code are required")
		return
	}

	user, err := h.mfaService.CompleteChallenge(r.Context(), req.ChallengeToken, req.Code, req.RecoveryCode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMFAChallengeExpired):
			httputil.Error(w, http.StatusUnauthorized, "MFA challenge expired")
		case errors.Is(err, domain.ErrInvalidMFACode), errors.Is(err, domain.ErrInvalidRecoveryCode):
			httputil.Error(w, http.StatusUnauthorized, "invalid MFA code")
		default:
			httputil.ServiceError(w, h.logger, err)
		}
		return
	}

	tokens, err := h.sessionService.IssueSession(r.Context(), user, auth.IssueSessionOpts{
		Request:     r,
		MFAVerified: true,
	})
	if err != nil {
		h.logger.Error("failed to issue session", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":       "Login successful",
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    tokens.TokenType,
		"expires_in":    tokens.ExpiresIn,
	})
}

// RegisterRoutes registers MFA routes. Management requires Auth; disabling
// additionally requires an MFA-verified session.
func (h *Handler) RegisterRoutes(r chi.Router, authLimit, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/auth/mfa/status", h.Status)
		r.Post("/auth/mfa/setup", h.Setup)
		r.Post("/auth/mfa/enable", h.Enable)
		r.With(middleware.RequireMFA()).Post("/auth/mfa/disable", h.Disable)
	})
	r.With(authLimit).Post("/auth/mfa/verify", h.Verify)
}
