package password

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordResetEmail(ctx context.Context, to, resetURL string) *notification.Delivery
}

// Handler handles registration, password login and password maintenance.
type Handler struct {
	logger          *slog.Logger
	passwordService *auth.PasswordService
	sessionService  *auth.SessionService
	resetService    *auth.PasswordResetService
	mfaService      *auth.MFAService
	mailer          ResetMailer
	cookieConfig    httputil.CookieConfig
	appBaseURL      string
	onRegistered    func(r *http.Request, user *domain.User)
}

// NewHandler creates a new password handler. mfaService may be nil.
func NewHandler(
	logger *slog.Logger,
	passwordService *auth.PasswordService,
	sessionService *auth.SessionService,
	resetService *auth.PasswordResetService,
	mfaService *auth.MFAService,
	mailer ResetMailer,
	cookieConfig httputil.CookieConfig,
	appBaseURL string,
) *Handler {
	return &Handler{
		logger:          logger,
		passwordService: passwordService,
		sessionService:  sessionService,
		resetService:    resetService,
		mfaService:      mfaService,
		mailer:          mailer,
		cookieConfig:    cookieConfig,
		appBaseURL:      appBaseURL,
	}
}

// OnRegistered sets a callback run after a tenant and its admin are created.
func (h *Handler) OnRegistered(fn func(r *http.Request, user *domain.User)) {
	h.onRegistered = fn
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	TenantName   string `json:"tenant_name"`
	TenantDomain string `json:"tenant_domain"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	TenantDomain string `json:"tenant_domain,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string         `json:"message"`
	User    *domain.User   `json:"user"`
	Tenant  *domain.Tenant `json:"tenant,omitempty"`
	*domain.TokenPair
}

// MFAChallengeResponse is returned by login when a second factor is still required.
type MFAChallengeResponse struct {
	MFARequired    bool   `json:"mfa_required"`
	ChallengeToken string `json:"challenge_token"`
	Message        string `json:"message"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register creates a tenant together with its first admin.
// POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	user, tenant, err := h.passwordService.Register(r.Context(), auth.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		TenantName:   req.TenantName,
		TenantDomain: req.TenantDomain,
	})
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	tokens, err := h.sessionService.IssueSession(r.Context(), user, auth.IssueSessionOpts{Request: r})
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	h.logger.Info("tenant registered", "tenant_id", tenant.ID, "user_id", user.ID)
	if h.onRegistered != nil {
		h.onRegistered(r, user)
	}
	h.writeAuthResponse(w, http.StatusCreated, AuthResponse{
		Message:   "Registration successful",
		User:      user,
		Tenant:    tenant,
		TokenPair: tokens,
	})
}

// Login authenticates with email and password.
// POST /auth/login
//
// With MFA enabled the response carries a challenge token to complete at
// /auth/mfa/verify instead of tokens.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	user, err := h.passwordService.Authenticate(r.Context(), req.Email, req.Password, req.TenantDomain)
	if err != nil {
		if errors.Is(err, domain.ErrAccountLocked) {
			httputil.Error(w, http.StatusForbidden, "account temporarily locked due to too many failed login attempts. Please try again in 15 minutes.")
			return
		}
		httputil.ServiceError(w, h.logger, err)
		return
	}

	if user.MFAEnabled && h.mfaService != nil {
		challengeToken, err := h.mfaService.CreateMFAChallenge(r.Context(), user.ID, auth.ClientIP(r), r.UserAgent())
		if err != nil {
			h.logger.Error("failed to create MFA challenge", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "authentication failed")
			return
		}
		httputil.JSON(w, http.StatusOK, MFAChallengeResponse{
			MFARequired:    true,
			ChallengeToken: challengeToken,
			Message:        "MFA verification required",
		})
		return
	}

	tokens, err := h.sessionService.IssueSession(r.Context(), user, auth.IssueSessionOpts{Request: r})
	if err != nil {
		h.logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	h.writeAuthResponse(w, http.StatusOK, AuthResponse{
		Message:   "Login successful",
		User:      user,
		TokenPair: tokens,
	})
}

// writeAuthResponse returns the tokens in the body and mirrors the refresh token
// into an HttpOnly cookie for browser clients.
func (h *Handler) writeAuthResponse(w http.ResponseWriter, status int, resp AuthResponse) {
	httputil.SetRefreshCookie(w, resp.RefreshToken, h.sessionService.RefreshTokenTTL(), h.cookieConfig)
	httputil.JSON(w, status, resp)
}

// ChangePasswordRequest represents a password change by the signed-in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the caller's password.
// POST /auth/change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if err := h.passwordService.ChangePassword(r.Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("password changed", "user_id", id.UserID)
	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// PasswordResetRequestRequest represents a password reset request.
type PasswordResetRequestRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest represents a password reset.
type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

const resetRequestedMessage = "If an account exists with that email, a password reset link has been sent"

// RequestPasswordReset emails a reset link.
// POST /auth/password/reset-request
//
// The answer is the same whether or not the account exists.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequestRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	user, token, err := h.resetService.CreateToken(r.Context(), req.Email, auth.RequestOpts{
		IP:        auth.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			h.logger.Error("failed to create password reset token", "error", err)
		}
		httputil.JSON(w, http.StatusOK, MessageResponse{Message: resetRequestedMessage})
		return
	}

	resetURL := fmt.Sprintf("%s/auth/reset-password/confirm?token=%s", h.appBaseURL, url.QueryEscape(token))
	delivery := h.mailer.SendPasswordResetEmail(r.Context(), user.Email, resetURL)
	if !delivery.Succeeded() {
		h.logger.Error("failed to send password reset email", "user_id", user.ID, "error", delivery.Error)
	} else {
		h.logger.Info("password reset email sent", "user_id", user.ID, "simulated", delivery.Simulated)
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: resetRequestedMessage})
}

// ResetPassword redeems a reset token.
// POST /auth/password/reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if err := h.resetService.Reset(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, domain.ErrVerificationTokenNotFound), errors.Is(err, domain.ErrInvalidToken):
			httputil.Error(w, http.StatusBadRequest, "invalid reset token")
		case errors.Is(err, domain.ErrVerificationTokenExpired):
			httputil.Error(w, http.StatusBadRequest, "reset token expired")
		case errors.Is(err, domain.ErrVerificationTokenConsumed):
			httputil.Error(w, http.StatusBadRequest, "reset token already used")
		default:
			httputil.ServiceError(w, h.logger, err)
		}
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Password reset successful"})
}
