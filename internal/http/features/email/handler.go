package email

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
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// VerificationMailer delivers email verification links.
type VerificationMailer interface {
	SendVerificationEmail(ctx context.Context, to, verifyURL string) *notification.Delivery
}

// Handler handles email verification.
type Handler struct {
	logger       *slog.Logger
	verification *auth.EmailVerificationService
	mailer       VerificationMailer
	appBaseURL   string
}

// NewHandler creates a new email verification handler.
func NewHandler(
	logger *slog.Logger,
	verification *auth.EmailVerificationService,
	mailer VerificationMailer,
	appBaseURL string,
) *Handler {
	return &Handler{
		logger:       logger,
		verification: verification,
		mailer:       mailer,
		appBaseURL:   appBaseURL,
	}
}

// VerifyEmailRequest carries the token from the emailed link.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail redeems a verification token.
// POST /auth/verify-email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	// Support both query parameter and JSON body
	token := r.URL.Query().Get("token")
	if token == "" {
		var req VerifyEmailRequest
		if !httputil.Decode(w, r, &req) {
			return
		}
		token = req.Token
	}
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := h.verification.Verify(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidToken):
			httputil.Error(w, http.StatusBadRequest, "invalid verification token")
		case errors.Is(err, domain.ErrVerificationTokenExpired):
			httputil.Error(w, http.StatusBadRequest, "verification token expired")
		case errors.Is(err, domain.ErrVerificationTokenConsumed):
			httputil.Error(w, http.StatusBadRequest, "verification token already used")
		default:
			httputil.ServiceError(w, h.logger, err)
		}
		return
	}

	h.logger.Info("email verified", "user_id", userID)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully"})
}

// ResendVerification emails a fresh verification link to the caller.
// POST /auth/resend-verification
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	user, err := h.Send(r.Context(), id.UserID, auth.RequestOpts{IP: auth.ClientIP(r), UserAgent: r.UserAgent()})
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyVerified) {
			httputil.Error(w, http.StatusBadRequest, "email already verified")
			return
		}
		httputil.ServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("verification email sent", "user_id", user.ID)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Verification email sent"})
}

// Send issues a token for the user and emails the link. Delivery failures are
// logged; the token stays valid for a later resend.
func (h *Handler) Send(ctx context.Context, userID uuid.UUID, opts auth.RequestOpts) (*domain.User, error) {
	user, token, err := h.verification.CreateToken(ctx, userID, opts)
	if err != nil {
		return nil, err
	}

	verifyURL := fmt.Sprintf("%s/auth/verify-email?token=%s", h.appBaseURL, url.QueryEscape(token))
	if d := h.mailer.SendVerificationEmail(ctx, user.Email, verifyURL); !d.Succeeded() {
		h.logger.ErrorContext(ctx, "failed to send verification email", "user_id", user.ID, "error", d.Error)
	}
	return user, nil
}

// OnRegistered sends the first verification email of a new account.
func (h *Handler) OnRegistered(r *http.Request, user *domain.User) {
	if _, err := h.Send(r.Context(), user.ID, auth.RequestOpts{IP: auth.ClientIP(r), UserAgent: r.UserAgent()}); err != nil {
		h.logger.Error("failed to issue verification token", "user_id", user.ID, "error", err)
	}
}

// RegisterRoutes registers verification routes. Resending requires Auth.
func (h *Handler) RegisterRoutes(r chi.Router, verifyLimit, requireAuth func(http.Handler) http.Handler) {
	r.With(verifyLimit).Post("/auth/verify-email", h.VerifyEmail)
	r.With(requireAuth, verifyLimit).Post("/auth/resend-verification", h.ResendVerification)
}
