package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON response with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes {"error": msg} with status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{Error: msg})
}

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds the size limit.
var ErrBodyTooLarge = errors.New("request body too large")

// DecodeJSON decodes the request body into v. An empty body is an error.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}
	if errors.Is(err, io.EOF) {
		return errors.New("request body is required")
	}
	return errors.New("invalid request body")
}

// Decode decodes the body into v and writes the error response on failure.
// It reports whether the handler may continue.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := DecodeJSON(r, v); err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, err.Error())
			return false
		}
		Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

var notFoundErrors = []error{
	domain.ErrUserNotFound, domain.ErrTenantNotFound, domain.ErrProfileNotFound,
	domain.ErrAPIKeyNotFound, domain.ErrContentNotFound, domain.ErrCustomerNotFound,
	domain.ErrLeadNotFound, domain.ErrDealNotFound, domain.ErrPipelineNotFound,
	domain.ErrActivityNotFound, domain.ErrMessageNotFound, domain.ErrCampaignNotFound,
	domain.ErrAccountNotFound, domain.ErrPostNotFound, domain.ErrWorkflowNotFound,
	domain.ErrTemplateNotFound, domain.ErrPlatformNotFound,
}

var conflictErrors = []error{
	domain.ErrEmailTaken, domain.ErrCustomerExists, domain.ErrAPIKeyExists,
	domain.ErrCampaignSent,
}

var badRequestErrors = []error{
	domain.ErrTenantDomainTaken, domain.ErrProfileExists, domain.ErrInvalidEmail,
	domain.ErrWeakPassword, domain.ErrCannotDeleteSelf, domain.ErrWorkflowNotActive,
	domain.ErrMFAAlreadyEnabled, domain.ErrMFANotSetUp, domain.ErrMFANotEnabled,
	domain.ErrInvalidMFACode, domain.ErrInvalidRecoveryCode, domain.ErrIncorrectPassword,
	domain.ErrInvalidToken, domain.ErrVerificationTokenExpired, domain.ErrVerificationTokenConsumed,
	domain.ErrProviderDisabled,
}

var unauthorizedErrors = []error{
	domain.ErrInvalidCredentials, domain.ErrAccountInactive, domain.ErrSessionNotFound,
	domain.ErrSessionExpired, domain.ErrSessionRevoked, domain.ErrSessionFingerprint,
	domain.ErrMFAChallengeExpired,
}

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case matches(err, notFoundErrors):
		return http.StatusNotFound
	case matches(err, conflictErrors):
		return http.StatusConflict
	case matches(err, badRequestErrors):
		return http.StatusBadRequest
	case matches(err, unauthorizedErrors):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// messages overrides the client-facing text of a few sentinels.
var messages = map[error]string{
	domain.ErrEmailTaken:         "Email already registered",
	domain.ErrTenantDomainTaken:  "Tenant domain already exists",
	domain.ErrInvalidCredentials: "Invalid credentials",
	domain.ErrAccountInactive:    "Account is not active",
}

// ServiceError writes the response for err. Unexpected errors are logged and
// answered with a generic message.
func ServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		Error(w, status, "internal server error")
		return
	}
	for sentinel, msg := range messages {
		if errors.Is(err, sentinel) {
			Error(w, status, msg)
			return
		}
	}
	Error(w, status, err.Error())
}

// QueryInt reads an integer query parameter, returning def when absent or invalid.
func QueryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// PageFromQuery reads page and per_page.
func PageFromQuery(r *http.Request, defaultPerPage int) domain.Page {
	return domain.NewPage(QueryInt(r, "page", 1), QueryInt(r, "per_page", defaultPerPage), defaultPerPage)
}
