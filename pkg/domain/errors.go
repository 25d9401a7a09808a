package domain

import (
	"errors"
	"fmt"
)

// Authentication errors
var (
	ErrUserNotFound              = errors.New("user not found")
	ErrEmailTaken                = errors.New("email already registered")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrAccountLocked             = errors.New("account locked due to too many failed login attempts")
	ErrAccountInactive           = errors.New("account is not active")
	ErrSessionNotFound           = errors.New("session not found")
	ErrSessionExpired            = errors.New("session expired")
	ErrSessionRevoked            = errors.New("session revoked")
	ErrSessionFingerprint        = errors.New("session fingerprint mismatch - possible token theft")
	ErrInvalidToken              = errors.New("invalid token")
	ErrVerificationTokenNotFound = errors.New("verification token not found")
	ErrVerificationTokenExpired  = errors.New("verification token expired")
	ErrVerificationTokenConsumed = errors.New("verification token already used")
	ErrIncorrectPassword         = errors.New("current password is incorrect")
	ErrEmailAlreadyVerified      = errors.New("email already verified")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// MFA errors
var (
	ErrMFANotEnabled       = errors.New("MFA is not enabled for this account")
	ErrMFAAlreadyEnabled   = errors.New("MFA is already enabled")
	ErrMFANotSetUp         = errors.New("MFA has not been set up")
	ErrInvalidMFACode      = errors.New("invalid MFA code")
	ErrInvalidRecoveryCode = errors.New("invalid or already used recovery code")
	ErrMFAChallengeExpired = errors.New("MFA challenge expired")
)

// Tenant errors
var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantDomainTaken = errors.New("tenant domain already exists")
	ErrInvalidTenant     = errors.New("invalid tenant domain")
	ErrCannotDeleteSelf  = errors.New("cannot delete your own account")
)

// Resource errors
var (
	ErrProfileNotFound   = errors.New("business profile not found")
	ErrProfileExists     = errors.New("business profile already exists")
	ErrAPIKeyNotFound    = errors.New("api key not found")
	ErrAPIKeyExists      = errors.New("api key already exists for this platform and name")
	ErrContentNotFound   = errors.New("content not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrCustomerExists    = errors.New("customer with this email already exists")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrDealNotFound      = errors.New("deal not found")
	ErrPipelineNotFound  = errors.New("pipeline not found")
	ErrActivityNotFound  = errors.New("activity not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignSent      = errors.New("campaign has already been sent")
	ErrAccountNotFound   = errors.New("social account not found")
	ErrPostNotFound      = errors.New("social post not found")
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrPlatformNotFound  = errors.New("platform not supported")
	ErrProviderDisabled  = errors.New("provider not configured")
	ErrWorkflowNotActive = errors.New("workflow is not active")
)

// ValidationError reports a rejected input. Its message is safe to return to clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Required returns the standard "<field> is required" validation error.
func Required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: field + " is required"}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
