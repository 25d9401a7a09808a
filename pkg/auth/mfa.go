package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
)

const (
	// TOTP parameters
	totpPeriod = 30
	totpWindow = 1 // Allow ±30 seconds clock drift

	// Recovery code parameters
	recoveryCodeLength = 12
	recoveryCodeCount  = 8
	recoveryCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // No ambiguous chars

	// MFA challenge parameters
	mfaChallengeTokenTTL = 5 * time.Minute
)

// MFAService handles TOTP enrollment, verification and login challenges.
type MFAService struct {
	issuer        string
	box           *SecretBox
	db            *gorm.DB
	secrets       *repository.MFASecretsRepository
	recoveryCodes *repository.MFARecoveryCodesRepository
	users         *repository.UsersRepository
	tokens        *repository.VerificationTokensRepository
}

// NewMFAService creates a new MFA service. box encrypts the TOTP seeds at rest.
func NewMFAService(
	issuer string,
	box *SecretBox,
	db *gorm.DB,
	secrets *repository.MFASecretsRepository,
	recoveryCodes *repository.MFARecoveryCodesRepository,
	users *repository.UsersRepository,
	tokens *repository.VerificationTokensRepository,
) *MFAService {
	return &MFAService{
		issuer:        issuer,
		box:           box,
		db:            db,
		secrets:       secrets,
		recoveryCodes: recoveryCodes,
		users:         users,
		tokens:        tokens,
	}
}

// SetupTOTP generates a new TOTP secret and recovery codes for a user.
// MFA stays disabled until the first code is confirmed with VerifyTOTPAndEnable.
func (s *MFAService) SetupTOTP(ctx context.Context, userID uuid.UUID) (*domain.MFASetupResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domain.ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	var qrBuf bytes.Buffer
	img, err := key.Image(200, 200)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code image: %w", err)
	}
	if err := png.Encode(&qrBuf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	qrDataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrBuf.Bytes())

	now := time.Now()
	plainCodes := make([]string, recoveryCodeCount)
	hashedCodes := make([]*domain.MFARecoveryCode, recoveryCodeCount)
	for i := range plainCodes {
		code, err := generateRecoveryCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate recovery code: %w", err)
		}
		plainCodes[i] = code
		hashedCodes[i] = &domain.MFARecoveryCode{
			ID:        uuid.New(),
			UserID:    userID,
			CodeHash:  hashRecoveryCode(code),
			CreatedAt: now,
		}
	}

	encryptedSecret, err := s.box.Seal(key.Secret())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt TOTP secret: %w", err)
	}

	// Replace any previous, unconfirmed setup
	err = repository.Tx(ctx, s.db, func(tx *gorm.DB) error {
		secrets := s.secrets.WithTx(tx)
		codes := s.recoveryCodes.WithTx(tx)
		if err := secrets.DeleteAllByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete existing MFA secrets: %w", err)
		}
		if err := codes.DeleteAllByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete existing recovery codes: %w", err)
		}
		if err := secrets.Create(ctx, &domain.MFASecret{
			ID:              uuid.New(),
			UserID:          userID,
			Method:          domain.MFAMethodTOTP,
			SecretEncrypted: encryptedSecret,
			CreatedAt:       now,
		}); err != nil {
			return fmt.Errorf("failed to create MFA secret: %w", err)
		}
		if err := codes.CreateBatch(ctx, hashedCodes); err != nil {
			return fmt.Errorf("failed to create recovery codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.MFASetupResponse{
		Secret:        key.Secret(),
		QRCodeDataURI: qrDataURI,
		RecoveryCodes: plainCodes,
	}, nil
}

// VerifyTOTPAndEnable verifies a TOTP code and enables MFA for the user.
func (s *MFAService) VerifyTOTPAndEnable(ctx context.Context, userID uuid.UUID, code string) error {
	valid, err := s.VerifyTOTP(ctx, userID, code)
	if err != nil {
		return err
	}
	if !valid {
		return domain.ErrInvalidMFACode
	}

	if err := s.users.UpdateMFAEnabled(ctx, userID, true); err != nil {
		return fmt.Errorf("failed to enable MFA: %w", err)
	}
	return nil
}

// VerifyTOTP verifies a TOTP code against the user's stored secret.
func (s *MFAService) VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	secret, err := s.secrets.GetByUserIDAndMethod(ctx, userID, domain.MFAMethodTOTP)
	if err != nil {
		return false, err
	}

	seed, err := s.box.Open(secret.SecretEncrypted)
	if err != nil {
		return false, fmt.Errorf("failed to decrypt TOTP secret: %w", err)
	}

	valid, err := totp.ValidateCustom(strings.TrimSpace(code), seed, time.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpWindow,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// Malformed input, e.g. wrong number of digits
		return false, nil
	}

	if valid {
		if err := s.secrets.UpdateLastUsed(ctx, secret.ID); err != nil {
			return false, fmt.Errorf("failed to update last used: %w", err)
		}
	}

	return valid, nil
}

// VerifyRecoveryCode verifies and consumes a recovery code.
func (s *MFAService) VerifyRecoveryCode(ctx context.Context, userID uuid.UUID, code string) error {
	recoveryCode, err := s.recoveryCodes.GetByCodeHash(ctx, hashRecoveryCode(code))
	if err != nil {
		return err
	}

	if recoveryCode.UserID != userID || recoveryCode.IsUsed() {
		return domain.ErrInvalidRecoveryCode
	}

	return s.recoveryCodes.MarkUsed(ctx, recoveryCode.ID)
}

// DisableMFA disables MFA for a user and removes all MFA data.
func (s *MFAService) DisableMFA(ctx context.Context, userID uuid.UUID) error {
	return repository.Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.secrets.WithTx(tx).DeleteAllByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete MFA secrets: %w", err)
		}
		if err := s.recoveryCodes.WithTx(tx).DeleteAllByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete recovery codes: %w", err)
		}
		if err := s.users.WithTx(tx).UpdateMFAEnabled(ctx, userID, false); err != nil {
			return fmt.Errorf("failed to disable MFA: %w", err)
		}
		return nil
	})
}

// CreateMFAChallenge creates the short-lived token a password login hands back
// when a second factor is still required.
func (s *MFAService) CreateMFAChallenge(ctx context.Context, userID uuid.UUID, ip, userAgent string) (string, error) {
	rawToken, err := GenerateToken(32)
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := &domain.VerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(rawToken),
		Kind:      domain.TokenKindMFAChallenge,
		CreatedAt: now,
		ExpiresAt: now.Add(mfaChallengeTokenTTL),
		Metadata: domain.JSONMap{
			"password_verified": true,
			"ip":                ip,
			"user_agent":        userAgent,
		},
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to create MFA challenge token: %w", err)
	}

	return rawToken, nil
}

// CompleteChallenge checks a challenge token together with a TOTP or recovery
// code, consumes the challenge and returns the user.
func (s *MFAService) CompleteChallenge(ctx context.Context, challengeToken, code, recoveryCode string) (*domain.User, error) {
	if challengeToken == "" {
		return nil, domain.Required("challenge_token")
	}
	if code == "" && recoveryCode == "" {
		return nil, domain.NewValidationError("code", "code or recovery_code is required")
	}

	token, err := s.tokens.GetByTokenHash(ctx, HashToken(challengeToken), domain.TokenKindMFAChallenge)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationTokenNotFound) {
			return nil, domain.ErrMFAChallengeExpired
		}
		return nil, err
	}
	if !token.IsValid() {
		return nil, domain.ErrMFAChallengeExpired
	}

	if recoveryCode != "" {
		if err := s.VerifyRecoveryCode(ctx, token.UserID, recoveryCode); err != nil {
			return nil, err
		}
	} else {
		valid, err := s.VerifyTOTP(ctx, token.UserID, code)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, domain.ErrInvalidMFACode
		}
	}

	if err := s.tokens.MarkConsumed(ctx, token.ID); err != nil {
		if errors.Is(err, domain.ErrVerificationTokenConsumed) {
			return nil, domain.ErrMFAChallengeExpired
		}
		return nil, err
	}

	return s.users.GetByID(ctx, token.UserID)
}

// MFAStatus summarizes a user's second factor.
type MFAStatus struct {
	Enabled                bool `json:"enabled"`
	RecoveryCodesRemaining int  `json:"recovery_codes_remaining"`
}

// GetMFAStatus returns the MFA status for a user.
func (s *MFAService) GetMFAStatus(ctx context.Context, userID uuid.UUID) (*MFAStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.MFAEnabled {
		return &MFAStatus{}, nil
	}

	count, err := s.recoveryCodes.CountUnused(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &MFAStatus{Enabled: true, RecoveryCodesRemaining: count}, nil
}

// hashRecoveryCode returns a deterministic hash so codes can be looked up directly.
func hashRecoveryCode(code string) string {
	normalized := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(code))
	return HashToken("recovery:" + normalized)
}

// generateRecoveryCode generates a random recovery code in format XXXX-XXXX-XXXX
func generateRecoveryCode() (string, error) {
	chars, err := randomBytes(recoveryCodeLength)
	if err != nil {
		return "", err
	}

	for i := range chars {
		chars[i] = recoveryCodeChars[int(chars[i])%len(recoveryCodeChars)]
	}

	return fmt.Sprintf("%s-%s-%s", chars[0:4], chars[4:8], chars[8:12]), nil
}
