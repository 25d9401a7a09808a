package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// Lockout parameters
const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// PasswordService handles registration and password authentication.
type PasswordService struct {
	db                   *gorm.DB
	users                *repository.UsersRepository
	tenants              *repository.TenantsRepository
	policy               *PasswordPolicy
	blockDisposableEmail bool
}

// NewPasswordService creates a new password service.
func NewPasswordService(db *gorm.DB, users *repository.UsersRepository, tenants *repository.TenantsRepository, policy *PasswordPolicy, blockDisposableEmail bool) *PasswordService {
	return &PasswordService{
		db:                   db,
		users:                users,
		tenants:              tenants,
		policy:               policy,
		blockDisposableEmail: blockDisposableEmail,
	}
}

// RegisterInput is the sign-up form: the first admin and the organization it creates.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	TenantName   string
	TenantDomain string
}

// Register creates a tenant and its admin user in one transaction.
func (s *PasswordService) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.Tenant, error) {
	for field, value := range map[string]string{
		"email":         in.Email,
		"password":      in.Password,
		"first_name":    in.FirstName,
		"last_name":     in.LastName,
		"tenant_name":   in.TenantName,
		"tenant_domain": in.TenantDomain,
	} {
		if strings.TrimSpace(value) == "" {
			return nil, nil, domain.Required(field)
		}
	}

	if err := ValidateEmail(in.Email, s.blockDisposableEmail); err != nil {
		return nil, nil, err
	}
	email := NormalizeEmail(in.Email)

	if err := s.validatePassword(in.Password); err != nil {
		return nil, nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, domain.ErrEmailTaken
	}

	tenantDomain := strings.ToLower(strings.TrimSpace(in.TenantDomain))
	taken, err := s.tenants.ExistsByDomain(ctx, tenantDomain)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, domain.ErrTenantDomainTaken
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	tenant := &domain.Tenant{
		Name:             SanitizeName(in.TenantName),
		Domain:           tenantDomain,
		SubscriptionPlan: domain.PlanBasic,
		Status:           domain.TenantActive,
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    SanitizeName(in.FirstName),
		LastName:     SanitizeName(in.LastName),
		Role:         domain.RoleAdmin,
		Status:       domain.UserActive,
	}

	err = repository.Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.tenants.WithTx(tx).Create(ctx, tenant); err != nil {
			return err
		}
		user.TenantID = tenant.ID
		return s.users.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		return nil, nil, err
	}

	return user, tenant, nil
}

// CreateUserInput describes a user added to an existing tenant by its admin.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// CreateUser adds a user to tenantID.
func (s *PasswordService) CreateUser(ctx context.Context, tenantID uuid.UUID, in CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, domain.Required("email")
	}
	if in.Password == "" {
		return nil, domain.Required("password")
	}
	if err := ValidateEmail(in.Email, s.blockDisposableEmail); err != nil {
		return nil, err
	}
	if err := s.validatePassword(in.Password); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, domain.NewValidationError("role", "invalid role %q", role)
	}

	email := NormalizeEmail(in.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: hash,
		FirstName:    SanitizeName(in.FirstName),
		LastName:     SanitizeName(in.LastName),
		Role:         role,
		Status:       domain.UserActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies email and password, returns the user on success.
// When tenantDomain is set the lookup is restricted to that tenant.
// Implements account lockout after 5 failed attempts with 15-minute lockout duration.
func (s *PasswordService) Authenticate(ctx context.Context, email, password, tenantDomain string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.NewValidationError("email", "email and password are required")
	}
	email = NormalizeEmail(email)

	var (
		user *domain.User
		err  error
	)
	if tenantDomain != "" {
		tenant, terr := s.tenants.GetByDomain(ctx, tenantDomain)
		if terr != nil {
			if errors.Is(terr, domain.ErrTenantNotFound) {
				return nil, domain.ErrInvalidCredentials
			}
			return nil, terr
		}
		user, err = s.users.GetByTenantAndEmail(ctx, tenant.ID, email)
	} else {
		user, err = s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Check if account is currently locked
	if user.IsLocked() {
		return nil, domain.ErrAccountLocked
	}

	if !VerifyPassword(password, user.PasswordHash) {
		_ = s.users.IncrementFailedLoginAttempts(ctx, user.ID, lockoutDuration, maxFailedAttempts)
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, domain.ErrAccountInactive
	}
	tenant, err := s.tenants.GetByID(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	// Successful login - reset failed attempts and stamp last_login
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	now := time.Now()
	user.LastLogin = &now
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	return user, nil
}

// ChangePassword replaces a user's password after checking the current one.
func (s *PasswordService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return domain.NewValidationError("password", "current_password and new_password are required")
	}
	if err := s.CheckPassword(ctx, userID, currentPassword); err != nil {
		return err
	}
	return s.SetPassword(ctx, userID, newPassword)
}

// CheckPassword re-authenticates a signed-in user before a sensitive change.
func (s *PasswordService) CheckPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if password == "" {
		return domain.Required("password")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return domain.ErrIncorrectPassword
	}
	return nil
}

// SetPassword validates newPassword against the policy and stores it.
func (s *PasswordService) SetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *PasswordService) validatePassword(password string) error {
	if s.policy == nil {
		return nil
	}
	return s.policy.ValidatePassword(password)
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt, err := randomBytes(saltLen)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return encodeArgon2Hash(salt, hash), nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	p, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.hash)))
	return constantTimeCompare(p.hash, computed)
}
