package repository

import (
	"context"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *gorm.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *gorm.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *UsersRepository) WithTx(tx *gorm.DB) *UsersRepository {
	return &UsersRepository{db: tx}
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := r.db.WithContext(ctx).Create(user).Error
	if IsDuplicate(err) {
		return domain.ErrEmailTaken
	}
	return err
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// GetByTenantAndID retrieves a user of a tenant.
func (r *UsersRepository) GetByTenantAndID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// GetByEmail retrieves the first user with email across tenants.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// GetByTenantAndEmail retrieves a user by email within a tenant.
func (r *UsersRepository) GetByTenantAndEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("email = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// ExistsByEmail checks if any user in any tenant uses email.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ?", strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

// ListByTenant returns a page of users and the total count.
func (r *UsersRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, page domain.Page) ([]domain.User, int64, error) {
	var (
		users []domain.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&domain.User{}).Scopes(ForTenant(tenantID))
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at ASC").Scopes(Paginate(page.Offset(), page.PerPage)).Find(&users).Error
	return users, total, err
}

// Update saves every column of user.
func (r *UsersRepository) Update(ctx context.Context, user *domain.User) error {
	result := r.db.WithContext(ctx).Model(user).Select("*").Omit("created_at").Updates(user)
	if IsDuplicate(result.Error) {
		return domain.ErrEmailTaken
	}
	return affected(result, domain.ErrUserNotFound)
}

// UpdatePassword replaces the password hash.
func (r *UsersRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).
		Update("password_hash", hash)
	return affected(result, domain.ErrUserNotFound)
}

// RecordLogin resets lockout counters and stamps last_login.
func (r *UsersRepository) RecordLogin(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"last_login":            now,
			"failed_login_attempts": 0,
			"locked_until":          nil,
		})
	return affected(result, domain.ErrUserNotFound)
}

// IncrementFailedLoginAttempts increments the failed login attempts counter and locks
// the account once maxAttempts is reached.
func (r *UsersRepository) IncrementFailedLoginAttempts(ctx context.Context, userID uuid.UUID, lockoutDuration time.Duration, maxAttempts int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}
		updates := map[string]any{"failed_login_attempts": user.FailedLoginAttempts + 1}
		if user.FailedLoginAttempts+1 >= maxAttempts {
			updates["locked_until"] = time.Now().Add(lockoutDuration)
		}
		return tx.Model(&domain.User{}).Where("id = ?", userID).Updates(updates).Error
	})
}

// MarkEmailVerified stamps email_verified_at unless it is already set.
func (r *UsersRepository) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND email_verified_at IS NULL", userID).
		Update("email_verified_at", time.Now().UTC())
	return result.Error
}

// UpdateMFAEnabled toggles the MFA flag.
func (r *UsersRepository) UpdateMFAEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).
		Update("mfa_enabled", enabled)
	return affected(result, domain.ErrUserNotFound)
}

// Delete removes a user of a tenant.
func (r *UsersRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).Delete(&domain.User{}, "id = ?", id)
	return affected(result, domain.ErrUserNotFound)
}

// CountByTenant returns total, active and admin user counts.
func (r *UsersRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (total, active, admins int64, err error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&domain.User{}).Scopes(ForTenant(tenantID))
	}
	if err = base().Count(&total).Error; err != nil {
		return
	}
	if err = base().Where("status = ?", domain.UserActive).Count(&active).Error; err != nil {
		return
	}
	err = base().Where("role = ?", domain.RoleAdmin).Count(&admins).Error
	return
}
