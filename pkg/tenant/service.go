// Package tenant manages an organization and the users that belong to it.
package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service handles tenant settings and user administration.
type Service struct {
	db        *gorm.DB
	tenants   *repository.TenantsRepository
	users     *repository.UsersRepository
	sessions  *repository.SessionsRepository
	passwords *auth.PasswordService
}

// NewService creates a new tenant service.
func NewService(
	db *gorm.DB,
	tenants *repository.TenantsRepository,
	users *repository.UsersRepository,
	sessions *repository.SessionsRepository,
	passwords *auth.PasswordService,
) *Service {
	return &Service{
		db:        db,
		tenants:   tenants,
		users:     users,
		sessions:  sessions,
		passwords: passwords,
	}
}

// Get returns the tenant.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	return s.tenants.GetByID(ctx, tenantID)
}

// UpdateInput carries the tenant fields an admin may change. Nil fields are kept.
type UpdateInput struct {
	Name             *string
	SubscriptionPlan *string
}

// Update changes the tenant name and plan.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, in UpdateInput) (*domain.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := auth.SanitizeName(*in.Name)
		if name == "" {
			return nil, domain.Required("name")
		}
		t.Name = name
	}
	if in.SubscriptionPlan != nil {
		plan := strings.ToLower(strings.TrimSpace(*in.SubscriptionPlan))
		if !domain.ValidPlan(plan) {
			return nil, domain.NewValidationError("subscription_plan", "invalid subscription plan %q", *in.SubscriptionPlan)
		}
		t.SubscriptionPlan = plan
	}

	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return t, nil
}

// ListUsers returns a page of the tenant's users.
func (s *Service) ListUsers(ctx context.Context, tenantID uuid.UUID, page domain.Page) ([]domain.User, domain.Pagination, error) {
	users, total, err := s.users.ListByTenant(ctx, tenantID, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return users, domain.NewPagination(page, total), nil
}

// CreateUser adds a user to the tenant.
func (s *Service) CreateUser(ctx context.Context, tenantID uuid.UUID, in auth.CreateUserInput) (*domain.User, error) {
	return s.passwords.CreateUser(ctx, tenantID, in)
}

// UpdateUserInput carries the user fields an admin may change. Nil fields are kept.
type UpdateUserInput struct {
	FirstName          *string
	LastName           *string
	Role               *string
	Status             *string
	LanguagePreference *string
	Timezone           *string
}

// UpdateUser changes profile, role and status of a user of the tenant.
// Deactivating a user revokes their sessions.
func (s *Service) UpdateUser(ctx context.Context, tenantID, userID uuid.UUID, in UpdateUserInput) (*domain.User, error) {
	u, err := s.users.GetByTenantAndID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		u.FirstName = auth.SanitizeName(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = auth.SanitizeName(*in.LastName)
	}
	if in.Role != nil {
		if !domain.ValidRole(*in.Role) {
			return nil, domain.NewValidationError("role", "invalid role %q", *in.Role)
		}
		u.Role = *in.Role
	}
	if in.Status != nil {
		if !domain.ValidUserStatus(*in.Status) {
			return nil, domain.NewValidationError("status", "invalid status %q", *in.Status)
		}
		u.Status = *in.Status
	}
	if in.LanguagePreference != nil {
		u.LanguagePreference = *in.LanguagePreference
	}
	if in.Timezone != nil {
		if _, err := time.LoadLocation(*in.Timezone); err != nil {
			return nil, domain.NewValidationError("timezone", "invalid timezone %q", *in.Timezone)
		}
		u.Timezone = *in.Timezone
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	if !u.IsActive() {
		if err := s.sessions.RevokeAllByUserID(ctx, u.ID); err != nil {
			return nil, fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}
	return u, nil
}

// DeleteUser removes a user of the tenant. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, tenantID, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return domain.ErrCannotDeleteSelf
	}
	if _, err := s.users.GetByTenantAndID(ctx, tenantID, userID); err != nil {
		return err
	}
	return repository.Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.sessions.WithTx(tx).RevokeAllByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return s.users.WithTx(tx).Delete(ctx, tenantID, userID)
	})
}

// Stats summarizes the tenant.
type Stats struct {
	TotalUsers       int64     `json:"total_users"`
	ActiveUsers      int64     `json:"active_users"`
	AdminUsers       int64     `json:"admin_users"`
	SubscriptionPlan string    `json:"subscription_plan"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Stats returns user counts and plan of the tenant.
func (s *Service) Stats(ctx context.Context, tenantID uuid.UUID) (*Stats, error) {
	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	total, active, admins, err := s.users.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	return &Stats{
		TotalUsers:       total,
		ActiveUsers:      active,
		AdminUsers:       admins,
		SubscriptionPlan: t.SubscriptionPlan,
		Status:           t.Status,
		CreatedAt:        t.CreatedAt,
	}, nil
}
