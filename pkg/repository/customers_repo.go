package repository

import (
	"context"
	"strings"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerFilter narrows customer listings.
type CustomerFilter struct {
	Status  string
	Country string
	Search  string
}

// GroupCount is a row of a GROUP BY count.
type GroupCount struct {
	Key   string `gorm:"column:group_key"`
	Count int64  `gorm:"column:group_count"`
}

// CustomersRepository handles customer persistence.
type CustomersRepository struct {
	db *gorm.DB
}

// NewCustomersRepository creates a new customers repository.
func NewCustomersRepository(db *gorm.DB) *CustomersRepository {
	return &CustomersRepository{db: db}
}

func (r *CustomersRepository) filtered(ctx context.Context, tenantID uuid.UUID, f CustomerFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Customer{}).Scopes(ForTenant(tenantID))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Country != "" {
		q = q.Where("country = ?", f.Country)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?)", like, like, like)
	}
	return q
}

// List returns a page of customers, newest first, and the total match count.
func (r *CustomersRepository) List(ctx context.Context, tenantID uuid.UUID, f CustomerFilter, page domain.Page) ([]domain.Customer, int64, error) {
	q := r.filtered(ctx, tenantID, f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var customers []domain.Customer
	err := q.Order("created_at DESC").Scopes(Paginate(page.Offset(), page.PerPage)).Find(&customers).Error
	return customers, total, err
}

// All returns every matching customer ordered by name.
func (r *CustomersRepository) All(ctx context.Context, tenantID uuid.UUID, f CustomerFilter) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := r.filtered(ctx, tenantID, f).Order("name ASC").Find(&customers).Error
	return customers, err
}

// Get retrieves a customer of a tenant.
func (r *CustomersRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Customer, error) {
	var c domain.Customer
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrCustomerNotFound)
	}
	return &c, nil
}

// ExistsByEmail reports whether the tenant already has a customer with email.
func (r *CustomersRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).Scopes(ForTenant(tenantID)).
		Where("LOWER(email) = ?", strings.ToLower(email)).Count(&n).Error
	return n > 0, err
}

// Create stores a customer.
func (r *CustomersRepository) Create(ctx context.Context, c *domain.Customer) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if IsDuplicate(err) {
		return domain.ErrCustomerExists
	}
	return err
}

// Update saves every column of a customer.
func (r *CustomersRepository) Update(ctx context.Context, c *domain.Customer) error {
	result := r.db.WithContext(ctx).Model(c).
		Where("tenant_id = ?", c.TenantID).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(c)
	if IsDuplicate(result.Error) {
		return domain.ErrCustomerExists
	}
	return affected(result, domain.ErrCustomerNotFound)
}

// Delete removes a customer with its leads, deals and activities.
func (r *CustomersRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(ForTenant(tenantID)).Delete(&domain.Customer{}, "id = ?", id)
		if err := affected(result, domain.ErrCustomerNotFound); err != nil {
			return err
		}
		for _, model := range []any{&domain.Lead{}, &domain.Deal{}, &domain.Activity{}} {
			if err := tx.Where("tenant_id = ? AND customer_id = ?", tenantID, id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count counts customers of a tenant with status. An empty status counts everything.
func (r *CustomersRepository) Count(ctx context.Context, tenantID uuid.UUID, status string) (int64, error) {
	var n int64
	err := r.filtered(ctx, tenantID, CustomerFilter{Status: status}).Count(&n).Error
	return n, err
}

// CountBy groups the customers of a tenant by column, which must be status, country,
// source or industry.
func (r *CustomersRepository) CountBy(ctx context.Context, tenantID uuid.UUID, column string) ([]GroupCount, error) {
	switch column {
	case "status", "country", "source", "industry":
	default:
		return nil, domain.NewValidationError("column", "cannot group by %q", column)
	}
	var rows []GroupCount
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).Scopes(ForTenant(tenantID)).
		Select(column + " AS group_key, COUNT(*) AS group_count").
		Group(column).Order("group_count DESC").
		Scan(&rows).Error
	return rows, err
}

// TotalLifetimeValue sums the lifetime value of paying customers.
func (r *CustomersRepository) TotalLifetimeValue(ctx context.Context, tenantID uuid.UUID) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).Scopes(ForTenant(tenantID)).
		Where("status = ?", domain.CustomerActive).
		Select("COALESCE(SUM(lifetime_value), 0)").Scan(&total).Error
	return total, err
}
