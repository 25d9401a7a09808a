package domain

// Subscription plans
const (
	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Tenant statuses
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
)

// Tenant represents a customer organization. Every other row is partitioned by tenant.
type Tenant struct {
	Base
	Name             string `gorm:"size:200;not null" json:"name"`
	Domain           string `gorm:"size:100;uniqueIndex;not null" json:"domain"`
	SubscriptionPlan string `gorm:"size:50;default:basic" json:"subscription_plan"`
	Status           string `gorm:"size:20;default:active" json:"status"`
}

// IsActive reports whether the tenant may sign in.
func (t *Tenant) IsActive() bool {
	return t.Status == "" || t.Status == TenantActive
}

// ValidPlan reports whether plan is a known subscription plan.
func ValidPlan(plan string) bool {
	switch plan {
	case PlanBasic, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}
