package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer statuses
const (
	CustomerLead     = "lead"
	CustomerProspect = "prospect"
	CustomerActive   = "customer"
	CustomerInactive = "inactive"
	CustomerChurned  = "churned"
)

// Customer is a contact of the tenant at any point of the funnel. Emails are
// unique per tenant (idx_customers_tenant_email).
type Customer struct {
	TenantScoped
	Name            string     `gorm:"size:200;not null" json:"name"`
	Email           string     `gorm:"size:255;not null;index" json:"email"`
	Phone           string     `gorm:"size:30" json:"phone"`
	Company         string     `gorm:"size:200" json:"company"`
	CompanySize     string     `gorm:"size:20" json:"company_size"`
	Industry        string     `gorm:"size:100" json:"industry"`
	Status          string     `gorm:"size:20;default:lead;index" json:"status"`
	Country         string     `gorm:"size:10;default:LK;index" json:"country"`
	City            string     `gorm:"size:100" json:"city"`
	Address         string     `gorm:"size:255" json:"address"`
	Source          string     `gorm:"size:50;default:manual" json:"source"`
	Notes           string     `gorm:"type:text" json:"notes"`
	Tags            []string   `gorm:"serializer:json;type:text" json:"tags"`
	CustomFields    JSONMap    `gorm:"serializer:json;type:text" json:"custom_fields"`
	LeadScore       *int       `json:"lead_score"`
	LifetimeValue   float64    `gorm:"default:0" json:"lifetime_value"`
	EngagementScore int        `gorm:"default:50" json:"engagement_score"`
	AssignedTo      *uuid.UUID `gorm:"type:uuid" json:"assigned_to"`
	LastContactAt   *time.Time `json:"last_contact"`
}

// ValidCustomerStatus reports whether status is a known customer status.
func ValidCustomerStatus(status string) bool {
	switch status {
	case CustomerLead, CustomerProspect, CustomerActive, CustomerInactive, CustomerChurned:
		return true
	}
	return false
}

// Lead statuses
const (
	LeadNew       = "new"
	LeadContacted = "contacted"
	LeadQualified = "qualified"
	LeadConverted = "converted"
	LeadLost      = "lost"
)

// Lead tracks a sales opportunity before it becomes a deal.
type Lead struct {
	TenantScoped
	CustomerID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"size:20;default:new" json:"status"`
	Source      string     `gorm:"size:50;default:website;index" json:"source"`
	Score       int        `gorm:"default:0" json:"score"`
	Temperature string     `gorm:"size:10" json:"temperature"`
	Budget      float64    `json:"budget"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid" json:"assigned_to"`
	ConvertedAt *time.Time `json:"converted_at"`
}

// PipelineStage is one column of a pipeline with its default win probability.
type PipelineStage struct {
	Name        string `json:"name"`
	Probability int    `json:"probability"`
}

// Pipeline is an ordered set of deal stages.
type Pipeline struct {
	TenantScoped
	Name        string          `gorm:"size:200;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Stages      []PipelineStage `gorm:"serializer:json;type:text" json:"stages"`
	IsDefault   bool            `gorm:"default:false" json:"is_default"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
}

// Deal statuses
const (
	DealOpen = "open"
	DealWon  = "won"
	DealLost = "lost"
)

// DealProduct is a line item of a deal.
type DealProduct struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Deal is a priced opportunity moving through a pipeline.
type Deal struct {
	TenantScoped
	CustomerID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"customer_id"`
	PipelineID        *uuid.UUID    `gorm:"type:uuid;index" json:"pipeline_id"`
	Title             string        `gorm:"size:200;not null" json:"title"`
	Description       string        `gorm:"type:text" json:"description"`
	Value             float64       `gorm:"not null" json:"value"`
	Currency          string        `gorm:"size:3;default:USD" json:"currency"`
	Stage             string        `gorm:"size:30;default:qualification;index" json:"stage"`
	Probability       int           `gorm:"default:20" json:"probability"`
	Status            string        `gorm:"size:10;default:open;index" json:"status"`
	Source            string        `gorm:"size:50;default:manual" json:"source"`
	Products          []DealProduct `gorm:"serializer:json;type:text" json:"products"`
	ExpectedCloseDate *time.Time    `json:"expected_close_date"`
	ActualCloseDate   *time.Time    `json:"actual_close_date"`
	LostReason        string        `gorm:"type:text" json:"lost_reason,omitempty"`
	AssignedTo        *uuid.UUID    `gorm:"type:uuid" json:"assigned_to"`
}

// WeightedValue is the deal value discounted by its win probability.
func (d *Deal) WeightedValue() float64 {
	return d.Value * float64(d.Probability) / 100
}

// Activity priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Activity is a logged or planned interaction with a customer.
type Activity struct {
	TenantScoped
	CustomerID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	DealID       *uuid.UUID `gorm:"type:uuid;index" json:"deal_id"`
	ActivityType string     `gorm:"size:30;not null;index" json:"type"`
	Subject      string     `gorm:"size:200;not null" json:"subject"`
	Description  string     `gorm:"type:text" json:"description"`
	Priority     string     `gorm:"size:10;default:medium" json:"priority"`
	DueDate      *time.Time `json:"due_date"`
	Completed    bool       `gorm:"default:false" json:"completed"`
	CompletedAt  *time.Time `json:"completed_at"`
	Outcome      string     `gorm:"type:text" json:"outcome,omitempty"`
	AssignedTo   uuid.UUID  `gorm:"type:uuid" json:"assigned_to"`
	CreatedBy    uuid.UUID  `gorm:"type:uuid" json:"created_by"`
}
