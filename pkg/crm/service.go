// Package crm manages customers, leads, deals, pipelines and activities.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/cache"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
)

// Lead sources
var LeadSources = map[string]string{
	"website":        "Website",
	"social_media":   "Social Media",
	"email_campaign": "Email Campaign",
	"referral":       "Referral",
	"cold_outreach":  "Cold Outreach",
	"event":          "Event",
	"advertisement":  "Advertisement",
	"whatsapp":       "WhatsApp",
	"phone_call":     "Phone Call",
	"manual":         "Manual Entry",
}

// Activity types
var ActivityTypes = map[string]string{
	"call":               "Phone Call",
	"email":              "Email",
	"meeting":            "Meeting",
	"whatsapp":           "WhatsApp Message",
	"social_interaction": "Social Media Interaction",
	"note":               "Note",
	"task":               "Task",
}

// Service implements the CRM use cases.
type Service struct {
	customers  *repository.CustomersRepository
	leads      *repository.LeadsRepository
	deals      *repository.DealsRepository
	activities *repository.ActivitiesRepository
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// Repositories groups the stores the CRM service reads and writes.
type Repositories struct {
	Customers  *repository.CustomersRepository
	Leads      *repository.LeadsRepository
	Deals      *repository.DealsRepository
	Activities *repository.ActivitiesRepository
}

// NewService creates a CRM service. c may be nil to disable dashboard caching.
func NewService(repos Repositories, c cache.Cache, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		customers:  repos.Customers,
		leads:      repos.Leads,
		deals:      repos.Deals,
		activities: repos.Activities,
		cache:      c,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// CustomerInput carries customer fields. Nil fields are kept on update. The
// scoring signals feed the lead score and are not stored, so an update only
// rescores a lead when it sets status to lead or supplies a signal.
type CustomerInput struct {
	Name            *string         `json:"name"`
	Email           *string         `json:"email"`
	Phone           *string         `json:"phone"`
	Company         *string         `json:"company"`
	CompanySize     *string         `json:"company_size"`
	Industry        *string         `json:"industry"`
	Status          *string         `json:"status"`
	Country         *string         `json:"country"`
	City            *string         `json:"city"`
	Address         *string         `json:"address"`
	Source          *string         `json:"source"`
	Notes           *string         `json:"notes"`
	Tags            *[]string       `json:"tags"`
	CustomFields    *domain.JSONMap `json:"custom_fields"`
	EngagementScore *int            `json:"engagement_score"`
	AssignedTo      *uuid.UUID      `json:"assigned_to"`

	EmailOpened      *bool   `json:"email_opened"`
	WebsiteVisits    *int    `json:"website_visits"`
	SocialEngagement *bool   `json:"social_engagement"`
	BudgetRange      *string `json:"budget_range"`
}

func (in CustomerInput) apply(c *domain.Customer) error {
	str := func(dst *string, src *string) {
		if src != nil {
			*dst = auth.CleanText(*src)
		}
	}
	str(&c.Name, in.Name)
	str(&c.Phone, in.Phone)
	str(&c.Company, in.Company)
	str(&c.CompanySize, in.CompanySize)
	str(&c.Industry, in.Industry)
	str(&c.City, in.City)
	str(&c.Address, in.Address)
	str(&c.Source, in.Source)
	str(&c.Notes, in.Notes)
	if in.Email != nil {
		c.Email = auth.NormalizeEmail(*in.Email)
	}
	if in.Country != nil {
		c.Country = strings.ToUpper(strings.TrimSpace(*in.Country))
	}
	if in.Status != nil {
		if !domain.ValidCustomerStatus(*in.Status) {
			return domain.NewValidationError("status", "invalid status %q", *in.Status)
		}
		c.Status = *in.Status
	}
	if in.Tags != nil {
		c.Tags = *in.Tags
	}
	if in.CustomFields != nil {
		c.CustomFields = *in.CustomFields
	}
	if in.EngagementScore != nil {
		if *in.EngagementScore < 0 || *in.EngagementScore > 100 {
			return domain.NewValidationError("engagement_score", "engagement_score must be between 0 and 100")
		}
		c.EngagementScore = *in.EngagementScore
	}
	if in.AssignedTo != nil {
		c.AssignedTo = in.AssignedTo
	}

	switch {
	case strings.TrimSpace(c.Name) == "":
		return domain.Required("name")
	case c.Email == "":
		return domain.Required("email")
	case !auth.IsEmail(c.Email):
		return domain.ErrInvalidEmail
	}
	return nil
}

func (in CustomerInput) score(c *domain.Customer) ScoreInput {
	si := ScoreInput{
		CompanySize: c.CompanySize,
		Source:      c.Source,
		Country:     c.Country,
	}
	if in.EmailOpened != nil {
		si.EmailOpened = *in.EmailOpened
	}
	if in.WebsiteVisits != nil {
		si.WebsiteVisits = *in.WebsiteVisits
	}
	if in.SocialEngagement != nil {
		si.SocialEngagement = *in.SocialEngagement
	}
	if in.BudgetRange != nil {
		si.BudgetRange = *in.BudgetRange
	}
	return si
}

func (in CustomerInput) hasSignals() bool {
	return in.EmailOpened != nil || in.WebsiteVisits != nil || in.SocialEngagement != nil || in.BudgetRange != nil
}

// rescore refreshes the derived lead score and lifetime value. Only leads carry
// a score; an existing score is kept unless in asks for a new one.
func rescore(c *domain.Customer, in CustomerInput) {
	c.LifetimeValue = LifetimeValue(c.CompanySize, c.EngagementScore, c.Country)
	if c.Status != domain.CustomerLead {
		c.LeadScore = nil
		return
	}
	setsLead := in.Status != nil && *in.Status == domain.CustomerLead
	if c.LeadScore != nil && !setsLead && !in.hasSignals() {
		return
	}
	s := LeadScore(in.score(c))
	c.LeadScore = &s
}

// ListCustomers returns a page of customers.
func (s *Service) ListCustomers(ctx context.Context, tenantID uuid.UUID, f repository.CustomerFilter, page domain.Page) ([]domain.Customer, domain.Pagination, error) {
	items, total, err := s.customers.List(ctx, tenantID, f, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(page, total), nil
}

// CreateCustomer stores a customer. Emails are unique per tenant.
func (s *Service) CreateCustomer(ctx context.Context, tenantID uuid.UUID, in CustomerInput) (*domain.Customer, error) {
	c := &domain.Customer{
		TenantScoped:    domain.TenantScoped{TenantID: tenantID},
		Status:          domain.CustomerLead,
		Country:         "LK",
		Source:          "manual",
		EngagementScore: 50,
		Tags:            []string{},
		CustomFields:    domain.JSONMap{},
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}

	exists, err := s.customers.ExistsByEmail(ctx, tenantID, c.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check customer email: %w", err)
	}
	if exists {
		return nil, domain.ErrCustomerExists
	}

	rescore(c, in)
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrCustomerExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.invalidateDashboard(ctx, tenantID)
	return c, nil
}

// CustomerDetail is a customer with its related records.
type CustomerDetail struct {
	*domain.Customer
	Deals      []domain.Deal     `json:"deals"`
	Activities []domain.Activity `json:"activities"`
	Leads      []domain.Lead     `json:"leads"`
}

// GetCustomer returns a customer with deals, recent activities and leads.
func (s *Service) GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (*CustomerDetail, error) {
	c, err := s.customers.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	deals, err := s.deals.List(ctx, tenantID, repository.DealFilter{CustomerID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}
	activities, _, err := s.activities.List(ctx, tenantID, repository.ActivityFilter{CustomerID: &id}, domain.NewPage(1, 20, 20))
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	leads, _, err := s.leads.List(ctx, tenantID, repository.LeadFilter{CustomerID: &id}, domain.NewPage(1, 100, 100))
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	return &CustomerDetail{Customer: c, Deals: deals, Activities: activities, Leads: leads}, nil
}

// UpdateCustomer changes a customer and recomputes its scores.
func (s *Service) UpdateCustomer(ctx context.Context, tenantID, id uuid.UUID, in CustomerInput) (*domain.Customer, error) {
	c, err := s.customers.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	oldEmail := c.Email
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if c.Email != oldEmail {
		exists, err := s.customers.ExistsByEmail(ctx, tenantID, c.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check customer email: %w", err)
		}
		if exists {
			return nil, domain.ErrCustomerExists
		}
	}

	rescore(c, in)
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, tenantID)
	return c, nil
}

// DeleteCustomer removes a customer with its leads, deals and activities.
func (s *Service) DeleteCustomer(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.customers.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.invalidateDashboard(ctx, tenantID)
	return nil
}

// LeadInput describes a new lead.
type LeadInput struct {
	CustomerID  uuid.UUID  `json:"customer_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Source      string     `json:"source"`
	Budget      float64    `json:"budget"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	ScoreInput
}

// ListLeads returns a page of leads, best score first.
func (s *Service) ListLeads(ctx context.Context, tenantID uuid.UUID, f repository.LeadFilter, page domain.Page) ([]domain.Lead, domain.Pagination, error) {
	items, total, err := s.leads.List(ctx, tenantID, f, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(page, total), nil
}

// CreateLead opens a lead for a customer and scores it. Missing scoring signals
// are taken from the customer.
func (s *Service) CreateLead(ctx context.Context, tenantID uuid.UUID, in LeadInput) (*domain.Lead, error) {
	if in.CustomerID == uuid.Nil {
		return nil, domain.Required("customer_id")
	}
	customer, err := s.customers.Get(ctx, tenantID, in.CustomerID)
	if err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = "website"
	}
	if _, ok := LeadSources[source]; !ok {
		return nil, domain.NewValidationError("source", "invalid lead source %q", source)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = customer.Name
		if customer.Company != "" {
			title = customer.Company
		}
	}

	signals := in.ScoreInput
	signals.Source = source
	if signals.CompanySize == "" {
		signals.CompanySize = customer.CompanySize
	}
	if signals.Country == "" {
		signals.Country = customer.Country
	}
	score := LeadScore(signals)

	lead := &domain.Lead{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		CustomerID:   customer.ID,
		Title:        title,
		Description:  in.Description,
		Status:       domain.LeadNew,
		Source:       source,
		Score:        score,
		Temperature:  Temperature(score),
		Budget:       in.Budget,
		AssignedTo:   in.AssignedTo,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	s.invalidateDashboard(ctx, tenantID)
	return lead, nil
}

// UpdateLeadStatus moves a lead through its lifecycle. Converting a lead makes
// its customer a paying customer.
func (s *Service) UpdateLeadStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (*domain.Lead, error) {
	switch status {
	case domain.LeadNew, domain.LeadContacted, domain.LeadQualified, domain.LeadConverted, domain.LeadLost:
	default:
		return nil, domain.NewValidationError("status", "invalid status %q", status)
	}
	lead, err := s.leads.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	lead.Status = status
	if status == domain.LeadConverted && lead.ConvertedAt == nil {
		now := s.now()
		lead.ConvertedAt = &now
		if c, err := s.customers.Get(ctx, tenantID, lead.CustomerID); err == nil && c.Status != domain.CustomerActive {
			c.Status = domain.CustomerActive
			c.LeadScore = nil
			if err := s.customers.Update(ctx, c); err != nil {
				return nil, fmt.Errorf("failed to convert customer: %w", err)
			}
		}
	}
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, tenantID)
	return lead, nil
}

// ScoreLead scores arbitrary signals without storing anything.
func (s *Service) ScoreLead(in ScoreInput) (int, string) {
	score := LeadScore(in)
	return score, Temperature(score)
}

func (s *Service) invalidateDashboard(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardKey(tenantID)); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate crm dashboard", "tenant_id", tenantID, "error", err)
	}
}

func dashboardKey(tenantID uuid.UUID) string {
	return cache.Key("crm", "dashboard", tenantID.String())
}
