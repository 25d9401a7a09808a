package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/catalog"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Variables returns the distinct {{name}} placeholders of body in order.
func Variables(body string) []string {
	seen := make(map[string]struct{})
	vars := []string{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		vars = append(vars, m[1])
	}
	return vars
}

// Render substitutes {{name}} placeholders. Unknown placeholders are left in place.
func Render(body string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return match
	})
}

// TemplateInput describes a new content template.
type TemplateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ContentType string `json:"content_type"`
	Language    string `json:"language"`
	Body        string `json:"template_body"`
}

// ListTemplates returns the tenant's active templates, optionally of one type.
func (s *Service) ListTemplates(ctx context.Context, tenantID uuid.UUID, contentType string) ([]domain.ContentTemplate, error) {
	return s.repo.ListTemplates(ctx, tenantID, contentType)
}

// CreateTemplate stores a template. Its variables are taken from the body.
func (s *Service) CreateTemplate(ctx context.Context, tenantID uuid.UUID, in TemplateInput) (*domain.ContentTemplate, error) {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, domain.Required("name")
	case strings.TrimSpace(in.Body) == "":
		return nil, domain.Required("template_body")
	case !catalog.IsContentType(in.ContentType):
		return nil, domain.NewValidationError("content_type", "Invalid content type")
	}
	if in.Language == "" {
		in.Language = "en"
	}
	if !catalog.IsLanguage(in.Language) {
		return nil, domain.NewValidationError("language", "Language not supported")
	}

	t := &domain.ContentTemplate{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		ContentType:  in.ContentType,
		Language:     in.Language,
		Body:         in.Body,
		Variables:    Variables(in.Body),
		IsActive:     true,
	}
	if err := s.repo.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return t, nil
}

// Rendered is a template filled with values.
type Rendered struct {
	TemplateID uuid.UUID `json:"template_id"`
	Content    string    `json:"content"`
	Missing    []string  `json:"missing_variables"`
}

// RenderTemplate fills a template and counts the use.
func (s *Service) RenderTemplate(ctx context.Context, tenantID, id uuid.UUID, values map[string]string) (*Rendered, error) {
	t, err := s.repo.GetTemplate(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	out := &Rendered{TemplateID: t.ID, Content: Render(t.Body, values), Missing: []string{}}
	for _, v := range t.Variables {
		if _, ok := values[v]; !ok {
			out.Missing = append(out.Missing, v)
		}
	}
	if err := s.repo.IncrementTemplateUsage(ctx, t.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to count template usage", "template_id", t.ID, "error", err)
	}
	return out, nil
}

// Schedule queues a content row for publishing on platform at the given time.
func (s *Service) Schedule(ctx context.Context, tenantID, contentID uuid.UUID, platform string, at time.Time) (*domain.ContentSchedule, error) {
	if _, ok := catalog.LookupPlatform(platform); !ok {
		return nil, domain.NewValidationError("platform", "Platform %s not supported", platform)
	}
	if !at.After(time.Now()) {
		return nil, domain.NewValidationError("scheduled_time", "Scheduled time must be in the future")
	}
	c, err := s.repo.Get(ctx, tenantID, contentID)
	if err != nil {
		return nil, err
	}

	sched := &domain.ContentSchedule{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		ContentID:    c.ID,
		Platform:     platform,
		ScheduledAt:  at.UTC(),
		Status:       domain.PostScheduled,
		MaxRetries:   3,
	}
	if err := s.repo.CreateSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to schedule content: %w", err)
	}
	return sched, nil
}

// ListSchedules returns the tenant's publishing schedules.
func (s *Service) ListSchedules(ctx context.Context, tenantID uuid.UUID) ([]domain.ContentSchedule, error) {
	return s.repo.ListSchedules(ctx, tenantID)
}

// Publisher publishes text to a platform on behalf of a tenant.
type Publisher interface {
	PublishText(ctx context.Context, tenantID uuid.UUID, platform, text string) domain.PlatformPost
}

// PublishDue publishes up to limit due schedules and returns how many succeeded.
// Failed attempts are retried on later calls until max_retries.
func (s *Service) PublishDue(ctx context.Context, pub Publisher, now time.Time, limit int) (int, error) {
	due, err := s.repo.DueSchedules(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load due schedules: %w", err)
	}

	published := 0
	for i := range due {
		sched := &due[i]
		c, err := s.repo.Get(ctx, sched.TenantID, sched.ContentID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to load scheduled content", "schedule_id", sched.ID, "error", err)
			if errors.Is(err, domain.ErrContentNotFound) {
				sched.Status = domain.PostFailed
				sched.ErrorMessage = err.Error()
			} else {
				retryLater(sched, err.Error())
			}
			s.saveSchedule(ctx, sched)
			continue
		}

		result := pub.PublishText(ctx, sched.TenantID, sched.Platform, FitToPlatform(c.Body, sched.Platform))
		if result.Status == domain.PostPublished {
			published++
			sched.Status = domain.PostPublished
			sched.PublishedAt = result.PublishedAt
			sched.PlatformPostID = result.PlatformPostID
			sched.ErrorMessage = ""
			if c.Status != domain.ContentPublished {
				c.Status = domain.ContentPublished
				c.PublishedAt = result.PublishedAt
				if err := s.repo.Update(ctx, c); err != nil {
					s.logger.ErrorContext(ctx, "failed to mark content published", "content_id", c.ID, "error", err)
				}
			}
		} else {
			retryLater(sched, result.Error)
		}
		s.saveSchedule(ctx, sched)
	}
	return published, nil
}

// retryLater counts a failed attempt and gives up once max_retries is reached.
func retryLater(sched *domain.ContentSchedule, reason string) {
	sched.RetryCount++
	sched.ErrorMessage = reason
	if sched.RetryCount >= sched.MaxRetries {
		sched.Status = domain.PostFailed
	}
}

func (s *Service) saveSchedule(ctx context.Context, sched *domain.ContentSchedule) {
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		s.logger.ErrorContext(ctx, "failed to save schedule", "schedule_id", sched.ID, "error", err)
	}
}
