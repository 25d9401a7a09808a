package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// simulatedURL returns the post url a platform would hand out for id.
func simulatedURL(platform, id string) string {
	switch platform {
	case "facebook":
		return "https://facebook.com/posts/" + id
	case "instagram":
		return "https://instagram.com/p/" + id
	case "linkedin":
		return "https://linkedin.com/posts/" + id
	}
	return fmt.Sprintf("https://%s.com/posts/%s", platform, id)
}

var simulatedPrefixes = map[string]string{
	"facebook":  "fb",
	"instagram": "ig",
	"linkedin":  "li",
}

// simulatedInsights is the engagement reported for simulated posts.
var simulatedInsights = map[string]domain.SocialEngagement{
	"facebook":  {Likes: 32, Comments: 12, Shares: 12, Clicks: 45, Reach: 1250, Impressions: 2100},
	"instagram": {Likes: 134, Comments: 22, Reach: 980, Impressions: 1650},
	"linkedin":  {Likes: 22, Comments: 15, Shares: 8, Clicks: 67, Reach: 610, Impressions: 850},
}

var defaultInsights = domain.SocialEngagement{Likes: 20, Comments: 4, Shares: 2, Clicks: 10, Reach: 500, Impressions: 800}

// PublishText publishes text on one platform for a tenant.
func (s *Service) PublishText(ctx context.Context, tenantID uuid.UUID, platform, text string) domain.PlatformPost {
	result := s.publishOne(ctx, tenantID, platform, text, nil)
	s.metrics.SocialPublished(platform, result.Status)
	return result
}

func (s *Service) publishOne(ctx context.Context, tenantID uuid.UUID, platform, text string, mediaURLs []string) domain.PlatformPost {
	result := domain.PlatformPost{Platform: platform, Content: text}

	client, live := s.clients[platform]
	if !live {
		return s.simulate(result)
	}
	account, err := s.repo.GetAccount(ctx, tenantID, platform)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return s.simulate(result)
	}
	if err != nil {
		return failed(result, err)
	}
	token, err := s.box.Open(account.AccessTokenEncrypted)
	if err != nil {
		return failed(result, fmt.Errorf("failed to decrypt token: %w", err))
	}

	pub, err := client.Publish(ctx, account, token, text, mediaURLs)
	if err != nil {
		s.logger.WarnContext(ctx, "social publish failed", "tenant_id", tenantID, "platform", platform, "error", err)
		return failed(result, err)
	}
	now := s.now()
	result.Status = domain.PostPublished
	result.PlatformPostID = pub.ID
	result.URL = pub.URL
	result.PublishedAt = &now
	return result
}

func (s *Service) simulate(result domain.PlatformPost) domain.PlatformPost {
	prefix, ok := simulatedPrefixes[result.Platform]
	if !ok {
		prefix = result.Platform
	}
	now := s.now()
	result.Status = domain.PostPublished
	result.PlatformPostID = prefix + "_" + shortID(10)
	result.URL = simulatedURL(result.Platform, shortID(10))
	result.Simulated = true
	result.PublishedAt = &now
	return result
}

func failed(result domain.PlatformPost, err error) domain.PlatformPost {
	result.Status = domain.PostFailed
	result.Error = err.Error()
	return result
}

// publish sends p to each of its platforms and derives the post status:
// published when all succeed, partial when some do, failed otherwise.
func (s *Service) publish(ctx context.Context, p *domain.SocialPost) {
	posts := make([]domain.PlatformPost, 0, len(p.Platforms))
	ok := 0
	for _, platform := range p.Platforms {
		text := Optimize(WithHashtags(p.Content, p.Hashtags, platform), platform)
		result := s.publishOne(ctx, p.TenantID, platform, text, p.MediaURLs)
		s.metrics.SocialPublished(platform, result.Status)
		if result.Status == domain.PostPublished {
			ok++
		}
		posts = append(posts, result)
	}
	p.PlatformPosts = posts

	switch {
	case ok == len(posts):
		p.Status = domain.PostPublished
	case ok > 0:
		p.Status = domain.PostPartial
	default:
		p.Status = domain.PostFailed
	}
	if ok > 0 {
		now := s.now()
		p.PublishedAt = &now
	}
}

// recordSimulatedEngagement stores initial insights for simulated platform posts.
func (s *Service) recordSimulatedEngagement(ctx context.Context, p *domain.SocialPost) {
	for _, pp := range p.PlatformPosts {
		if !pp.Simulated || pp.Status != domain.PostPublished {
			continue
		}
		e, ok := simulatedInsights[pp.Platform]
		if !ok {
			e = defaultInsights
		}
		e.TenantID = p.TenantID
		e.PostID = p.ID
		e.Platform = pp.Platform
		e.RecordedAt = s.now()
		if err := s.repo.RecordEngagement(ctx, &e); err != nil {
			s.logger.ErrorContext(ctx, "failed to record engagement", "post_id", p.ID, "error", err)
		}
	}
}

// PublishDue publishes up to limit scheduled posts whose time has come and returns
// how many reached at least one platform. A post that fails everywhere stays
// scheduled until it has been tried MaxRetries times.
func (s *Service) PublishDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.repo.DuePosts(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load due posts: %w", err)
	}

	published := 0
	for i := range due {
		p := &due[i]
		s.publish(ctx, p)
		if p.Status == domain.PostFailed {
			p.RetryCount++
			if p.RetryCount < s.cfg.MaxRetries {
				p.Status = domain.PostScheduled
			}
		} else {
			published++
		}
		if err := s.repo.SavePost(ctx, p); err != nil {
			s.logger.ErrorContext(ctx, "failed to save post", "post_id", p.ID, "error", err)
			continue
		}
		s.recordSimulatedEngagement(ctx, p)
	}
	return published, nil
}
