// Package social connects tenant accounts to social networks and publishes posts to them.
package social

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/catalog"
	"github.com/cloudboost/cloudboost-api/internal/metrics"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
)

const (
	// DefaultMaxBulkSchedule bounds a bulk-schedule request.
	DefaultMaxBulkSchedule = 50
	// DefaultMaxRetries bounds publishing attempts of a scheduled post.
	DefaultMaxRetries = 3
	// simulatedFollowers is reported for accounts whose platform is simulated.
	simulatedFollowers = 1250
)

// Config configures the social service.
type Config struct {
	MaxBulkSchedule int
	MaxRetries      int
}

// Service manages social accounts and posts.
type Service struct {
	repo    *repository.SocialRepository
	box     *auth.SecretBox
	clients map[string]PlatformClient
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a social service. Platforms without a registered client are simulated.
func NewService(repo *repository.SocialRepository, box *auth.SecretBox, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	if cfg.MaxBulkSchedule <= 0 {
		cfg.MaxBulkSchedule = DefaultMaxBulkSchedule
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Service{
		repo:    repo,
		box:     box,
		clients: make(map[string]PlatformClient),
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register routes platform through client instead of simulation.
func (s *Service) Register(platform string, client PlatformClient) {
	s.clients[platform] = client
}

// PlatformInfo is a catalog platform with the tenant's connection state.
type PlatformInfo struct {
	catalog.Platform
	Connected bool `json:"connected"`
	Live      bool `json:"live"`
}

// Platforms lists every supported platform for a tenant.
func (s *Service) Platforms(ctx context.Context, tenantID uuid.UUID) ([]PlatformInfo, error) {
	accounts, err := s.repo.ListAccounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	connected := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		connected[a.Platform] = true
	}

	out := make([]PlatformInfo, 0, len(catalog.Platforms))
	for _, key := range catalog.PlatformKeys() {
		_, live := s.clients[key]
		out = append(out, PlatformInfo{Platform: catalog.Platforms[key], Connected: connected[key], Live: live})
	}
	return out, nil
}

// ConnectInput connects an account with a token obtained by the client.
type ConnectInput struct {
	Platform     string     `json:"platform"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	AccountID    string     `json:"account_id"`
	AccountName  string     `json:"account_name"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Connect stores the tenant's connection to a platform, replacing any previous one.
// Live platforms verify the token against the profile endpoint first.
func (s *Service) Connect(ctx context.Context, tenantID, userID uuid.UUID, in ConnectInput) (*domain.SocialAccount, error) {
	platform := strings.ToLower(strings.TrimSpace(in.Platform))
	switch {
	case platform == "":
		return nil, domain.Required("platform")
	case in.AccessToken == "":
		return nil, domain.Required("access_token")
	}
	p, ok := catalog.LookupPlatform(platform)
	if !ok {
		return nil, domain.NewValidationError("platform", "Platform not supported")
	}

	a := &domain.SocialAccount{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		UserID:       userID,
		Platform:     platform,
		AccountID:    in.AccountID,
		AccountName:  in.AccountName,
		IsActive:     true,
		ConnectedAt:  s.now(),
	}
	if in.ExpiresAt != nil {
		at := in.ExpiresAt.UTC()
		a.TokenExpiresAt = &at
	}

	if client, live := s.clients[platform]; live {
		info, err := client.Profile(ctx, in.AccessToken)
		if err != nil {
			s.logger.WarnContext(ctx, "social token rejected", "platform", platform, "error", err)
			return nil, domain.NewValidationError("access_token", "%s rejected the access token", p.Name)
		}
		a.AccountID = firstNonEmpty(a.AccountID, info.ID)
		a.AccountName = firstNonEmpty(a.AccountName, info.Name)
		a.Followers = info.Followers
	} else {
		a.AccountID = firstNonEmpty(a.AccountID, fmt.Sprintf("%s_account_%s", platform, shortID(8)))
		a.AccountName = firstNonEmpty(a.AccountName, "Business Account on "+p.Name)
		a.Followers = simulatedFollowers
	}

	var err error
	if a.AccessTokenEncrypted, err = s.box.Seal(in.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to encrypt token: %w", err)
	}
	if in.RefreshToken != "" {
		if a.RefreshTokenEncrypted, err = s.box.Seal(in.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to encrypt token: %w", err)
		}
	}
	if err := s.repo.UpsertAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to store account: %w", err)
	}

	s.logger.InfoContext(ctx, "social account connected", "tenant_id", tenantID, "platform", platform)
	return a, nil
}

// Accounts lists the tenant's active connections.
func (s *Service) Accounts(ctx context.Context, tenantID uuid.UUID) ([]domain.SocialAccount, error) {
	return s.repo.ListAccounts(ctx, tenantID)
}

// Disconnect deactivates the tenant's connection to platform.
func (s *Service) Disconnect(ctx context.Context, tenantID uuid.UUID, platform string) error {
	if _, ok := catalog.LookupPlatform(platform); !ok {
		return domain.NewValidationError("platform", "Platform not supported")
	}
	if err := s.repo.DeactivateAccount(ctx, tenantID, platform); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "social account disconnected", "tenant_id", tenantID, "platform", platform)
	return nil
}

// PostInput describes a post.
type PostInput struct {
	Platforms   []string   `json:"platforms"`
	Content     string     `json:"content"`
	PostType    string     `json:"post_type"`
	MediaURLs   []string   `json:"media_urls"`
	Hashtags    []string   `json:"hashtags"`
	ScheduledAt *time.Time `json:"scheduled_time"`
}

func (in *PostInput) validate() error {
	switch {
	case len(in.Platforms) == 0:
		return domain.Required("platforms")
	case strings.TrimSpace(in.Content) == "":
		return domain.Required("content")
	}
	for i, p := range in.Platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, ok := catalog.LookupPlatform(p); !ok {
			return domain.NewValidationError("platforms", "Platform %s not supported", p)
		}
		in.Platforms[i] = p
	}
	return nil
}

func (s *Service) newPost(tenantID, userID uuid.UUID, in PostInput) *domain.SocialPost {
	postType := in.PostType
	if postType == "" {
		postType = "text"
	}
	return &domain.SocialPost{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		UserID:       userID,
		Content:      in.Content,
		PostType:     postType,
		Platforms:    dedupe(in.Platforms),
		MediaURLs:    in.MediaURLs,
		Hashtags:     in.Hashtags,
		Status:       domain.PostDraft,
	}
}

// CreatePost publishes a post on every platform now, or schedules it when
// scheduled_time lies in the future.
func (s *Service) CreatePost(ctx context.Context, tenantID, userID uuid.UUID, in PostInput) (*domain.SocialPost, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.PostType) == "" {
		return nil, domain.Required("post_type")
	}

	p := s.newPost(tenantID, userID, in)
	if in.ScheduledAt != nil && in.ScheduledAt.After(s.now()) {
		at := in.ScheduledAt.UTC()
		p.ScheduledAt = &at
		p.Status = domain.PostScheduled
		if err := s.repo.CreatePost(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to store post: %w", err)
		}
		return p, nil
	}

	s.publish(ctx, p)
	if err := s.repo.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store post: %w", err)
	}
	s.recordSimulatedEngagement(ctx, p)
	return p, nil
}

// SchedulePost stores a post for later publishing. scheduled_time must be in the future.
func (s *Service) SchedulePost(ctx context.Context, tenantID, userID uuid.UUID, in PostInput) (*domain.SocialPost, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ScheduledAt == nil {
		return nil, domain.Required("scheduled_time")
	}
	if !in.ScheduledAt.After(s.now()) {
		return nil, domain.NewValidationError("scheduled_time", "Scheduled time must be in the future")
	}

	p := s.newPost(tenantID, userID, in)
	at := in.ScheduledAt.UTC()
	p.ScheduledAt = &at
	p.Status = domain.PostScheduled
	if err := s.repo.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store post: %w", err)
	}
	return p, nil
}

// BulkFailure is a post that could not be scheduled.
type BulkFailure struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

// BulkResult summarizes a bulk schedule.
type BulkResult struct {
	Scheduled      []*domain.SocialPost `json:"scheduled_posts"`
	Failed         []BulkFailure        `json:"failed_posts"`
	TotalScheduled int                  `json:"total_scheduled"`
	TotalFailed    int                  `json:"total_failed"`
}

// BulkSchedule schedules each post independently. Invalid posts are reported, not fatal.
func (s *Service) BulkSchedule(ctx context.Context, tenantID, userID uuid.UUID, posts []PostInput) (*BulkResult, error) {
	if len(posts) == 0 {
		return nil, domain.NewValidationError("posts", "posts array is required")
	}
	if len(posts) > s.cfg.MaxBulkSchedule {
		return nil, domain.NewValidationError("posts", "at most %d posts per request", s.cfg.MaxBulkSchedule)
	}

	res := &BulkResult{Scheduled: []*domain.SocialPost{}, Failed: []BulkFailure{}}
	for _, in := range posts {
		p, err := s.SchedulePost(ctx, tenantID, userID, in)
		if err != nil {
			if !domain.IsValidation(err) {
				return nil, err
			}
			content := in.Content
			if content == "" {
				content = "Unknown"
			}
			res.Failed = append(res.Failed, BulkFailure{Content: content, Error: err.Error()})
			continue
		}
		res.Scheduled = append(res.Scheduled, p)
	}
	res.TotalScheduled = len(res.Scheduled)
	res.TotalFailed = len(res.Failed)
	return res, nil
}

// ListPosts returns a page of the tenant's posts.
func (s *Service) ListPosts(ctx context.Context, tenantID uuid.UUID, f repository.PostFilter, page domain.Page) ([]domain.SocialPost, domain.Pagination, error) {
	items, total, err := s.repo.ListPosts(ctx, tenantID, f, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(page, total), nil
}

// GetPost returns one post.
func (s *Service) GetPost(ctx context.Context, tenantID, id uuid.UUID) (*domain.SocialPost, error) {
	return s.repo.GetPost(ctx, tenantID, id)
}

// CancelPost cancels a post that has not been published yet.
func (s *Service) CancelPost(ctx context.Context, tenantID, id uuid.UUID) (*domain.SocialPost, error) {
	p, err := s.repo.GetPost(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PostScheduled && p.Status != domain.PostDraft {
		return nil, domain.NewValidationError("status", "only scheduled posts can be cancelled")
	}
	p.Status = domain.PostCancelled
	if err := s.repo.SavePost(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
