package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostFilter narrows social post listings.
type PostFilter struct {
	Status   string
	Platform string
	From     *time.Time
	To       *time.Time
}

// EngagementTotals sums engagement counters of one platform.
type EngagementTotals struct {
	Platform    string
	Posts       int64
	Likes       int64
	Comments    int64
	Shares      int64
	Clicks      int64
	Reach       int64
	Impressions int64
}

// SocialRepository handles connected accounts, posts and engagement.
type SocialRepository struct {
	db *gorm.DB
}

// NewSocialRepository creates a new social repository.
func NewSocialRepository(db *gorm.DB) *SocialRepository {
	return &SocialRepository{db: db}
}

// UpsertAccount stores the connection of a tenant to a platform, replacing any previous one.
func (r *SocialRepository) UpsertAccount(ctx context.Context, a *domain.SocialAccount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.SocialAccount
		err := tx.Where("tenant_id = ? AND platform = ?", a.TenantID, a.Platform).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(a).Error
		}
		if err != nil {
			return err
		}
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
		return tx.Model(a).Select("*").Omit("id", "tenant_id", "created_at").Updates(a).Error
	})
}

// ListAccounts returns the active connections of a tenant.
func (r *SocialRepository) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]domain.SocialAccount, error) {
	var items []domain.SocialAccount
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("is_active = ?", true).Order("platform ASC").Find(&items).Error
	return items, err
}

// GetAccount retrieves the active connection of a tenant to platform.
func (r *SocialRepository) GetAccount(ctx context.Context, tenantID uuid.UUID, platform string) (*domain.SocialAccount, error) {
	var a domain.SocialAccount
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("platform = ? AND is_active = ?", platform, true).First(&a).Error
	if err != nil {
		return nil, notFound(err, domain.ErrAccountNotFound)
	}
	return &a, nil
}

// DeactivateAccount disconnects a tenant from platform.
func (r *SocialRepository) DeactivateAccount(ctx context.Context, tenantID uuid.UUID, platform string) error {
	result := r.db.WithContext(ctx).Model(&domain.SocialAccount{}).Scopes(ForTenant(tenantID)).
		Where("platform = ? AND is_active = ?", platform, true).
		Update("is_active", false)
	return affected(result, domain.ErrAccountNotFound)
}

// CreatePost stores a post.
func (r *SocialRepository) CreatePost(ctx context.Context, p *domain.SocialPost) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetPost retrieves a post of a tenant.
func (r *SocialRepository) GetPost(ctx context.Context, tenantID, id uuid.UUID) (*domain.SocialPost, error) {
	var p domain.SocialPost
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrPostNotFound)
	}
	return &p, nil
}

// ListPosts returns a page of posts, newest first, and the total match count.
// Platform filtering happens on the JSON column text.
func (r *SocialRepository) ListPosts(ctx context.Context, tenantID uuid.UUID, f PostFilter, page domain.Page) ([]domain.SocialPost, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.SocialPost{}).Scopes(ForTenant(tenantID))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Platform != "" {
		q = q.Where("platforms LIKE ?", `%"`+f.Platform+`"%`)
	}
	if f.From != nil {
		q = q.Where("COALESCE(scheduled_at, created_at) >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("COALESCE(scheduled_at, created_at) < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.SocialPost
	err := q.Order("created_at DESC").Scopes(Paginate(page.Offset(), page.PerPage)).Find(&items).Error
	return items, total, err
}

// SavePost persists the publishing state of a post.
func (r *SocialRepository) SavePost(ctx context.Context, p *domain.SocialPost) error {
	result := r.db.WithContext(ctx).Model(p).
		Select("status", "published_at", "platform_posts", "retry_count", "updated_at").
		Updates(p)
	return affected(result, domain.ErrPostNotFound)
}

// DuePosts returns up to limit scheduled posts across tenants whose time has come.
func (r *SocialRepository) DuePosts(ctx context.Context, now time.Time, limit int) ([]domain.SocialPost, error) {
	var items []domain.SocialPost
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", domain.PostScheduled, now.UTC()).
		Order("scheduled_at ASC").Limit(limit).Find(&items).Error
	return items, err
}

// CountPosts counts the posts of a tenant with status. An empty status counts everything.
func (r *SocialRepository) CountPosts(ctx context.Context, tenantID uuid.UUID, status string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.SocialPost{}).Scopes(ForTenant(tenantID))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// RecordEngagement stores an engagement sample.
func (r *SocialRepository) RecordEngagement(ctx context.Context, e *domain.SocialEngagement) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// EngagementByPlatform sums engagement of a tenant recorded since, per platform.
func (r *SocialRepository) EngagementByPlatform(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]EngagementTotals, error) {
	var rows []EngagementTotals
	err := r.db.WithContext(ctx).Model(&domain.SocialEngagement{}).Scopes(ForTenant(tenantID)).
		Where("recorded_at >= ?", since.UTC()).
		Select(`platform, COUNT(DISTINCT post_id) AS posts, SUM(likes) AS likes, SUM(comments) AS comments,
			SUM(shares) AS shares, SUM(clicks) AS clicks, SUM(reach) AS reach, SUM(impressions) AS impressions`).
		Group("platform").Order("platform ASC").
		Scan(&rows).Error
	return rows, err
}

// TopEngagements returns the limit best engagement samples of a tenant since.
func (r *SocialRepository) TopEngagements(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]domain.SocialEngagement, error) {
	var items []domain.SocialEngagement
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("recorded_at >= ?", since.UTC()).
		Order("(likes + comments + shares + clicks) DESC").Limit(limit).
		Find(&items).Error
	return items, err
}

// PostsBetween returns the posts of a tenant planned or created in [from, to), oldest first.
func (r *SocialRepository) PostsBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]domain.SocialPost, error) {
	var items []domain.SocialPost
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("COALESCE(scheduled_at, published_at, created_at) >= ? AND COALESCE(scheduled_at, published_at, created_at) < ?", from.UTC(), to.UTC()).
		Where("status <> ?", domain.PostCancelled).
		Order("COALESCE(scheduled_at, published_at, created_at) ASC").
		Find(&items).Error
	return items, err
}

// Engagements returns the engagement samples of a tenant recorded since, oldest first.
func (r *SocialRepository) Engagements(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]domain.SocialEngagement, error) {
	var items []domain.SocialEngagement
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("recorded_at >= ?", since.UTC()).
		Order("recorded_at ASC").Find(&items).Error
	return items, err
}
