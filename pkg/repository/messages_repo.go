package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageFilter narrows message listings.
type MessageFilter struct {
	Channel    string
	Status     string
	CampaignID *uuid.UUID
}

// ChannelStatusCount aggregates messages of one channel and status.
type ChannelStatusCount struct {
	Channel string
	Status  string
	Count   int64
	Cost    float64
}

// MessagesRepository handles outbound messages, campaigns and call logs.
type MessagesRepository struct {
	db *gorm.DB
}

// NewMessagesRepository creates a new messages repository.
func NewMessagesRepository(db *gorm.DB) *MessagesRepository {
	return &MessagesRepository{db: db}
}

// Create stores a message.
func (r *MessagesRepository) Create(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// Get retrieves a message of a tenant.
func (r *MessagesRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Message, error) {
	var m domain.Message
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrMessageNotFound)
	}
	return &m, nil
}

// List returns a page of messages, newest first, and the total match count.
func (r *MessagesRepository) List(ctx context.Context, tenantID uuid.UUID, f MessageFilter, page domain.Page) ([]domain.Message, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Message{}).Scopes(ForTenant(tenantID))
	if f.Channel != "" {
		q = q.Where("channel = ?", f.Channel)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CampaignID != nil {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.Message
	err := q.Order("created_at DESC").Scopes(Paginate(page.Offset(), page.PerPage)).Find(&items).Error
	return items, total, err
}

// SaveDelivery persists the outcome of a delivery attempt.
func (r *MessagesRepository) SaveDelivery(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Model(m).
		Select("status", "external_id", "provider", "simulated", "sent_at", "delivered_at",
			"retry_count", "error_message", "metadata", "updated_at").
		Updates(m).Error
}

// Due returns up to limit messages across tenants that are waiting for delivery at now:
// queued messages never handed to a provider whose time has come, and provider
// failures with retries left.
func (r *MessagesRepository) Due(ctx context.Context, now time.Time, maxRetries, limit int) ([]domain.Message, error) {
	var items []domain.Message
	err := r.db.WithContext(ctx).
		Where("(status = ? AND sent_at IS NULL AND (scheduled_at IS NULL OR scheduled_at <= ?)) OR (status = ? AND retry_count < ? AND simulated = ?)",
			domain.MessageQueued, now.UTC(), domain.MessageFailed, maxRetries, false).
		Order("created_at ASC").Limit(limit).
		Find(&items).Error
	return items, err
}

// ChannelStats aggregates the messages of a tenant created since by channel and status.
func (r *MessagesRepository) ChannelStats(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]ChannelStatusCount, error) {
	var rows []ChannelStatusCount
	err := r.db.WithContext(ctx).Model(&domain.Message{}).Scopes(ForTenant(tenantID)).
		Where("created_at >= ?", since.UTC()).
		Select("channel, status, COUNT(*) AS count, COALESCE(SUM(cost), 0) AS cost").
		Group("channel, status").
		Scan(&rows).Error
	return rows, err
}

// Count counts the messages of a tenant, optionally on one channel.
func (r *MessagesRepository) Count(ctx context.Context, tenantID uuid.UUID, channel string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Message{}).Scopes(ForTenant(tenantID))
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// CreateCampaign stores a campaign.
func (r *MessagesRepository) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetCampaign retrieves a campaign of a tenant.
func (r *MessagesRepository) GetCampaign(ctx context.Context, tenantID, id uuid.UUID) (*domain.Campaign, error) {
	var c domain.Campaign
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrCampaignNotFound)
	}
	return &c, nil
}

// ListCampaigns returns the campaigns of a tenant, optionally on one channel.
func (r *MessagesRepository) ListCampaigns(ctx context.Context, tenantID uuid.UUID, channel string) ([]domain.Campaign, error) {
	q := r.db.WithContext(ctx).Scopes(ForTenant(tenantID))
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	var items []domain.Campaign
	err := q.Order("created_at DESC").Find(&items).Error
	return items, err
}

// SaveCampaign persists campaign progress.
func (r *MessagesRepository) SaveCampaign(ctx context.Context, c *domain.Campaign) error {
	result := r.db.WithContext(ctx).Model(c).
		Select("status", "sent_at", "total_cost", "total_sent", "total_delivered", "total_failed", "updated_at").
		Updates(c)
	return affected(result, domain.ErrCampaignNotFound)
}

// CreateCall stores a call log.
func (r *MessagesRepository) CreateCall(ctx context.Context, c *domain.CallLog) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// ListCalls returns the latest limit calls of a tenant.
func (r *MessagesRepository) ListCalls(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.CallLog, error) {
	var items []domain.CallLog
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}
