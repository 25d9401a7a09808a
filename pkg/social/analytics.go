package social

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/catalog"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// PlatformStats is the engagement of one platform.
type PlatformStats struct {
	Posts          int64   `json:"posts"`
	Reach          int64   `json:"reach"`
	Impressions    int64   `json:"impressions"`
	Engagement     int64   `json:"engagement"`
	EngagementRate float64 `json:"engagement_rate"`
}

// Overview totals every platform.
type Overview struct {
	TotalPosts      int64   `json:"total_posts"`
	PublishedPosts  int64   `json:"published_posts"`
	ScheduledPosts  int64   `json:"scheduled_posts"`
	TotalReach      int64   `json:"total_reach"`
	TotalEngagement int64   `json:"total_engagement"`
	EngagementRate  float64 `json:"engagement_rate"`
	TotalFollowers  int     `json:"total_followers"`
}

// TopPost is one of the best performing posts.
type TopPost struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	Platform   string    `json:"platform"`
	Engagement int       `json:"engagement"`
	Reach      int       `json:"reach"`
}

// TrendPoint is the engagement of one day.
type TrendPoint struct {
	Date       string `json:"date"`
	Engagement int    `json:"engagement"`
}

// Analytics is the social report of a period.
type Analytics struct {
	Overview          Overview                 `json:"overview"`
	PlatformBreakdown map[string]PlatformStats `json:"platform_breakdown"`
	TopPosts          []TopPost                `json:"top_performing_posts"`
	EngagementTrends  []TrendPoint             `json:"engagement_trends"`
	From              string                   `json:"from"`
	To                string                   `json:"to"`
}

// Analytics reports social engagement of the last days days.
func (s *Service) Analytics(ctx context.Context, tenantID uuid.UUID, days int) (*Analytics, error) {
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		return nil, domain.NewValidationError("days", "days must be at most 365")
	}
	now := s.now()
	since := now.AddDate(0, 0, -days)

	totals, err := s.repo.EngagementByPlatform(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate engagement: %w", err)
	}
	a := &Analytics{
		PlatformBreakdown: make(map[string]PlatformStats, len(totals)),
		TopPosts:          []TopPost{},
		EngagementTrends:  []TrendPoint{},
		From:              since.Format(time.DateOnly),
		To:                now.Format(time.DateOnly),
	}
	ov := &a.Overview
	for _, t := range totals {
		engagement := t.Likes + t.Comments + t.Shares + t.Clicks
		a.PlatformBreakdown[t.Platform] = PlatformStats{
			Posts:          t.Posts,
			Reach:          t.Reach,
			Impressions:    t.Impressions,
			Engagement:     engagement,
			EngagementRate: percent(engagement, t.Reach),
		}
		ov.TotalReach += t.Reach
		ov.TotalEngagement += engagement
	}
	ov.EngagementRate = percent(ov.TotalEngagement, ov.TotalReach)

	if ov.TotalPosts, err = s.repo.CountPosts(ctx, tenantID, ""); err != nil {
		return nil, err
	}
	if ov.PublishedPosts, err = s.repo.CountPosts(ctx, tenantID, domain.PostPublished); err != nil {
		return nil, err
	}
	if ov.ScheduledPosts, err = s.repo.CountPosts(ctx, tenantID, domain.PostScheduled); err != nil {
		return nil, err
	}
	accounts, err := s.repo.ListAccounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		ov.TotalFollowers += acc.Followers
	}

	top, err := s.repo.TopEngagements(ctx, tenantID, since, 5)
	if err != nil {
		return nil, err
	}
	for _, e := range top {
		tp := TopPost{ID: e.PostID, Platform: e.Platform, Engagement: e.Total(), Reach: e.Reach}
		if p, err := s.repo.GetPost(ctx, tenantID, e.PostID); err == nil {
			tp.Content = catalog.Truncate(p.Content, 100)
		}
		a.TopPosts = append(a.TopPosts, tp)
	}

	samples, err := s.repo.Engagements(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}
	a.EngagementTrends = trend(samples)
	return a, nil
}

// trend sums engagement per UTC day.
func trend(samples []domain.SocialEngagement) []TrendPoint {
	byDay := make(map[string]int)
	for _, e := range samples {
		byDay[e.RecordedAt.UTC().Format(time.DateOnly)] += e.Total()
	}
	out := make([]TrendPoint, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, TrendPoint{Date: day, Engagement: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// CalendarEntry is a post shown on a calendar day.
type CalendarEntry struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Platforms []string  `json:"platforms"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
}

// CalendarDay groups the posts of one date.
type CalendarDay struct {
	Date  string          `json:"date"`
	Posts []CalendarEntry `json:"posts"`
}

// Calendar is the content calendar of a month.
type Calendar struct {
	Month      int           `json:"month"`
	Year       int           `json:"year"`
	Days       []CalendarDay `json:"calendar"`
	TotalPosts int           `json:"total_posts"`
}

// ContentCalendar returns the posts of a month grouped by day. Zero month or year
// means the current one.
func (s *Service) ContentCalendar(ctx context.Context, tenantID uuid.UUID, month, year int) (*Calendar, error) {
	now := s.now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return nil, domain.NewValidationError("month", "month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return nil, domain.NewValidationError("year", "year must be between 2000 and 2100")
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	posts, err := s.repo.PostsBetween(ctx, tenantID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	cal := &Calendar{Month: month, Year: year, Days: []CalendarDay{}, TotalPosts: len(posts)}
	index := make(map[string]int)
	for _, p := range posts {
		at := p.CreatedAt
		switch {
		case p.ScheduledAt != nil:
			at = *p.ScheduledAt
		case p.PublishedAt != nil:
			at = *p.PublishedAt
		}
		at = at.UTC()
		day := at.Format(time.DateOnly)
		i, ok := index[day]
		if !ok {
			i = len(cal.Days)
			index[day] = i
			cal.Days = append(cal.Days, CalendarDay{Date: day})
		}
		cal.Days[i].Posts = append(cal.Days[i].Posts, CalendarEntry{
			ID:        p.ID,
			Content:   catalog.Truncate(p.Content, 100),
			Platforms: p.Platforms,
			Time:      at.Format("15:04"),
			Status:    p.Status,
		})
	}
	return cal, nil
}
