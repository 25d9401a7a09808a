// Package social serves social account connections and post publishing.
package social

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/http/features/common"
	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/analytics"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/social"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPostsPerPage  = 20
	defaultAnalyticsDays = 30
)

// Handler handles social endpoints.
type Handler struct {
	logger  *slog.Logger
	service *social.Service
	oauth   *social.OAuthService
	tracker common.Tracker
}

// NewHandler creates a new social handler. oauth and tracker may be nil.
func NewHandler(logger *slog.Logger, service *social.Service, oauth *social.OAuthService, tracker common.Tracker) *Handler {
	return &Handler{logger: logger, service: service, oauth: oauth, tracker: tracker}
}

func platformParam(r *http.Request) string {
	return strings.ToLower(chi.URLParam(r, "platform"))
}

// trackPublished counts the platforms a post reached.
func (h *Handler) trackPublished(r *http.Request, id middleware.Identity, p *domain.SocialPost) {
	n := 0
	for _, pp := range p.PlatformPosts {
		if pp.Status == domain.PostPublished {
			n++
		}
	}
	common.Track(r.Context(), h.logger, h.tracker, id.TenantID, analytics.MetricPostsPublished, float64(n),
		domain.JSONMap{"post_id": p.ID.String()})
}

// Platforms lists the supported platforms.
// GET /social/platforms
func (h *Handler) Platforms(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	platforms, err := h.service.Platforms(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"platforms": platforms, "total": len(platforms)})
}

// Connect stores an account with a token obtained by the client.
// POST /social/connect
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req social.ConnectInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	account, err := h.service.Connect(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Account connected successfully",
		"account": account,
	})
}

// Accounts lists connected accounts.
// GET /social/accounts
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.Accounts(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// Disconnect removes the account of a platform.
// DELETE /social/disconnect/{platform}
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	if err := h.service.Disconnect(r.Context(), id.TenantID, platformParam(r)); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Account disconnected successfully"})
}

// OAuthStart returns the authorize URL of a platform.
// GET /social/oauth/{platform}/start
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	if h.oauth == nil {
		httputil.ServiceError(w, h.logger, domain.ErrProviderDisabled)
		return
	}

	platform := platformParam(r)
	url, err := h.oauth.AuthURL(id.TenantID, id.UserID, platform)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{
		"platform":      platform,
		"authorize_url": url,
	})
}

// OAuthCallback completes a connection. The signed state names the tenant,
// so this route runs without Auth.
// GET /social/oauth/{platform}/callback
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		httputil.ServiceError(w, h.logger, domain.ErrProviderDisabled)
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		httputil.Error(w, http.StatusBadRequest, "authorization denied: "+e)
		return
	}

	account, err := h.oauth.Callback(r.Context(), platformParam(r), q.Get("code"), q.Get("state"))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Account connected successfully",
		"account": account,
	})
}

// CreatePost publishes a post now, or schedules it when scheduled_time is ahead.
// POST /social/post
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req social.PostInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	p, err := h.service.CreatePost(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	msg := "Post published successfully"
	switch p.Status {
	case domain.PostScheduled:
		msg = "Post scheduled successfully"
	case domain.PostPartial:
		msg = "Post published on some platforms"
	case domain.PostFailed:
		msg = "Post could not be published"
	}
	h.trackPublished(r, id, p)
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": msg,
		"post":    p,
		"results": p.PlatformPosts,
	})
}

// SchedulePost stores a post for later.
// POST /social/schedule
func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req social.PostInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	p, err := h.service.SchedulePost(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "Post scheduled successfully",
		"post":    p,
	})
}

// BulkScheduleRequest carries many posts to schedule.
type BulkScheduleRequest struct {
	Posts []social.PostInput `json:"posts"`
}

// BulkSchedule schedules many posts.
// POST /social/bulk-schedule
func (h *Handler) BulkSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req BulkScheduleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.service.BulkSchedule(r.Context(), id.TenantID, id.UserID, req.Posts)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Bulk scheduling completed",
		"results": res,
	})
}

// ListPosts returns a page of posts.
// GET /social/posts
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.PostFilter{
		Status:   q.Get("status"),
		Platform: strings.ToLower(q.Get("platform")),
	}
	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid "+key+" date, expected YYYY-MM-DD")
			return
		}
		*dst = &t
	}

	posts, pagination, err := h.service.ListPosts(r.Context(), id.TenantID, filter, httputil.PageFromQuery(r, defaultPostsPerPage))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": pagination,
	})
}

// GetPost returns one post.
// GET /social/posts/{id}
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	postID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetPost(r.Context(), id.TenantID, postID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"post": p})
}

// CancelPost cancels a scheduled post.
// POST /social/posts/{id}/cancel
func (h *Handler) CancelPost(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	postID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.CancelPost(r.Context(), id.TenantID, postID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Post cancelled",
		"post":    p,
	})
}

// Analytics reports engagement per platform.
// GET /social/analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	a, err := h.service.Analytics(r.Context(), id.TenantID, httputil.QueryInt(r, "days", defaultAnalyticsDays))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, a)
}

// ContentCalendar groups a month's posts by day.
// GET /social/content-calendar
func (h *Handler) ContentCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	cal, err := h.service.ContentCalendar(r.Context(), id.TenantID, httputil.QueryInt(r, "month", 0), httputil.QueryInt(r, "year", 0))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, cal)
}
