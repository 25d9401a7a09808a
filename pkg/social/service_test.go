package social

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubClient accepts every token except "bad" and fails publishing when fail is set.
type stubClient struct {
	fail      bool
	published []string
	tokens    []string
}

func (c *stubClient) Profile(_ context.Context, token string) (*AccountInfo, error) {
	if token == "bad" {
		return nil, errors.New("invalid token")
	}
	return &AccountInfo{ID: "acct-1", Name: "Ceylon Tea Co", Followers: 420}, nil
}

func (c *stubClient) Publish(_ context.Context, _ *domain.SocialAccount, token, text string, _ []string) (*Published, error) {
	c.tokens = append(c.tokens, token)
	if c.fail {
		return nil, errors.New("rate limited")
	}
	c.published = append(c.published, text)
	return &Published{ID: "tw-1", URL: "https://twitter.com/i/web/status/tw-1"}, nil
}

type fixture struct {
	svc    *Service
	repo   *repository.SocialRepository
	box    *auth.SecretBox
	tenant uuid.UUID
	user   uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := repotest.NewDB(t)
	box, err := auth.NewSecretBox(auth.DeriveKey("test"))
	require.NoError(t, err)
	repo := repository.NewSocialRepository(db)
	return fixture{
		svc:    NewService(repo, box, Config{MaxBulkSchedule: 3}, nil, discardLogger),
		repo:   repo,
		box:    box,
		tenant: uuid.New(),
		user:   uuid.New(),
	}
}

func TestOptimize(t *testing.T) {
	long := strings.Repeat("a", 250)
	tests := []struct {
		name     string
		platform string
		content  string
		want     func(t *testing.T, got string)
	}{
		{"twitter short untouched", "twitter", "Hello", func(t *testing.T, got string) {
			assert.Equal(t, "Hello", got)
		}},
		{"twitter thread marker", "twitter", long, func(t *testing.T, got string) {
			assert.True(t, strings.HasSuffix(got, " 🧵"))
			assert.LessOrEqual(t, len([]rune(got)), 280)
		}},
		{"twitter truncated", "twitter", strings.Repeat("b", 400), func(t *testing.T, got string) {
			assert.Len(t, []rune(got), 280)
			assert.True(t, strings.HasSuffix(got, "... 🧵"))
		}},
		{"linkedin prefix", "linkedin", "our new office", func(t *testing.T, got string) {
			assert.Equal(t, "Excited to share: our new office", got)
		}},
		{"linkedin keeps proud", "linkedin", "Proud of the team", func(t *testing.T, got string) {
			assert.Equal(t, "Proud of the team", got)
		}},
		{"instagram hashtags added", "instagram", "New menu", func(t *testing.T, got string) {
			assert.Equal(t, "New menu #business #southasia #cloudboostai", got)
		}},
		{"instagram hashtags kept", "instagram", "New menu #food", func(t *testing.T, got string) {
			assert.Equal(t, "New menu #food", got)
		}},
		{"tiktok truncated", "tiktok", strings.Repeat("c", 200), func(t *testing.T, got string) {
			assert.Len(t, []rune(got), 150)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, Optimize(tt.content, tt.platform))
		})
	}
}

func TestWithHashtags(t *testing.T) {
	assert.Equal(t, "Sale #colombo #deals", WithHashtags("Sale", []string{"#colombo", "deals"}, "facebook"))
	assert.Equal(t, "Sale #colombo", WithHashtags("Sale #colombo", []string{"colombo"}, "facebook"))

	tags := make([]string, 15)
	for i := range tags {
		tags[i] = "t" + string(rune('a'+i))
	}
	got := WithHashtags("x", tags, "twitter")
	assert.Equal(t, 10, strings.Count(got, "#"))
}

func TestConnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("simulated platform", func(t *testing.T) {
		a, err := f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "Facebook", AccessToken: "tok-123"})
		require.NoError(t, err)
		assert.Equal(t, "facebook", a.Platform)
		assert.Equal(t, "Business Account on Facebook", a.AccountName)
		assert.True(t, strings.HasPrefix(a.AccountID, "facebook_account_"))
		assert.Equal(t, 1250, a.Followers)
		assert.NotContains(t, a.AccessTokenEncrypted, "tok-123")

		plain, err := f.box.Open(a.AccessTokenEncrypted)
		require.NoError(t, err)
		assert.Equal(t, "tok-123", plain)
	})

	t.Run("reconnect replaces", func(t *testing.T) {
		_, err := f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "facebook", AccessToken: "tok-456", AccountName: "Renamed"})
		require.NoError(t, err)
		accounts, err := f.svc.Accounts(ctx, f.tenant)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "Renamed", accounts[0].AccountName)
	})

	t.Run("live platform verifies token", func(t *testing.T) {
		f.svc.Register("twitter", &stubClient{})
		a, err := f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "twitter", AccessToken: "good"})
		require.NoError(t, err)
		assert.Equal(t, "acct-1", a.AccountID)
		assert.Equal(t, 420, a.Followers)

		_, err = f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "twitter", AccessToken: "bad"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "myspace", AccessToken: "x"})
		assert.EqualError(t, err, "Platform not supported")
		_, err = f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "facebook"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("disconnect", func(t *testing.T) {
		require.NoError(t, f.svc.Disconnect(ctx, f.tenant, "facebook"))
		assert.ErrorIs(t, f.svc.Disconnect(ctx, f.tenant, "facebook"), domain.ErrAccountNotFound)
		assert.True(t, domain.IsValidation(f.svc.Disconnect(ctx, f.tenant, "myspace")))

		platforms, err := f.svc.Platforms(ctx, f.tenant)
		require.NoError(t, err)
		assert.Len(t, platforms, 7)
		for _, p := range platforms {
			assert.Equal(t, p.Key == "twitter", p.Connected, p.Key)
			assert.Equal(t, p.Key == "twitter", p.Live, p.Key)
		}
	})
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	live := &stubClient{}
	f.svc.Register("twitter", live)
	_, err := f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "twitter", AccessToken: "good"})
	require.NoError(t, err)

	t.Run("publishes everywhere", func(t *testing.T) {
		p, err := f.svc.CreatePost(ctx, f.tenant, f.user, PostInput{
			Platforms: []string{"twitter", "linkedin", "instagram"},
			Content:   "New tea blends",
			PostType:  "text",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PostPublished, p.Status)
		require.Len(t, p.PlatformPosts, 3)
		assert.NotNil(t, p.PublishedAt)

		tw := p.PlatformPosts[0]
		assert.False(t, tw.Simulated)
		assert.Equal(t, "tw-1", tw.PlatformPostID)
		assert.Equal(t, []string{"good"}, live.tokens)

		li := p.PlatformPosts[1]
		assert.True(t, li.Simulated)
		assert.True(t, strings.HasPrefix(li.PlatformPostID, "li_"))
		assert.Equal(t, "Excited to share: New tea blends", li.Content)

		ig := p.PlatformPosts[2]
		assert.True(t, strings.HasPrefix(ig.URL, "https://instagram.com/p/"))
	})

	t.Run("partial when a live platform fails", func(t *testing.T) {
		live.fail = true
		defer func() { live.fail = false }()
		p, err := f.svc.CreatePost(ctx, f.tenant, f.user, PostInput{
			Platforms: []string{"twitter", "facebook"},
			Content:   "Weekend offer",
			PostType:  "text",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PostPartial, p.Status)
		assert.Equal(t, "rate limited", p.PlatformPosts[0].Error)
	})

	t.Run("future time schedules", func(t *testing.T) {
		at := time.Now().Add(time.Hour)
		p, err := f.svc.CreatePost(ctx, f.tenant, f.user, PostInput{
			Platforms: []string{"facebook"}, Content: "Later", PostType: "text", ScheduledAt: &at,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PostScheduled, p.Status)
		assert.Empty(t, p.PlatformPosts)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.svc.CreatePost(ctx, f.tenant, f.user, PostInput{Content: "x", PostType: "text"})
		assert.EqualError(t, err, "platforms is required")
		_, err = f.svc.CreatePost(ctx, f.tenant, f.user, PostInput{Platforms: []string{"facebook"}, Content: "x"})
		assert.EqualError(t, err, "post_type is required")
		_, err = f.svc.CreatePost(ctx, f.tenant, f.user, PostInput{Platforms: []string{"orkut"}, Content: "x", PostType: "text"})
		assert.EqualError(t, err, "Platform orkut not supported")
	})
}

func TestScheduleAndPublishDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	live := &stubClient{fail: true}
	f.svc.Register("twitter", live)
	_, err := f.svc.Connect(ctx, f.tenant, f.user, ConnectInput{Platform: "twitter", AccessToken: "good"})
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	_, err = f.svc.SchedulePost(ctx, f.tenant, f.user, PostInput{Platforms: []string{"facebook"}, Content: "x", ScheduledAt: &past})
	assert.EqualError(t, err, "Scheduled time must be in the future")
	_, err = f.svc.SchedulePost(ctx, f.tenant, f.user, PostInput{Platforms: []string{"facebook"}, Content: "x"})
	assert.EqualError(t, err, "scheduled_time is required")

	soon := time.Now().Add(time.Minute)
	ok, err := f.svc.SchedulePost(ctx, f.tenant, f.user, PostInput{Platforms: []string{"facebook"}, Content: "Sim", ScheduledAt: &soon})
	require.NoError(t, err)
	bad, err := f.svc.SchedulePost(ctx, f.tenant, f.user, PostInput{Platforms: []string{"twitter"}, Content: "Live", ScheduledAt: &soon})
	require.NoError(t, err)

	n, err := f.svc.PublishDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is due yet")

	later := time.Now().Add(2 * time.Minute)
	for attempt := 1; attempt <= 3; attempt++ {
		n, err = f.svc.PublishDue(ctx, later, 10)
		require.NoError(t, err)
		if attempt == 1 {
			assert.Equal(t, 1, n)
		}
	}

	got, err := f.svc.GetPost(ctx, f.tenant, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostPublished, got.Status)

	got, err = f.svc.GetPost(ctx, f.tenant, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	assert.Len(t, live.tokens, 3)
}

func TestBulkSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Now().Add(24 * time.Hour)

	res, err := f.svc.BulkSchedule(ctx, f.tenant, f.user, []PostInput{
		{Platforms: []string{"facebook"}, Content: "one", ScheduledAt: &at},
		{Platforms: []string{"facebook"}, ScheduledAt: &at},
		{Platforms: []string{"linkedin"}, Content: "three", ScheduledAt: &at},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalScheduled)
	assert.Equal(t, 1, res.TotalFailed)
	assert.Equal(t, BulkFailure{Content: "Unknown", Error: "content is required"}, res.Failed[0])

	_, err = f.svc.BulkSchedule(ctx, f.tenant, f.user, nil)
	assert.EqualError(t, err, "posts array is required")
	_, err = f.svc.BulkSchedule(ctx, f.tenant, f.user, make([]PostInput, 4))
	assert.True(t, domain.IsValidation(err))

	posts, page, err := f.svc.ListPosts(ctx, f.tenant, repository.PostFilter{Platform: "linkedin"}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int64(1), page.Total)

	cancelled, err := f.svc.CancelPost(ctx, f.tenant, posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostCancelled, cancelled.Status)
	_, err = f.svc.CancelPost(ctx, f.tenant, posts[0].ID)
	assert.True(t, domain.IsValidation(err))
}

func TestAnalyticsAndCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.tenant, f.user, PostInput{
		Platforms: []string{"facebook", "instagram"}, Content: "Grand opening", PostType: "text",
	})
	require.NoError(t, err)
	at := time.Date(2030, 3, 14, 10, 30, 0, 0, time.UTC)
	_, err = f.svc.SchedulePost(ctx, f.tenant, f.user, PostInput{Platforms: []string{"linkedin"}, Content: "Pi day", ScheduledAt: &at})
	require.NoError(t, err)

	a, err := f.svc.Analytics(ctx, f.tenant, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Overview.TotalPosts)
	assert.Equal(t, int64(1), a.Overview.PublishedPosts)
	assert.Equal(t, int64(1), a.Overview.ScheduledPosts)
	assert.Equal(t, int64(1250+980), a.Overview.TotalReach)
	assert.Equal(t, int64(101+156), a.Overview.TotalEngagement)
	assert.Equal(t, 8.08, a.PlatformBreakdown["facebook"].EngagementRate)
	require.Len(t, a.TopPosts, 2)
	assert.Equal(t, "instagram", a.TopPosts[0].Platform)
	assert.Equal(t, "Grand opening", a.TopPosts[0].Content)
	require.Len(t, a.EngagementTrends, 1)
	assert.Equal(t, 257, a.EngagementTrends[0].Engagement)

	_, err = f.svc.Analytics(ctx, f.tenant, 400)
	assert.True(t, domain.IsValidation(err))

	cal, err := f.svc.ContentCalendar(ctx, f.tenant, 3, 2030)
	require.NoError(t, err)
	assert.Equal(t, 1, cal.TotalPosts)
	require.Len(t, cal.Days, 1)
	assert.Equal(t, "2030-03-14", cal.Days[0].Date)
	assert.Equal(t, "10:30", cal.Days[0].Posts[0].Time)

	_, err = f.svc.ContentCalendar(ctx, f.tenant, 13, 2030)
	assert.True(t, domain.IsValidation(err))
}

func TestTwitterClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/2/tweets":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["text"] == "dup" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"detail":"duplicate content"}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"id":"1789","text":"hi"}}`))
		case "/2/users/me":
			_, _ = w.Write([]byte(`{"data":{"id":"42","name":"Lanka Bakes","public_metrics":{"followers_count":980}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewTwitterClient(srv.URL)
	ctx := context.Background()

	info, err := c.Profile(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, &AccountInfo{ID: "42", Name: "Lanka Bakes", Followers: 980}, info)

	pub, err := c.Publish(ctx, nil, "tok", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "1789", pub.ID)
	assert.Equal(t, "https://twitter.com/i/web/status/1789", pub.URL)

	_, err = c.Publish(ctx, nil, "tok", "dup", nil)
	assert.ErrorContains(t, err, "duplicate content")
}

func TestOAuthFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var gotVerifier string
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		gotVerifier = r.PostForm.Get("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"oauth-tok","refresh_token":"oauth-ref","token_type":"bearer","expires_in":7200}`))
	}))
	defer tokenSrv.Close()

	box, err := auth.NewSecretBox(auth.DeriveKey("state"))
	require.NoError(t, err)
	states := auth.NewStateSigner([]byte("secret"), box, 0)
	o := NewOAuthService(f.svc, states, map[string]OAuthCredentials{
		"twitter":  {ClientID: "cid", ClientSecret: "cs", RedirectURL: "http://localhost/cb", TokenURL: tokenSrv.URL},
		"linkedin": {},
	})
	assert.True(t, o.Enabled("twitter"))
	assert.False(t, o.Enabled("linkedin"))

	_, err = o.AuthURL(f.tenant, f.user, "linkedin")
	assert.ErrorIs(t, err, domain.ErrProviderDisabled)

	raw, err := o.AuthURL(f.tenant, f.user, "twitter")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	state := q.Get("state")
	require.NotEmpty(t, state)

	_, err = o.Callback(ctx, "twitter", "the-code", "forged")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	a, err := o.Callback(ctx, "twitter", "the-code", state)
	require.NoError(t, err)
	assert.NotEmpty(t, gotVerifier)
	assert.Equal(t, f.tenant, a.TenantID)
	assert.Equal(t, f.user, a.UserID)
	require.NotNil(t, a.TokenExpiresAt)

	plain, err := f.box.Open(a.AccessTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "oauth-tok", plain)
	refresh, err := f.box.Open(a.RefreshTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "oauth-ref", refresh)
}
