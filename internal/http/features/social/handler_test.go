package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/http/features/featuretest"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/cloudboost/cloudboost-api/pkg/social"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerStub struct{ totals map[string]float64 }

func (s *trackerStub) Track(_ context.Context, _ uuid.UUID, metric string, value float64, _ domain.JSONMap) error {
	s.totals[metric] += value
	return nil
}

func newRouter(t *testing.T, creds map[string]social.OAuthCredentials) (http.Handler, *trackerStub) {
	t.Helper()
	db := repotest.NewDB(t)
	box, err := auth.NewSecretBox(auth.DeriveKey("test"))
	require.NoError(t, err)
	svc := social.NewService(repository.NewSocialRepository(db), box, social.Config{}, nil, featuretest.Logger)
	oauth := social.NewOAuthService(svc, auth.NewStateSigner([]byte("state-secret"), box, 0), creds)
	tracker := &trackerStub{totals: map[string]float64{}}

	h := NewHandler(featuretest.Logger, svc, oauth, tracker)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(h.RegisterRoutes)
	return r, tracker
}

func TestConnectAndPlatforms(t *testing.T) {
	h, _ := newRouter(t, nil)
	caller := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, h, caller, http.MethodPost, "/social/connect", `{"platform":"LinkedIn","access_token":"tok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	account := featuretest.Object(t, featuretest.JSON(t, rec), "account")
	assert.Equal(t, "linkedin", account["platform"])
	assert.NotContains(t, rec.Body.String(), `"tok"`)

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/social/platforms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	platforms := featuretest.JSON(t, rec)["platforms"].([]any)
	connected := 0
	for _, p := range platforms {
		if p.(map[string]any)["connected"] == true {
			connected++
		}
	}
	assert.Equal(t, 1, connected)

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/social/connect", `{"platform":"myspace","access_token":"tok"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, h, caller, http.MethodDelete, "/social/disconnect/linkedin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = featuretest.Do(t, h, caller, http.MethodGet, "/social/accounts", "")
	assert.Empty(t, featuretest.JSON(t, rec)["accounts"])
}

func TestCreatePost(t *testing.T) {
	h, tracker := newRouter(t, nil)
	caller := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, h, caller, http.MethodPost, "/social/post",
		`{"platforms":["twitter","linkedin"],"content":"New blend in store","post_type":"text"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := featuretest.JSON(t, rec)
	assert.Equal(t, "Post published successfully", body["message"])
	post := featuretest.Object(t, body, "post")
	assert.Equal(t, domain.PostPublished, post["status"])
	assert.Len(t, body["results"], 2)
	assert.Equal(t, 2.0, tracker.totals["posts_published"])

	tests := []struct {
		name string
		body string
		want string
	}{
		{"no platforms", `{"content":"x","post_type":"text"}`, "platforms is required"},
		{"no content", `{"platforms":["twitter"],"post_type":"text"}`, "content is required"},
		{"no post type", `{"platforms":["twitter"],"content":"x"}`, "post_type is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := featuretest.Do(t, h, caller, http.MethodPost, "/social/post", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, featuretest.JSON(t, rec)["error"])
		})
	}
}

func TestScheduleAndCancel(t *testing.T) {
	h, tracker := newRouter(t, nil)
	caller := featuretest.NewCaller(domain.RoleUser)
	at := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	rec := featuretest.Do(t, h, caller, http.MethodPost, "/social/schedule",
		`{"platforms":["facebook"],"content":"Weekend offer","scheduled_time":"`+at+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := featuretest.Object(t, featuretest.JSON(t, rec), "post")
	assert.Equal(t, domain.PostScheduled, post["status"])
	id := post["id"].(string)
	assert.Zero(t, tracker.totals["posts_published"])

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/social/schedule",
		`{"platforms":["facebook"],"content":"Too late","scheduled_time":"2001-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Scheduled time must be in the future", featuretest.JSON(t, rec)["error"])

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/social/posts?status=scheduled&platform=facebook", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["posts"], 1)

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/social/posts?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/social/posts/"+id+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PostCancelled, featuretest.Object(t, featuretest.JSON(t, rec), "post")["status"])

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/social/posts/"+id+"/cancel", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, h, featuretest.NewCaller(domain.RoleUser), http.MethodGet, "/social/posts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkSchedule(t *testing.T) {
	h, _ := newRouter(t, nil)
	caller := featuretest.NewCaller(domain.RoleUser)
	at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	rec := featuretest.Do(t, h, caller, http.MethodPost, "/social/bulk-schedule", `{"posts":[
		{"platforms":["twitter"],"content":"one","scheduled_time":"`+at+`"},
		{"platforms":["twitter"],"content":"two"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	results := featuretest.Object(t, featuretest.JSON(t, rec), "results")
	assert.Equal(t, 1.0, results["total_scheduled"])
	assert.Equal(t, 1.0, results["total_failed"])

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/social/bulk-schedule", `{"posts":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentCalendar(t *testing.T) {
	h, _ := newRouter(t, nil)
	caller := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, h, caller, http.MethodGet, "/social/content-calendar?month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/social/content-calendar?month=3&year=2026", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	assert.Equal(t, 3.0, body["month"])
	assert.Equal(t, 0.0, body["total_posts"])
}

func TestOAuth(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"oauth-tok","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	h, _ := newRouter(t, map[string]social.OAuthCredentials{
		"twitter": {ClientID: "cid", ClientSecret: "cs", RedirectURL: "http://localhost/cb", TokenURL: tokenSrv.URL},
	})
	caller := featuretest.NewCaller(domain.RoleAdmin)

	rec := featuretest.Do(t, h, caller, http.MethodGet, "/social/oauth/facebook/start", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/social/oauth/twitter/start", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	authURL, err := url.Parse(featuretest.JSON(t, rec)["authorize_url"].(string))
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	rec = featuretest.Do(t, h, featuretest.Caller{}, http.MethodGet, "/social/oauth/twitter/callback?error=access_denied", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, h, featuretest.Caller{}, http.MethodGet,
		"/social/oauth/twitter/callback?code=abc&state="+url.QueryEscape(state), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	account := featuretest.Object(t, featuretest.JSON(t, rec), "account")
	assert.Equal(t, caller.TenantID.String(), account["tenant_id"])

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/social/accounts", "")
	assert.Len(t, featuretest.JSON(t, rec)["accounts"], 1)
}
