package content

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/ai"
	"github.com/cloudboost/cloudboost-api/internal/http/features/featuretest"
	"github.com/cloudboost/cloudboost-api/pkg/analytics"
	"github.com/cloudboost/cloudboost-api/pkg/content"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerStub struct {
	totals map[string]float64
}

func (s *trackerStub) Track(_ context.Context, _ uuid.UUID, metric string, value float64, _ domain.JSONMap) error {
	s.totals[metric] += value
	return nil
}

func newRouter(t *testing.T) (http.Handler, *trackerStub) {
	t.Helper()
	db := repotest.NewDB(t)
	svc := content.NewService(
		repository.NewContentRepository(db),
		repository.NewBusinessRepository(db),
		nil,
		ai.NewTemplateGenerator(),
		content.Config{},
		nil,
		featuretest.Logger,
	)
	tracker := &trackerStub{totals: map[string]float64{}}

	r := chi.NewRouter()
	NewHandler(featuretest.Logger, svc, tracker).RegisterRoutes(r)
	return r, tracker
}

func TestCatalogs(t *testing.T) {
	r, _ := newRouter(t)
	c := featuretest.NewCaller(domain.RoleUser)

	tests := []struct {
		path  string
		key   string
		total float64
	}{
		{"/content/languages", "languages", 15},
		{"/content/content-types", "content_types", 9},
		{"/content/platforms", "platforms", 7},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			rec := featuretest.Do(t, r, c, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			body := featuretest.JSON(t, rec)
			assert.Equal(t, tt.total, body["total"])
			assert.Contains(t, body, tt.key)
		})
	}
}

func TestGenerate(t *testing.T) {
	r, tracker := newRouter(t)
	c := featuretest.NewCaller(domain.RoleUser)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing prompt", `{"content_type":"social_post","language":"en"}`, http.StatusBadRequest},
		{"unknown language", `{"content_type":"social_post","prompt":"tea","language":"xx"}`, http.StatusBadRequest},
		{"ok", `{"content_type":"social_post","prompt":"Fresh Ceylon tea","language":"en","platform":"twitter","save":true}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := featuretest.Do(t, r, c, http.MethodPost, "/content/generate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 1.0, tracker.totals[analytics.MetricContentGenerated])

	rec := featuretest.Do(t, r, c, http.MethodGet, "/content", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["content"], 1)

	rec = featuretest.Do(t, r, c, http.MethodPost, "/ai/generate-content", `{"prompt":"Monsoon sale"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	assert.Equal(t, "blog_post", body["content_type"])
	assert.Equal(t, "template", body["generated_by"])

	rec = featuretest.Do(t, r, c, http.MethodPost, "/content/batch-generate", `{"requests":[
		{"id":"a","content_type":"ad_copy","prompt":"tea","language":"si"},
		{"id":"b","content_type":"nope","prompt":"tea","language":"en"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), featuretest.JSON(t, rec)["successful_generations"])
	assert.Equal(t, 3.0, tracker.totals[analytics.MetricContentGenerated])

	rec = featuretest.Do(t, r, c, http.MethodPost, "/content/batch-generate", `{"requests":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimize(t *testing.T) {
	r, _ := newRouter(t)
	c := featuretest.NewCaller(domain.RoleUser)

	long := fmt.Sprintf(`{"content":"%0300d","platform":"twitter"}`, 0)
	rec := featuretest.Do(t, r, c, http.MethodPost, "/content/optimize", long)
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	assert.Equal(t, float64(280), body["character_count"])

	rec = featuretest.Do(t, r, c, http.MethodPost, "/content/optimize", `{"content":"hi","platform":"twitter","optimization_type":"magic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLibrary(t *testing.T) {
	r, _ := newRouter(t)
	c := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, r, c, http.MethodPost, "/content", `{"title":"Launch","content_type":"blog_post","content_body":"Hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := featuretest.Object(t, featuretest.JSON(t, rec), "content")["id"].(string)

	rec = featuretest.Do(t, r, c, http.MethodPut, "/content/"+id, `{"status":"published"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "published", featuretest.Object(t, featuretest.JSON(t, rec), "content")["status"])

	at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	rec = featuretest.Do(t, r, c, http.MethodPost, "/content/"+id+"/schedule", `{"platform":"facebook","scheduled_time":"`+at+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodGet, "/content/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["schedules"], 1)

	other := featuretest.NewCaller(domain.RoleUser)
	rec = featuretest.Do(t, r, other, http.MethodGet, "/content/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodDelete, "/content/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = featuretest.Do(t, r, c, http.MethodGet, "/content/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTemplates(t *testing.T) {
	r, _ := newRouter(t)
	c := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, r, c, http.MethodPost, "/content/templates",
		`{"name":"Promo","content_type":"social_post","template_body":"{{product}} now {{discount}} off"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := featuretest.Object(t, featuretest.JSON(t, rec), "template")["id"].(string)

	rec = featuretest.Do(t, r, c, http.MethodPost, "/content/templates/"+id+"/render", `{"values":{"product":"Tea"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	assert.Equal(t, "Tea now {{discount}} off", body["content"])
	assert.Equal(t, []any{"discount"}, body["missing_variables"])

	rec = featuretest.Do(t, r, c, http.MethodGet, "/content/templates?type=social_post", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["templates"], 1)
}
