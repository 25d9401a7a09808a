package crm

import (
	"net/http"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/cache"
	"github.com/cloudboost/cloudboost-api/internal/export"
	"github.com/cloudboost/cloudboost-api/internal/http/features/featuretest"
	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	db := repotest.NewDB(t)
	svc := crm.NewService(crm.Repositories{
		Customers:  repository.NewCustomersRepository(db),
		Leads:      repository.NewLeadsRepository(db),
		Deals:      repository.NewDealsRepository(db),
		Activities: repository.NewActivitiesRepository(db),
	}, cache.NewMemoryCache(), time.Minute, featuretest.Logger)

	r := chi.NewRouter()
	NewHandler(featuretest.Logger, svc).RegisterRoutes(r)
	return r
}

func TestCustomers(t *testing.T) {
	r := newRouter(t)
	c := featuretest.NewCaller(domain.RoleUser)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing email", `{"name":"Kamal"}`, http.StatusBadRequest},
		{"created", `{"name":"Kamal","email":"kamal@example.lk","country":"LK","company_size":"enterprise"}`, http.StatusCreated},
		{"duplicate", `{"name":"Kamal","email":"kamal@example.lk"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := featuretest.Do(t, r, c, http.MethodPost, "/crm/customers", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := featuretest.Do(t, r, c, http.MethodGet, "/crm/customers?search=kamal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	customers := body["customers"].([]any)
	require.Len(t, customers, 1)
	customerID := customers[0].(map[string]any)["id"].(string)
	assert.Equal(t, float64(1), featuretest.Object(t, body, "pagination")["total"])

	rec = featuretest.Do(t, r, c, http.MethodPut, "/crm/customers/"+customerID, `{"status":"customer"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/customers/"+customerID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := featuretest.JSON(t, rec)
	assert.Equal(t, "Kamal", detail["name"])
	assert.Contains(t, detail, "deals")

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/customers/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "customers")
	assert.NotZero(t, rec.Body.Len())

	rec = featuretest.Do(t, r, featuretest.NewCaller(domain.RoleUser), http.MethodGet, "/crm/customers/"+customerID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodDelete, "/crm/customers/"+customerID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPipeline(t *testing.T) {
	r := newRouter(t)
	c := featuretest.NewCaller(domain.RoleManager)

	rec := featuretest.Do(t, r, c, http.MethodPost, "/crm/customers", `{"name":"Asha","email":"asha@example.in","country":"IN"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	customerID := featuretest.Object(t, featuretest.JSON(t, rec), "customer")["id"].(string)

	rec = featuretest.Do(t, r, c, http.MethodPost, "/crm/leads", `{"customer_id":"`+customerID+`","source":"referral","budget_range":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/leads?source=referral", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["leads"], 1)

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/leads?customer_id=bad", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodPost, "/crm/deals", `{"title":"Annual plan","customer_id":"`+customerID+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodPost, "/crm/deals", `{"title":"Annual plan","customer_id":"`+customerID+`","value":1000,"stage":"proposal"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dealID := featuretest.Object(t, featuretest.JSON(t, rec), "deal")["id"].(string)

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/deals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := featuretest.Object(t, featuretest.JSON(t, rec), "pipeline_summary")
	proposal := featuretest.Object(t, summary, "proposal")
	assert.Equal(t, float64(1), proposal["count"])
	assert.Equal(t, float64(1000), proposal["total_value"])

	rec = featuretest.Do(t, r, c, http.MethodPut, "/crm/deals/"+dealID, `{"value":2500}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/pipelines", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, featuretest.JSON(t, rec)["pipelines"])

	rec = featuretest.Do(t, r, c, http.MethodPost, "/crm/activities", `{"customer_id":"`+customerID+`","type":"call","subject":"Intro call"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	activityID := featuretest.Object(t, featuretest.JSON(t, rec), "activity")["id"].(string)

	rec = featuretest.Do(t, r, c, http.MethodPut, "/crm/activities/"+activityID+"/complete", `{"outcome":"Interested"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/activities?customer_id="+customerID+"&completed=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["activities"], 1)

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/analytics/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), featuretest.Object(t, featuretest.JSON(t, rec), "overview")["total_customers"])
}

func TestSalesForecast(t *testing.T) {
	r := newRouter(t)
	c := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, r, c, http.MethodGet, "/crm/reports/sales-forecast?months=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	months := body["forecast"].([]any)
	require.Len(t, months, 3)
	assert.Equal(t, float64(73700), months[0].(map[string]any)["predicted_revenue"])

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/reports/sales-forecast?months=25", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/reports/sales-forecast?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))

	rec = featuretest.Do(t, r, c, http.MethodGet, "/crm/reports/sales-forecast?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, r, c, http.MethodPost, "/crm/leads/score", `{"company_size":"enterprise","source":"referral"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, featuretest.JSON(t, rec), "temperature")
}
