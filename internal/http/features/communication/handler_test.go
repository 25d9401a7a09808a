package communication

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/http/features/featuretest"
	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// okSender delivers everything except recipients containing "555".
type okSender struct{ n int }

func (s *okSender) Name() string { return "test" }

func (s *okSender) Send(_ context.Context, msg notification.Message) (*notification.Delivery, error) {
	s.n++
	d := &notification.Delivery{
		Provider:   "test",
		ExternalID: fmt.Sprintf("test_%d", s.n),
		Status:     notification.StatusDelivered,
		SentAt:     time.Now().UTC(),
	}
	if strings.Contains(msg.To, "555") {
		d.Status = notification.StatusFailed
		d.Error = "rejected"
	}
	return d, nil
}

type trackerStub struct {
	mu     sync.Mutex
	totals map[string]float64
}

func (s *trackerStub) Track(_ context.Context, _ uuid.UUID, metric string, value float64, _ domain.JSONMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[metric] += value
	return nil
}

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(t *testing.T) (http.Handler, *trackerStub) {
	t.Helper()
	db := repotest.NewDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	n := notification.New(notification.Config{Seed: 1}, featuretest.Logger)
	sender := &okSender{}
	for _, ch := range []string{notification.ChannelEmail, notification.ChannelSMS, notification.ChannelVoice, notification.ChannelWhatsApp} {
		n.Register(ch, sender)
	}
	svc := messaging.NewService(repository.NewMessagesRepository(db), n, messaging.Config{Concurrency: 1}, nil, featuretest.Logger)
	tracker := &trackerStub{totals: map[string]float64{}}

	r := chi.NewRouter()
	NewHandler(featuretest.Logger, svc, tracker).RegisterRoutes(r, passthrough)
	return r, tracker
}

func TestChannels(t *testing.T) {
	h, _ := newRouter(t)
	rec := featuretest.Do(t, h, featuretest.NewCaller(domain.RoleUser), http.MethodGet, "/communication/channels", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := featuretest.JSON(t, rec)
	channels := featuretest.Object(t, body, "channels")
	for _, ch := range []string{"email", "sms", "whatsapp", "voice"} {
		assert.Contains(t, channels, ch)
	}
}

func TestSendMessage(t *testing.T) {
	h, tracker := newRouter(t)
	caller := featuretest.NewCaller(domain.RoleUser)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantState  string
		wantError  string
	}{
		{"delivered", `{"channel":"sms","recipient":"+94771234567","message_content":"hello"}`, http.StatusOK, domain.MessageDelivered, ""},
		{"failed", `{"channel":"sms","recipient":"+94775550000","message_content":"hello"}`, http.StatusOK, domain.MessageFailed, ""},
		{"scheduled", `{"channel":"email","recipient":"a@example.com","subject":"Hi","message":"later","scheduled_time":"2099-01-01T10:00:00Z"}`, http.StatusOK, domain.MessageQueued, ""},
		{"bad channel", `{"channel":"fax","recipient":"+94771234567","message_content":"hello"}`, http.StatusBadRequest, "", "Invalid communication channel"},
		{"missing recipient", `{"channel":"sms","message_content":"hello"}`, http.StatusBadRequest, "", "recipient is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := featuretest.Do(t, h, caller, http.MethodPost, "/communication/send-message", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := featuretest.JSON(t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, tt.wantState, body["status"])
		})
	}

	assert.Equal(t, 1.0, tracker.totals["messages_sent"])

	rec := featuretest.Do(t, h, caller, http.MethodGet, "/communication/messages?status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	assert.Len(t, body["messages"], 1)
	assert.Equal(t, 1.0, featuretest.Object(t, body, "pagination")["total"])

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/communication/messages?campaign_id=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkSend(t *testing.T) {
	h, tracker := newRouter(t)
	caller := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, h, caller, http.MethodPost, "/communication/bulk-send",
		`{"channel":"whatsapp","recipients":["+94771234567","+94775550000","+94771234568"],"message_content":"sale"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	summary := featuretest.Object(t, featuretest.JSON(t, rec), "summary")
	assert.Equal(t, 2.0, summary["sent"])
	assert.Equal(t, 1.0, summary["failed"])
	assert.Equal(t, 2.0, tracker.totals["messages_sent"])
}

func TestCampaignLifecycle(t *testing.T) {
	h, tracker := newRouter(t)
	caller := featuretest.NewCaller(domain.RoleManager)

	rec := featuretest.Do(t, h, caller, http.MethodPost, "/communication/campaigns",
		`{"name":"Launch","channel":"sms","message_content":"We are live","recipients":["+94771234567","+94771234568"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	campaign := featuretest.Object(t, featuretest.JSON(t, rec), "campaign")
	assert.Equal(t, "draft", campaign["status"])
	id := campaign["id"].(string)

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/communication/campaigns/"+id+"/send", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	results := featuretest.Object(t, featuretest.JSON(t, rec), "results")
	assert.Equal(t, 2.0, results["total_sent"])
	assert.Equal(t, 2.0, tracker.totals["messages_sent"])

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/communication/campaigns?channel=sms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["campaigns"], 1)

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/communication/campaigns/"+uuid.NewString()+"/send", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = featuretest.Do(t, h, caller, http.MethodPost, "/communication/campaigns/not-a-uuid/send", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoiceCall(t *testing.T) {
	h, _ := newRouter(t)
	caller := featuretest.NewCaller(domain.RoleUser)

	rec := featuretest.Do(t, h, caller, http.MethodPost, "/communication/voice/call",
		`{"recipient":"+94771234567","message":"Your order is ready"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	call := featuretest.Object(t, featuretest.JSON(t, rec), "call")
	assert.Equal(t, "test_1", call["call_id"])

	rec = featuretest.Do(t, h, caller, http.MethodGet, "/communication/voice/calls", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, featuretest.JSON(t, rec)["calls"], 1)
}

func TestAnalytics(t *testing.T) {
	h, _ := newRouter(t)
	caller := featuretest.NewCaller(domain.RoleUser)

	featuretest.Do(t, h, caller, http.MethodPost, "/communication/sms/send", `{"to_number":"+94771234567","message":"a"}`)
	featuretest.Do(t, h, caller, http.MethodPost, "/communication/sms/send", `{"to_number":"+94775550000","message":"b"}`)

	rec := featuretest.Do(t, h, caller, http.MethodGet, "/communication/analytics?days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	overview := featuretest.Object(t, featuretest.JSON(t, rec), "overview")
	assert.Equal(t, 2.0, overview["total_messages"])
	assert.Equal(t, 1.0, overview["failed_messages"])
}

func TestRequiresCaller(t *testing.T) {
	h, _ := newRouter(t)
	rec := featuretest.Do(t, h, featuretest.Caller{}, http.MethodPost, "/communication/send-message", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
