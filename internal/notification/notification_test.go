package notification

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimulator_Deterministic(t *testing.T) {
	a := NewSimulator(42)
	b := NewSimulator(42)

	for i := 0; i < 50; i++ {
		msg := Message{Channel: ChannelVoice, To: "+94771234567"}
		da := a.Deliver(msg, "test")
		db := b.Deliver(msg, "test")
		assert.Equal(t, da.Status, db.Status)
		assert.Equal(t, da.DurationSeconds, db.DurationSeconds)
		assert.True(t, da.Simulated)
		assert.Equal(t, ProviderSimulation, da.Provider)
	}
}

func TestSimulator_SuccessRate(t *testing.T) {
	sim := NewSimulator(7)
	const n = 5000

	for _, ch := range []string{ChannelWhatsApp, ChannelEmail, ChannelSMS, ChannelVoice} {
		t.Run(ch, func(t *testing.T) {
			ok := 0
			for i := 0; i < n; i++ {
				if sim.Deliver(Message{Channel: ch}, "").Succeeded() {
					ok++
				}
			}
			assert.InDelta(t, SuccessRate(ch), float64(ok)/n, 0.03)
		})
	}
}

func TestNotifier_SimulatesUnconfiguredChannel(t *testing.T) {
	n := New(Config{Seed: 1}, discardLogger())

	assert.False(t, n.Configured(ChannelSMS))
	d := n.Send(context.Background(), Message{Channel: ChannelSMS, To: "+94771234567", Text: "hi"})
	require.NotNil(t, d)
	assert.True(t, d.Simulated)
	assert.Equal(t, "sms service not configured", d.SimulationReason)
	assert.True(t, strings.HasPrefix(d.ExternalID, "sim_sms_"))
}

func TestSendGridSender(t *testing.T) {
	var got sendGridMail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "sg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendGridSender(SendGridConfig{APIKey: "SG.key", FromEmail: "noreply@cloudboost.ai", BaseURL: srv.URL})
	d, err := s.Send(context.Background(), Message{Channel: ChannelEmail, To: "a@example.com", Subject: "Hello", Text: "Body"})
	require.NoError(t, err)

	assert.Equal(t, "sg-123", d.ExternalID)
	assert.Equal(t, StatusSent, d.Status)
	assert.False(t, d.Simulated)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "a@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Hello", got.Subject)
	require.Len(t, got.Content, 2)
	assert.Equal(t, "<html><body><p>Body</p></body></html>", got.Content[1].Value)
}

func TestNotifier_FallsBackOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	n := New(Config{
		SendGrid: SendGridConfig{APIKey: "SG.bad", FromEmail: "noreply@cloudboost.ai", BaseURL: srv.URL},
		Seed:     3,
	}, discardLogger())
	require.True(t, n.Configured(ChannelEmail))

	d := n.Send(context.Background(), Message{Channel: ChannelEmail, To: "a@example.com", Subject: "s", Text: "t"})
	assert.True(t, d.Simulated)
	assert.Contains(t, d.Error, "bad key")
	assert.Contains(t, d.SimulationReason, "status 401")
}

func TestTwilioSMS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+94771234567", r.PostForm.Get("To"))
		assert.Equal(t, "+15550001111", r.PostForm.Get("From"))
		assert.Equal(t, "hello", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(TwilioConfig{AccountSID: "AC123", AuthToken: "secret", PhoneNumber: "+15550001111", BaseURL: srv.URL})
	d, err := c.SMS().Send(context.Background(), Message{Channel: ChannelSMS, To: "+94771234567", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "SM1", d.ExternalID)
	assert.Equal(t, StatusQueued, d.Status)
	assert.Equal(t, "twilio", d.Provider)
}

func TestTwilioVoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Calls.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("Twiml"), `<Say voice="alice" language="ta-IN">வணக்கம்</Say>`)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA1","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(TwilioConfig{AccountSID: "AC123", AuthToken: "secret", PhoneNumber: "+15550001111", BaseURL: srv.URL})
	d, err := c.Voice().Send(context.Background(), Message{Channel: ChannelVoice, To: "+94771234567", Text: "வணக்கம்", Language: "ta"})
	require.NoError(t, err)
	assert.Equal(t, "CA1", d.ExternalID)
}

func TestSayTwiML_EscapesText(t *testing.T) {
	out, err := SayTwiML("Tom & Jerry <3", "", "xx")
	require.NoError(t, err)
	assert.Equal(t, `<Response><Say voice="alice" language="en-US">Tom &amp; Jerry &lt;3</Say></Response>`, out)
}

func TestWhatsAppSender(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		wantType string
	}{
		{
			name:     "text",
			msg:      Message{Channel: ChannelWhatsApp, To: "+94771234567", Text: "Ayubowan"},
			wantType: "text",
		},
		{
			name: "template",
			msg: Message{Channel: ChannelWhatsApp, To: "+94771234567", Template: &Template{
				Name: "order_confirmation", Parameters: []string{"Nimal", "A-100"},
			}},
			wantType: "template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got waRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/PN1/messages", r.URL.Path)
				assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
			}))
			defer srv.Close()

			s := NewWhatsAppSender(WhatsAppConfig{AccessToken: "wa-token", PhoneNumberID: "PN1", BaseURL: srv.URL})
			d, err := s.Send(context.Background(), tt.msg)
			require.NoError(t, err)
			assert.Equal(t, "wamid.1", d.ExternalID)
			assert.Equal(t, "whatsapp", got.MessagingProduct)
			assert.Equal(t, tt.wantType, got.Type)
			if tt.msg.Template != nil {
				require.NotNil(t, got.Template)
				assert.Equal(t, "en", got.Template.Language.Code)
				assert.Len(t, got.Template.Components[0].Parameters, 2)
			}
		})
	}
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 2525, From: "noreply@cloudboost.ai", FromName: "CloudBoost"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Nil(t, a)
		return nil
	}

	d, err := s.Send(context.Background(), Message{Channel: ChannelEmail, To: "a@example.com", Subject: "Hi", Text: "line one"})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "From: CloudBoost <noreply@cloudboost.ai>")
	assert.Contains(t, gotMsg, "<p>line one</p>")
	assert.NotEmpty(t, d.ExternalID)
}
