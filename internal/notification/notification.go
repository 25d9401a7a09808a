// Package notification delivers outbound messages on the email, sms, voice and
// whatsapp channels. Every channel has a real provider client and falls back to a
// seeded simulator when the provider is missing or the call fails.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Channels handled by the notifier.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelVoice    = "voice"
	ChannelWhatsApp = "whatsapp"
)

// Delivery statuses reported by providers and the simulator.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusQueued    = "queued"
)

// ProviderSimulation names deliveries that never left the process.
const ProviderSimulation = "simulation"

// Message is one outbound message.
type Message struct {
	Channel  string
	To       string
	Subject  string
	Text     string
	HTML     string
	ReplyTo  string
	Voice    string
	Language string
	Template *Template
}

// Template is a pre-approved whatsapp template.
type Template struct {
	Name       string
	Language   string
	Parameters []string
}

// Delivery is the provider's answer for one message.
type Delivery struct {
	Provider         string    `json:"provider"`
	ExternalID       string    `json:"message_id"`
	Status           string    `json:"status"`
	Simulated        bool      `json:"simulated"`
	SimulationReason string    `json:"simulation_reason,omitempty"`
	Error            string    `json:"error,omitempty"`
	DurationSeconds  int       `json:"call_duration,omitempty"`
	Answered         bool      `json:"answered,omitempty"`
	SentAt           time.Time `json:"sent_at"`
}

// Succeeded reports whether the message left successfully.
func (d *Delivery) Succeeded() bool {
	return d != nil && d.Status != StatusFailed
}

// Sender delivers messages for one channel through a real provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Delivery, error)
	Name() string
}

// Config holds provider credentials. Empty credentials leave a channel simulated.
type Config struct {
	SendGrid SendGridConfig
	SMTP     SMTPConfig
	Twilio   TwilioConfig
	WhatsApp WhatsAppConfig
	Seed     int64
}

// Notifier routes messages to the configured provider per channel.
type Notifier struct {
	senders map[string]Sender
	sim     *Simulator
	logger  *slog.Logger
}

// New builds a notifier from cfg. SendGrid wins over SMTP for email.
func New(cfg Config, logger *slog.Logger) *Notifier {
	n := &Notifier{
		senders: make(map[string]Sender),
		sim:     NewSimulator(cfg.Seed),
		logger:  logger,
	}

	switch {
	case cfg.SendGrid.APIKey != "":
		n.senders[ChannelEmail] = NewSendGridSender(cfg.SendGrid)
	case cfg.SMTP.Host != "":
		n.senders[ChannelEmail] = NewSMTPSender(cfg.SMTP)
	}
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		twilio := NewTwilioClient(cfg.Twilio)
		n.senders[ChannelSMS] = twilio.SMS()
		n.senders[ChannelVoice] = twilio.Voice()
	}
	if cfg.WhatsApp.AccessToken != "" && cfg.WhatsApp.PhoneNumberID != "" {
		n.senders[ChannelWhatsApp] = NewWhatsAppSender(cfg.WhatsApp)
	}

	for _, ch := range []string{ChannelEmail, ChannelSMS, ChannelVoice, ChannelWhatsApp} {
		if s, ok := n.senders[ch]; ok {
			logger.Info("notification provider enabled", "channel", ch, "provider", s.Name())
		} else {
			logger.Warn("notification provider not configured, using simulation", "channel", ch)
		}
	}
	return n
}

// Register replaces the sender of a channel.
func (n *Notifier) Register(channel string, s Sender) {
	n.senders[channel] = s
}

// Configured reports whether channel has a real provider.
func (n *Notifier) Configured(channel string) bool {
	_, ok := n.senders[channel]
	return ok
}

// Send delivers msg. Provider errors are logged and the message is simulated instead,
// so Send always returns a Delivery.
func (n *Notifier) Send(ctx context.Context, msg Message) *Delivery {
	sender, ok := n.senders[msg.Channel]
	if !ok {
		return n.sim.Deliver(msg, fmt.Sprintf("%s service not configured", msg.Channel))
	}

	d, err := sender.Send(ctx, msg)
	if err != nil {
		n.logger.Warn("provider delivery failed, simulating",
			"channel", msg.Channel,
			"provider", sender.Name(),
			"error", err)
		sim := n.sim.Deliver(msg, err.Error())
		sim.Error = err.Error()
		return sim
	}
	if d.SentAt.IsZero() {
		d.SentAt = time.Now().UTC()
	}
	return d
}

// SendPasswordResetEmail sends the reset link to the account owner.
func (n *Notifier) SendPasswordResetEmail(ctx context.Context, to, resetURL string) *Delivery {
	body := fmt.Sprintf(`<html><body>
		<h2>Reset Your Password</h2>
		<p>A password reset has been requested for your CloudBoost account.</p>
		<p><a href="%s">Click here to reset your password</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 1 hour.</p>
		<p>If you did not request this password reset, please ignore this email.</p>
	</body></html>`, resetURL, resetURL)

	return n.Send(ctx, Message{
		Channel: ChannelEmail,
		To:      to,
		Subject: "Reset Your Password",
		Text:    "Reset your password: " + resetURL,
		HTML:    body,
	})
}

// SendVerificationEmail sends the email confirmation link to a new user.
func (n *Notifier) SendVerificationEmail(ctx context.Context, to, verifyURL string) *Delivery {
	body := fmt.Sprintf(`<html><body>
		<h2>Confirm Your Email</h2>
		<p>Welcome to CloudBoost AI. Please confirm your email address.</p>
		<p><a href="%s">Click here to verify your email</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 24 hours.</p>
	</body></html>`, verifyURL, verifyURL)

	return n.Send(ctx, Message{
		Channel: ChannelEmail,
		To:      to,
		Subject: "Verify Your Email",
		Text:    "Verify your email: " + verifyURL,
		HTML:    body,
	})
}
