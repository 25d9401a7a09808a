package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const sendGridBaseURL = "https://api.sendgrid.com"

// SendGridConfig configures the SendGrid email sender.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	BaseURL   string
}

// SendGridSender sends email through the SendGrid v3 API.
type SendGridSender struct {
	config SendGridConfig
	client *resty.Client
}

// NewSendGridSender creates a SendGrid sender.
func NewSendGridSender(config SendGridConfig) *SendGridSender {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = sendGridBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetAuthToken(config.APIKey).
		SetHeader("Content-Type", "application/json")

	return &SendGridSender{config: config, client: client}
}

func (s *SendGridSender) Name() string { return "sendgrid" }

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	ReplyTo          *sendGridAddress          `json:"reply_to,omitempty"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

type sendGridError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Send posts msg to /v3/mail/send. SendGrid answers 202 with the id in X-Message-Id.
func (s *SendGridSender) Send(ctx context.Context, msg Message) (*Delivery, error) {
	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = TextToHTML(msg.Text)
	}

	mail := sendGridMail{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: msg.To}}}},
		From:             sendGridAddress{Email: s.config.FromEmail, Name: s.config.FromName},
		Subject:          msg.Subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: msg.Text},
			{Type: "text/html", Value: htmlBody},
		},
	}
	if msg.ReplyTo != "" {
		mail.ReplyTo = &sendGridAddress{Email: msg.ReplyTo}
	}

	var apiErr sendGridError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(mail).
		SetError(&apiErr).
		Post("/v3/mail/send")
	if err != nil {
		return nil, fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.IsError() {
		if len(apiErr.Errors) > 0 {
			return nil, fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode(), apiErr.Errors[0].Message)
		}
		return nil, fmt.Errorf("sendgrid: status %d", resp.StatusCode())
	}

	return &Delivery{
		Provider:   s.Name(),
		ExternalID: resp.Header().Get("X-Message-Id"),
		Status:     StatusSent,
		SentAt:     time.Now().UTC(),
	}, nil
}
