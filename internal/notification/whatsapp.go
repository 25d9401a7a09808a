package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const graphBaseURL = "https://graph.facebook.com/v18.0"

// WhatsAppConfig configures the WhatsApp Business Cloud API sender.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
}

// WhatsAppSender sends text and template messages through the Graph API.
type WhatsAppSender struct {
	config WhatsAppConfig
	client *resty.Client
}

// NewWhatsAppSender creates a WhatsApp sender.
func NewWhatsAppSender(config WhatsAppConfig) *WhatsAppSender {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = graphBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetAuthToken(config.AccessToken).
		SetHeader("Content-Type", "application/json")

	return &WhatsAppSender{config: config, client: client}
}

func (s *WhatsAppSender) Name() string { return "whatsapp_business_api" }

type waText struct {
	Body string `json:"body"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             *waText     `json:"text,omitempty"`
	Template         *waTemplate `json:"template,omitempty"`
}

type waResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type waError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send posts a text message, or a template message when msg.Template is set.
func (s *WhatsAppSender) Send(ctx context.Context, msg Message) (*Delivery, error) {
	req := waRequest{MessagingProduct: "whatsapp", To: msg.To, Type: "text"}
	if t := msg.Template; t != nil {
		lang := t.Language
		if lang == "" {
			lang = "en"
		}
		tpl := &waTemplate{Name: t.Name, Language: waLanguage{Code: lang}}
		if len(t.Parameters) > 0 {
			params := make([]waParameter, len(t.Parameters))
			for i, p := range t.Parameters {
				params[i] = waParameter{Type: "text", Text: p}
			}
			tpl.Components = []waComponent{{Type: "body", Parameters: params}}
		}
		req.Type = "template"
		req.Template = tpl
	} else {
		req.Text = &waText{Body: msg.Text}
	}

	var (
		result waResponse
		apiErr waError
	)
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("phone", s.config.PhoneNumberID).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post("/{phone}/messages")
	if err != nil {
		return nil, fmt.Errorf("whatsapp request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if len(result.Messages) == 0 {
		return nil, fmt.Errorf("whatsapp: response carried no message id")
	}

	return &Delivery{
		Provider:   s.Name(),
		ExternalID: result.Messages[0].ID,
		Status:     StatusSent,
		SentAt:     time.Now().UTC(),
	}, nil
}
