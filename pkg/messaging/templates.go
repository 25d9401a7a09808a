package messaging

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// WhatsAppTemplate is a pre-approved whatsapp message template.
type WhatsAppTemplate struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Category   string              `json:"category"`
	Language   string              `json:"language"`
	Status     string              `json:"status"`
	Content    string              `json:"content"`
	Components []TemplateComponent `json:"components"`
}

// TemplateComponent is one part of a template. Body text uses {{1}}, {{2}}, ...
type TemplateComponent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Body returns the text of the BODY component.
func (t WhatsAppTemplate) Body() string {
	for _, c := range t.Components {
		if c.Type == "BODY" {
			return c.Text
		}
	}
	return ""
}

// WhatsAppTemplates are the templates available to every tenant.
var WhatsAppTemplates = []WhatsAppTemplate{
	{
		ID:       "welcome_message",
		Name:     "Welcome Message",
		Category: "UTILITY",
		Language: "en",
		Status:   "APPROVED",
		Content:  "Welcome to {{business_name}}! We're excited to serve you. Reply STOP to opt out.",
		Components: []TemplateComponent{
			{Type: "BODY", Text: "Welcome to {{1}}! We're excited to serve you. Reply STOP to opt out."},
		},
	},
	{
		ID:       "order_confirmation",
		Name:     "Order Confirmation",
		Category: "UTILITY",
		Language: "en",
		Status:   "APPROVED",
		Content:  "Your order #{{order_id}} has been confirmed. Total: {{amount}}. Expected delivery: {{delivery_date}}.",
		Components: []TemplateComponent{
			{Type: "BODY", Text: "Your order #{{1}} has been confirmed. Total: {{2}}. Expected delivery: {{3}}."},
		},
	},
	{
		ID:       "appointment_reminder",
		Name:     "Appointment Reminder",
		Category: "UTILITY",
		Language: "en",
		Status:   "APPROVED",
		Content:  "Reminder: You have an appointment with {{business_name}} on {{date}} at {{time}}. Reply CONFIRM to confirm.",
		Components: []TemplateComponent{
			{Type: "BODY", Text: "Reminder: You have an appointment with {{1}} on {{2}} at {{3}}. Reply CONFIRM to confirm."},
		},
	},
}

// LookupTemplate finds a whatsapp template by id.
func LookupTemplate(id string) (WhatsAppTemplate, bool) {
	for _, t := range WhatsAppTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return WhatsAppTemplate{}, false
}

var positionalPattern = regexp.MustCompile(`\{\{(\d+)\}\}`)

// FillTemplate substitutes {{n}} with the n-th parameter. Missing parameters stay as is.
func FillTemplate(body string, params []string) string {
	return positionalPattern.ReplaceAllStringFunc(body, func(match string) string {
		n, _ := strconv.Atoi(positionalPattern.FindStringSubmatch(match)[1])
		if n >= 1 && n <= len(params) {
			return params[n-1]
		}
		return match
	})
}

// TemplateSendInput sends a whatsapp template. template_name is accepted as an
// alias of template_id.
type TemplateSendInput struct {
	TemplateID   string     `json:"template_id"`
	TemplateName string     `json:"template_name"`
	Recipient    string     `json:"recipient"`
	Parameters   []string   `json:"parameters"`
	Language     string     `json:"language"`
	ScheduledAt  *time.Time `json:"scheduled_time"`
}

// SendTemplate sends a whatsapp template message.
func (s *Service) SendTemplate(ctx context.Context, tenantID, userID uuid.UUID, in TemplateSendInput) (*domain.Message, error) {
	id := in.TemplateID
	if id == "" {
		id = in.TemplateName
	}
	switch {
	case in.Recipient == "":
		return nil, domain.Required("recipient")
	case id == "":
		return nil, domain.Required("template_id")
	}
	tmpl, ok := LookupTemplate(id)
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	need := len(Variables(tmpl.Body()))
	if len(in.Parameters) < need {
		return nil, domain.NewValidationError("parameters", "template %s needs %d parameters", id, need)
	}
	language := in.Language
	if language == "" {
		language = tmpl.Language
	}

	params := make([]any, len(in.Parameters))
	for i, p := range in.Parameters {
		params[i] = p
	}
	return s.Send(ctx, tenantID, userID, SendInput{
		Channel:     domain.ChannelWhatsApp,
		Recipient:   in.Recipient,
		Content:     FillTemplate(tmpl.Body(), in.Parameters),
		ScheduledAt: in.ScheduledAt,
		Metadata:    domain.JSONMap{"parameters": params},
		template:    &notification.Template{Name: tmpl.ID, Language: language, Parameters: in.Parameters},
	})
}

// Variables returns the distinct positional placeholders of body.
func Variables(body string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range positionalPattern.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// EmailInput sends one email. recipient is accepted as an alias of to_email.
type EmailInput struct {
	ToEmail     string `json:"to_email"`
	Recipient   string `json:"recipient"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	HTMLContent string `json:"html_content"`
}

// SendEmail sends an email. Without html_content the text is wrapped into HTML.
func (s *Service) SendEmail(ctx context.Context, tenantID, userID uuid.UUID, in EmailInput) (*domain.Message, error) {
	to := in.ToEmail
	if to == "" {
		to = in.Recipient
	}
	switch {
	case to == "":
		return nil, domain.Required("to_email")
	case strings.TrimSpace(in.Subject) == "":
		return nil, domain.Required("subject")
	case strings.TrimSpace(in.Content) == "" && strings.TrimSpace(in.HTMLContent) == "":
		return nil, domain.Required("content")
	}
	text := in.Content
	if text == "" {
		text = in.HTMLContent
	}
	html := in.HTMLContent
	if html == "" {
		html = notification.TextToHTML(in.Content)
	}
	return s.Send(ctx, tenantID, userID, SendInput{
		Channel:     domain.ChannelEmail,
		Recipient:   to,
		Subject:     in.Subject,
		Content:     text,
		HTML:        html,
		MessageType: "html",
	})
}

// SMSInput sends one SMS. recipient and message_content are accepted as aliases.
type SMSInput struct {
	ToNumber  string `json:"to_number"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Content   string `json:"message_content"`
	Country   string `json:"country"`
}

// SendSMS sends an SMS.
func (s *Service) SendSMS(ctx context.Context, tenantID, userID uuid.UUID, in SMSInput) (*domain.Message, error) {
	to := in.ToNumber
	if to == "" {
		to = in.Recipient
	}
	if to == "" {
		return nil, domain.Required("to_number")
	}
	return s.Send(ctx, tenantID, userID, SendInput{
		Channel:   domain.ChannelSMS,
		Recipient: to,
		Content:   in.Content,
		Message:   in.Message,
		Country:   in.Country,
	})
}

// CallInput places one voice call.
type CallInput struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Content   string `json:"message_content"`
	Voice     string `json:"voice"`
	Language  string `json:"language"`
}

// Call places a text to speech voice call and logs it.
func (s *Service) Call(ctx context.Context, tenantID, userID uuid.UUID, in CallInput) (*domain.CallLog, error) {
	text := in.Content
	if text == "" {
		text = in.Message
	}
	to := CleanPhone(strings.TrimSpace(in.Recipient))
	switch {
	case to == "":
		return nil, domain.Required("recipient")
	case strings.TrimSpace(text) == "":
		return nil, domain.Required("message_content")
	case !ValidPhone(to, ""):
		return nil, domain.NewValidationError("recipient", "Invalid phone number format")
	case len([]rune(text)) > Channels[domain.ChannelVoice].MaxMessageLength:
		return nil, domain.NewValidationError("message_content", "Message too long. Maximum %d characters for voice", Channels[domain.ChannelVoice].MaxMessageLength)
	}
	voice := in.Voice
	if voice == "" {
		voice = "alice"
	}
	language := in.Language
	if language == "" {
		language = "en"
	}

	d := s.notifier.Send(ctx, notification.Message{
		Channel:  domain.ChannelVoice,
		To:       to,
		Text:     text,
		Voice:    voice,
		Language: language,
	})
	call := &domain.CallLog{
		TenantScoped:    domain.TenantScoped{TenantID: tenantID},
		UserID:          userID,
		Recipient:       to,
		MessageContent:  text,
		VoiceType:       "text_to_speech",
		Language:        language,
		ProviderCallID:  d.ExternalID,
		Simulated:       d.Simulated,
		Answered:        d.Answered,
		DurationSeconds: d.DurationSeconds,
	}
	switch {
	case d.Status == notification.StatusFailed:
		call.Status = domain.CallFailed
	case d.Answered:
		call.Status = domain.CallCompleted
		ended := d.SentAt.Add(time.Duration(d.DurationSeconds) * time.Second)
		call.EndedAt = &ended
		call.Cost = Cost(domain.ChannelVoice, to, text)
	default:
		call.Status = domain.CallInitiated
		call.Cost = Cost(domain.ChannelVoice, to, text)
	}
	if err := s.repo.CreateCall(ctx, call); err != nil {
		return nil, fmt.Errorf("failed to store call: %w", err)
	}
	s.metrics.MessageSent(domain.ChannelVoice, call.Status, call.Simulated)
	return call, nil
}

// ListCalls returns the latest calls of a tenant.
func (s *Service) ListCalls(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.CallLog, error) {
	return s.repo.ListCalls(ctx, tenantID, limit)
}
