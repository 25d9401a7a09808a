package automation

import (
	"sort"
	"strings"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// Template is a ready-made workflow.
type Template struct {
	Key         string                  `json:"key"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Triggers    []string                `json:"triggers"`
	Actions     []domain.WorkflowAction `json:"actions"`
}

// Templates are the workflows every tenant can start from. Action delays are
// hours after the execution starts.
var Templates = map[string]Template{
	"lead_nurturing": {
		Key:         "lead_nurturing",
		Name:        "Lead Nurturing Campaign",
		Description: "Automated lead nurturing with cultural adaptation",
		Triggers:    []string{"form_submission", "website_visit", "content_download"},
		Actions: []domain.WorkflowAction{
			{Type: "send_email", Delay: 0, Config: map[string]any{"template": "welcome_email"}},
			{Type: "send_whatsapp", Delay: 24, Config: map[string]any{"template": "follow_up_message"}},
			{Type: "assign_sales_rep", Delay: 72, Config: map[string]any{"criteria": "geography_culture"}},
			{Type: "schedule_call", Delay: 120, Config: map[string]any{"template": "demo_invitation"}},
		},
	},
	"customer_onboarding": {
		Key:         "customer_onboarding",
		Name:        "Customer Onboarding Flow",
		Description: "Comprehensive onboarding with regional customization",
		Triggers:    []string{"purchase_completed", "subscription_activated"},
		Actions: []domain.WorkflowAction{
			{Type: "send_welcome_kit", Delay: 0, Config: map[string]any{"language": "customer_preferred"}},
			{Type: "schedule_onboarding_call", Delay: 24, Config: map[string]any{"timezone": "customer_local"}},
			{Type: "send_tutorial_videos", Delay: 48, Config: map[string]any{"content": "industry_specific"}},
			{Type: "check_progress", Delay: 168, Config: map[string]any{"trigger": "usage_analytics"}},
		},
	},
	"churn_prevention": {
		Key:         "churn_prevention",
		Name:        "Churn Prevention Automation",
		Description: "Proactive customer retention with cultural sensitivity",
		Triggers:    []string{"low_engagement", "support_tickets", "usage_decline"},
		Actions: []domain.WorkflowAction{
			{Type: "analyze_behavior", Delay: 0, Config: map[string]any{"model": "churn_prediction"}},
			{Type: "personalized_outreach", Delay: 12, Config: map[string]any{"channel": "preferred"}},
			{Type: "offer_assistance", Delay: 48, Config: map[string]any{"approach": "cultural_appropriate"}},
			{Type: "escalate_to_manager", Delay: 120, Config: map[string]any{"criteria": "high_value_customer"}},
		},
	},
}

// TemplateList returns the templates ordered by key.
func TemplateList() []Template {
	out := make([]Template, 0, len(Templates))
	for _, t := range Templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// messageTemplate is the text sent by a message action.
type messageTemplate struct {
	Subject string
	Body    string
}

var messageTemplates = map[string]messageTemplate{
	"welcome_email": {
		Subject: "Welcome, {{name}}!",
		Body:    "Hi {{name}},\n\nThank you for your interest. We are glad to have {{company}} with us and will be in touch shortly.",
	},
	"follow_up_message": {
		Subject: "Following up",
		Body:    "Hi {{name}}, just checking in. Do you have any questions we can help with? Reply anytime.",
	},
	"demo_invitation": {
		Subject: "Your personal demo",
		Body:    "Hi {{name}}, we would love to show you around. Reply with a time that suits you for a short demo.",
	},
	"welcome_kit": {
		Subject: "Your welcome kit",
		Body:    "Hi {{name}}, welcome aboard! Here is everything you need to get started.",
	},
	"tutorial_videos": {
		Subject: "Getting started videos",
		Body:    "Hi {{name}}, these short videos walk you through the features teams in {{industry}} use most.",
	},
	"check_in": {
		Subject: "How are things going?",
		Body:    "Hi {{name}}, we noticed you have been quiet lately. Is there anything we can do to help?",
	},
}

// render fills {{name}}, {{company}} and {{industry}} from the contact.
func render(text string, c *contact) string {
	name := c.Name
	if name == "" {
		name = "there"
	}
	company := c.Company
	if company == "" {
		company = "you"
	}
	industry := c.Industry
	if industry == "" {
		industry = "your industry"
	}
	return strings.NewReplacer("{{name}}", name, "{{company}}", company, "{{industry}}", industry).Replace(text)
}
