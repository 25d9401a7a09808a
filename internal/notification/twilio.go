package notification

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioConfig configures the Twilio SMS and voice client.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	BaseURL     string
}

// TwilioClient talks to the Twilio REST API.
type TwilioClient struct {
	config TwilioConfig
	client *resty.Client
}

// NewTwilioClient creates a Twilio client authenticated with the account SID and token.
func NewTwilioClient(config TwilioConfig) *TwilioClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = twilioBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetBasicAuth(config.AccountSID, config.AuthToken)

	return &TwilioClient{config: config, client: client}
}

type twilioResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *TwilioClient) post(ctx context.Context, resource string, form map[string]string) (*twilioResource, error) {
	var (
		result twilioResource
		apiErr twilioError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("sid", c.config.AccountSID).
		SetFormData(form).
		SetResult(&result).
		SetError(&apiErr).
		Post("/2010-04-01/Accounts/{sid}/" + resource)
	if err != nil {
		return nil, fmt.Errorf("twilio request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("twilio: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return &result, nil
}

// SMS returns the sms channel sender.
func (c *TwilioClient) SMS() Sender { return twilioSMS{c} }

// Voice returns the voice channel sender.
func (c *TwilioClient) Voice() Sender { return twilioVoice{c} }

type twilioSMS struct{ c *TwilioClient }

func (twilioSMS) Name() string { return "twilio" }

func (s twilioSMS) Send(ctx context.Context, msg Message) (*Delivery, error) {
	res, err := s.c.post(ctx, "Messages.json", map[string]string{
		"To":   msg.To,
		"From": s.c.config.PhoneNumber,
		"Body": msg.Text,
	})
	if err != nil {
		return nil, err
	}
	return &Delivery{
		Provider:   "twilio",
		ExternalID: res.SID,
		Status:     twilioStatus(res.Status),
		SentAt:     time.Now().UTC(),
	}, nil
}

type twilioVoice struct{ c *TwilioClient }

func (twilioVoice) Name() string { return "twilio" }

func (s twilioVoice) Send(ctx context.Context, msg Message) (*Delivery, error) {
	twiml, err := SayTwiML(msg.Text, msg.Voice, msg.Language)
	if err != nil {
		return nil, err
	}
	res, err := s.c.post(ctx, "Calls.json", map[string]string{
		"To":    msg.To,
		"From":  s.c.config.PhoneNumber,
		"Twiml": twiml,
	})
	if err != nil {
		return nil, err
	}
	return &Delivery{
		Provider:   "twilio",
		ExternalID: res.SID,
		Status:     StatusQueued,
		SentAt:     time.Now().UTC(),
	}, nil
}

func twilioStatus(s string) string {
	switch s {
	case "delivered":
		return StatusDelivered
	case "failed", "undelivered":
		return StatusFailed
	case "queued", "accepted", "scheduled":
		return StatusQueued
	default:
		return StatusSent
	}
}

type twimlSay struct {
	Voice    string `xml:"voice,attr,omitempty"`
	Language string `xml:"language,attr,omitempty"`
	Text     string `xml:",chardata"`
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Say     twimlSay `xml:"Say"`
}

// voiceLocales maps our language codes to Twilio <Say> locales.
var voiceLocales = map[string]string{
	"en": "en-US",
	"hi": "hi-IN",
	"ta": "ta-IN",
	"te": "te-IN",
	"ml": "ml-IN",
	"bn": "bn-IN",
	"gu": "gu-IN",
	"mr": "mr-IN",
	"kn": "kn-IN",
	"pa": "pa-IN",
	"ur": "ur-IN",
	"th": "th-TH",
}

// SayTwiML renders a <Response><Say> document speaking text.
func SayTwiML(text, voice, language string) (string, error) {
	if voice == "" || voice == "text_to_speech" {
		voice = "alice"
	}
	locale, ok := voiceLocales[language]
	if !ok {
		locale = "en-US"
	}
	out, err := xml.Marshal(twimlResponse{Say: twimlSay{Voice: voice, Language: locale, Text: text}})
	if err != nil {
		return "", fmt.Errorf("render twiml: %w", err)
	}
	return string(out), nil
}
