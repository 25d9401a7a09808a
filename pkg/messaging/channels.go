package messaging

import (
	"math"
	"regexp"
	"strings"

	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// Channel describes one outbound channel.
type Channel struct {
	Name             string   `json:"name"`
	MessageTypes     []string `json:"message_types"`
	MaxMessageLength int      `json:"max_message_length"`
	SupportsMedia    bool     `json:"supports_media"`
	SuccessRate      float64  `json:"success_rate"`
}

// Channels is the channel catalog. Voice length is in seconds of speech.
var Channels = map[string]Channel{
	domain.ChannelWhatsApp: {
		Name:             "WhatsApp Business",
		MessageTypes:     []string{"text", "image", "document", "template", "interactive"},
		MaxMessageLength: 4096,
		SupportsMedia:    true,
		SuccessRate:      notification.SuccessRate(domain.ChannelWhatsApp),
	},
	domain.ChannelEmail: {
		Name:             "Email",
		MessageTypes:     []string{"html", "text", "template"},
		MaxMessageLength: 100000,
		SupportsMedia:    true,
		SuccessRate:      notification.SuccessRate(domain.ChannelEmail),
	},
	domain.ChannelSMS: {
		Name:             "SMS",
		MessageTypes:     []string{"text"},
		MaxMessageLength: 160,
		SuccessRate:      notification.SuccessRate(domain.ChannelSMS),
	},
	domain.ChannelVoice: {
		Name:             "Voice Call",
		MessageTypes:     []string{"voice_message", "ivr"},
		MaxMessageLength: 300,
		SuccessRate:      notification.SuccessRate(domain.ChannelVoice),
	},
}

// TelecomProviders lists the mobile operators of each supported market.
var TelecomProviders = map[string][]string{
	"LK": {"Dialog", "Mobitel", "Hutch", "Airtel"},
	"IN": {"Jio", "Airtel", "Vi", "BSNL"},
	"PK": {"Jazz", "Telenor", "Zong", "Ufone"},
	"BD": {"Grameenphone", "Robi", "Banglalink", "Teletalk"},
	"NP": {"Ncell", "NTC"},
	"MM": {"MPT", "Ooredoo", "Telenor"},
}

var (
	e164Pattern   = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	phoneCleaner  = regexp.MustCompile(`[^\d+]`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePatterns = map[string]*regexp.Regexp{
		"LK": regexp.MustCompile(`^\+94[0-9]{9}$`),
		"IN": regexp.MustCompile(`^\+91[0-9]{10}$`),
		"PK": regexp.MustCompile(`^\+92[0-9]{10}$`),
		"BD": regexp.MustCompile(`^\+880[0-9]{10}$`),
		"NP": regexp.MustCompile(`^\+977[0-9]{10}$`),
		"MM": regexp.MustCompile(`^\+95[0-9]{8,10}$`),
	}
)

// CleanPhone strips everything but digits and the leading plus.
func CleanPhone(number string) string {
	return phoneCleaner.ReplaceAllString(number, "")
}

// ValidPhone checks number against the country's numbering plan, or E.164 when the
// country has no known plan.
func ValidPhone(number, country string) bool {
	clean := CleanPhone(number)
	if p, ok := phonePatterns[strings.ToUpper(country)]; ok {
		return p.MatchString(clean)
	}
	return e164Pattern.MatchString(clean)
}

// ValidEmail reports whether address looks like an email address.
func ValidEmail(address string) bool {
	return emailPattern.MatchString(address)
}

// dialPrefixes maps calling codes to markets. Longer prefixes come first.
var dialPrefixes = []struct {
	prefix  string
	country string
}{
	{"+880", "BD"},
	{"+977", "NP"},
	{"+91", "IN"},
	{"+92", "PK"},
	{"+94", "LK"},
	{"+95", "MM"},
}

// CountryOf infers the market of a recipient from its calling code. Email
// addresses and unknown prefixes default to LK.
func CountryOf(recipient string) string {
	for _, p := range dialPrefixes {
		if strings.HasPrefix(recipient, p.prefix) {
			return p.country
		}
	}
	return "LK"
}

var (
	baseCosts = map[string]float64{
		domain.ChannelWhatsApp: 0.005,
		domain.ChannelEmail:    0.001,
		domain.ChannelSMS:      0.02,
		domain.ChannelVoice:    0.05,
	}
	countryMultipliers = map[string]float64{
		"LK": 1.0,
		"IN": 0.8,
		"PK": 0.9,
		"BD": 0.85,
		"NP": 1.1,
		"MM": 1.2,
	}
)

// SMSParts is the number of 160 character segments text needs.
func SMSParts(text string) int {
	n := len([]rune(text))
	if n <= 160 {
		return 1
	}
	return (n + 159) / 160
}

// Cost estimates the USD price of sending content to recipient on channel.
// Voice calls are priced per started minute, assumed to be one.
func Cost(channel, recipient, content string) float64 {
	base, ok := baseCosts[channel]
	if !ok {
		base = 0.01
	}
	multiplier, ok := countryMultipliers[CountryOf(recipient)]
	if !ok {
		multiplier = 1.0
	}
	cost := base * multiplier
	if channel == domain.ChannelSMS {
		cost *= float64(SMSParts(content))
	}
	return math.Round(cost*10000) / 10000
}

// validateRecipient checks recipient for channel. Phone channels accept an
// optional market to apply its numbering plan.
func validateRecipient(channel, recipient, country string) error {
	switch channel {
	case domain.ChannelWhatsApp, domain.ChannelSMS, domain.ChannelVoice:
		if !ValidPhone(recipient, country) {
			return domain.NewValidationError("recipient", "Invalid phone number format")
		}
	case domain.ChannelEmail:
		if !ValidEmail(recipient) {
			return domain.NewValidationError("recipient", "Invalid email address format")
		}
	default:
		return domain.NewValidationError("channel", "Invalid communication channel")
	}
	return nil
}
