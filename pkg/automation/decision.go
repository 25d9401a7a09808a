package automation

import (
	"math"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
)

// scoringFactor is one weighted input of lead scoring.
type scoringFactor struct {
	Name   string
	Weight float64
	Values map[string]float64
}

var scoringFactors = []scoringFactor{
	{Name: "company_size", Weight: 0.3, Values: map[string]float64{"enterprise": 100, "medium": 70, "small": 40}},
	{Name: "industry", Weight: 0.2, Values: map[string]float64{"technology": 90, "healthcare": 85, "finance": 80}},
	{Name: "geography", Weight: 0.2, Values: map[string]float64{"sri_lanka": 95, "india": 90, "pakistan": 85}},
	{Name: "engagement", Weight: 0.3, Values: map[string]float64{"high": 100, "medium": 60, "low": 20}},
}

var channelPreferences = map[string][]string{
	"sri_lanka":  {"whatsapp", "email", "voice", "sms"},
	"india":      {"whatsapp", "email", "sms", "voice"},
	"pakistan":   {"whatsapp", "voice", "sms", "email"},
	"bangladesh": {"whatsapp", "voice", "email", "sms"},
	"nepal":      {"whatsapp", "email", "voice", "sms"},
}

var countryGeography = map[string]string{
	"LK": "sri_lanka",
	"IN": "india",
	"PK": "pakistan",
	"BD": "bangladesh",
	"NP": "nepal",
}

// CulturalFactors are the regional considerations of outreach timing.
type CulturalFactors struct {
	BusinessHours           BusinessHours `json:"business_hours"`
	ReligiousConsiderations []string      `json:"religious_considerations"`
	FestivalAwareness       []string      `json:"festival_awareness"`
}

// BusinessHours is the local working window.
type BusinessHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var culturalFactors = CulturalFactors{
	BusinessHours:           BusinessHours{Start: 9, End: 18},
	ReligiousConsiderations: []string{"friday_prayers", "ramadan_timing"},
	FestivalAwareness:       []string{"diwali", "vesak", "eid", "poya_days"},
}

// geography maps a country code, or an already named region, to a region key.
func geography(country string) string {
	if g, ok := countryGeography[strings.ToUpper(country)]; ok {
		return g
	}
	if _, ok := channelPreferences[strings.ToLower(country)]; ok {
		return strings.ToLower(country)
	}
	return "sri_lanka"
}

func preferredChannels(geo string) []string {
	if p, ok := channelPreferences[geo]; ok {
		return p
	}
	return []string{domain.ChannelEmail}
}

func messagingInput(channel, recipient, subject, body, country string) messaging.SendInput {
	return messaging.SendInput{
		Channel:   channel,
		Recipient: recipient,
		Subject:   subject,
		Content:   body,
		Country:   country,
	}
}

// FactorScore explains one factor of a lead score.
type FactorScore struct {
	Factor        string  `json:"factor"`
	Value         string  `json:"value"`
	Score         float64 `json:"score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// CulturalRecommendations advise how to approach a lead.
type CulturalRecommendations struct {
	PreferredChannels   []string        `json:"preferred_channels"`
	CulturalFactors     CulturalFactors `json:"cultural_factors"`
	RecommendedApproach string          `json:"recommended_approach"`
}

// LeadScoreResult is the decision engine's view of a lead.
type LeadScoreResult struct {
	LeadScore               float64                 `json:"lead_score"`
	Category                string                  `json:"category"`
	ScoringDetails          []FactorScore           `json:"scoring_details"`
	CulturalRecommendations CulturalRecommendations `json:"cultural_recommendations"`
	NextActions             []string                `json:"next_actions"`
}

// ScoreLead weighs company size, industry, geography and engagement. Unknown
// values score zero.
func ScoreLead(lead map[string]string) *LeadScoreResult {
	res := &LeadScoreResult{ScoringDetails: make([]FactorScore, 0, len(scoringFactors))}
	total := 0.0
	for _, f := range scoringFactors {
		value := strings.ToLower(strings.TrimSpace(lead[f.Name]))
		score := f.Values[value]
		weighted := score * f.Weight
		total += weighted
		res.ScoringDetails = append(res.ScoringDetails, FactorScore{
			Factor:        f.Name,
			Value:         value,
			Score:         score,
			Weight:        f.Weight,
			WeightedScore: round2(weighted),
		})
	}
	res.LeadScore = round2(total)

	switch {
	case res.LeadScore >= 80:
		res.Category = "hot"
	case res.LeadScore >= 60:
		res.Category = "warm"
	default:
		res.Category = "cold"
	}

	geo := geography(lead["geography"])
	approach := "direct_business"
	if geo == "sri_lanka" || geo == "india" {
		approach = "relationship_building"
	}
	res.CulturalRecommendations = CulturalRecommendations{
		PreferredChannels:   preferredChannels(geo),
		CulturalFactors:     culturalFactors,
		RecommendedApproach: approach,
	}
	res.NextActions = []string{
		"Assign to " + res.Category + " lead queue",
		"Use " + res.CulturalRecommendations.PreferredChannels[0] + " for initial contact",
		"Schedule follow-up based on cultural timing preferences",
	}
	return res
}

// TimingInput asks for the best time to contact a customer.
type TimingInput struct {
	Geography         string `json:"geography"`
	Timezone          string `json:"timezone"`
	CommunicationType string `json:"communication_type"`
}

// TimingResult is the recommended send time.
type TimingResult struct {
	OptimalTime            time.Time      `json:"optimal_time"`
	Timezone               string         `json:"timezone"`
	CulturalConsiderations map[string]any `json:"cultural_considerations"`
	ChannelGuidance        string         `json:"channel_guidance"`
	Recommendations        []string       `json:"recommendations"`
}

var channelGuidance = map[string]string{
	domain.ChannelEmail:    "Mid-morning on Tuesday to Thursday gets the most opens",
	domain.ChannelWhatsApp: "Late morning or early evening; keep it conversational",
	domain.ChannelSMS:      "Short messages inside business hours only",
	domain.ChannelVoice:    "Avoid the 12:00 to 14:00 lunch break",
}

// OptimizeTiming picks the next business morning slot, two hours after opening,
// in the customer's time zone. Fridays move two hours later for prayers and
// weekends move to Monday.
func OptimizeTiming(now time.Time, in TimingInput) (*TimingResult, error) {
	tz := in.Timezone
	if tz == "" {
		tz = "Asia/Colombo"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, domain.NewValidationError("timezone", "unknown timezone %q", tz)
	}
	channel := strings.ToLower(in.CommunicationType)
	if channel == "" {
		channel = domain.ChannelEmail
	}

	hours := culturalFactors.BusinessHours
	local := now.In(loc)
	optimal := time.Date(local.Year(), local.Month(), local.Day(), hours.Start+2, 0, 0, 0, loc)
	if !optimal.After(local) {
		optimal = optimal.AddDate(0, 0, 1)
	}
	switch optimal.Weekday() {
	case time.Friday:
		optimal = optimal.Add(2 * time.Hour)
	case time.Saturday:
		optimal = optimal.AddDate(0, 0, 2)
	case time.Sunday:
		optimal = optimal.AddDate(0, 0, 1)
	}

	geo := geography(in.Geography)
	guidance, ok := channelGuidance[channel]
	if !ok {
		guidance = "Contact inside local business hours"
	}
	return &TimingResult{
		OptimalTime: optimal,
		Timezone:    tz,
		CulturalConsiderations: map[string]any{
			"geography":          geo,
			"business_hours":     formatHours(hours),
			"religious_factors":  culturalFactors.ReligiousConsiderations,
			"festival_awareness": culturalFactors.FestivalAwareness,
		},
		ChannelGuidance: guidance,
		Recommendations: []string{
			"Send " + channel + " at " + optimal.Format("15:04") + " local time",
			"Avoid religious observance times",
			"Consider local festivals and holidays",
			"Respect weekend preferences",
		},
	}, nil
}

func formatHours(h BusinessHours) string {
	return time.Date(0, 1, 1, h.Start, 0, 0, 0, time.UTC).Format("15:04") + " - " +
		time.Date(0, 1, 1, h.End, 0, 0, 0, time.UTC).Format("15:04")
}

// Predictions is the behavior outlook of a customer.
type Predictions struct {
	ChurnRisk            ChurnRisk            `json:"churn_risk"`
	UpsellOpportunity    UpsellOpportunity    `json:"upsell_opportunity"`
	EngagementLikelihood EngagementLikelihood `json:"engagement_likelihood"`
	LifetimeValue        LifetimeValue        `json:"lifetime_value"`
}

// ChurnRisk estimates how likely a customer is to leave.
type ChurnRisk struct {
	Probability        float64  `json:"probability"`
	RiskLevel          string   `json:"risk_level"`
	Factors            []string `json:"factors"`
	RecommendedActions []string `json:"recommended_actions"`
}

// UpsellOpportunity estimates readiness to buy more.
type UpsellOpportunity struct {
	Probability         float64  `json:"probability"`
	Confidence          string   `json:"confidence"`
	RecommendedProducts []string `json:"recommended_products"`
	OptimalTiming       string   `json:"optimal_timing"`
	CulturalApproach    string   `json:"cultural_approach"`
}

// EngagementLikelihood rates each channel for the customer.
type EngagementLikelihood struct {
	Channels       map[string]float64 `json:"channels"`
	OptimalChannel string             `json:"optimal_channel"`
	BestTime       string             `json:"best_time"`
}

// LifetimeValue projects customer value.
type LifetimeValue struct {
	PredictedValue       float64    `json:"predicted_value"`
	ConfidenceInterval   [2]float64 `json:"confidence_interval"`
	GrowthPotential      string     `json:"growth_potential"`
	RetentionProbability float64    `json:"retention_probability"`
}

// PredictionModelVersion identifies the heuristics behind predict.
const PredictionModelVersion = "2.1.0"

var channelBaseline = map[string]float64{
	domain.ChannelEmail:    0.78,
	domain.ChannelWhatsApp: 0.89,
	domain.ChannelSMS:      0.65,
	domain.ChannelVoice:    0.72,
}

// predict derives the outlook from engagement, contact recency, status and market.
func predict(c *contact, now time.Time) *Predictions {
	engagement := float64(max(0, min(c.EngagementScore, 100)))
	idle := 30.0
	if c.LastContactAt != nil {
		idle = math.Max(0, now.Sub(*c.LastContactAt).Hours()/24)
	}

	churn := (100-engagement)/100*0.6 + math.Min(idle, 90)/90*0.4
	churn = round2(math.Max(0.05, math.Min(churn, 0.95)))
	p := &Predictions{}
	p.ChurnRisk = ChurnRisk{
		Probability: churn,
		Factors:     []string{"recent_engagement", "contact_recency", "engagement_score"},
	}
	switch {
	case churn >= 0.6:
		p.ChurnRisk.RiskLevel = "high"
		p.ChurnRisk.RecommendedActions = []string{"Personal call from account manager", "Offer tailored assistance", "Review recent support history"}
	case churn >= 0.3:
		p.ChurnRisk.RiskLevel = "medium"
		p.ChurnRisk.RecommendedActions = []string{"Send a check-in message", "Share relevant success stories", "Proactive check-in in 14 days"}
	default:
		p.ChurnRisk.RiskLevel = "low"
		p.ChurnRisk.RecommendedActions = []string{"Continue regular engagement", "Monitor usage patterns", "Proactive check-in in 30 days"}
	}

	upsell := engagement / 100 * 0.7
	if c.Status == domain.CustomerActive {
		upsell += 0.2
	}
	upsell = round2(math.Min(upsell, 0.95))
	confidence := "low"
	switch {
	case upsell >= 0.6:
		confidence = "high"
	case upsell >= 0.35:
		confidence = "medium"
	}
	geo := geography(c.Country)
	approach := "direct_business"
	if geo == "sri_lanka" || geo == "india" {
		approach = "relationship_building"
	}
	p.UpsellOpportunity = UpsellOpportunity{
		Probability:         upsell,
		Confidence:          confidence,
		RecommendedProducts: []string{"premium_features", "additional_users", "advanced_analytics"},
		OptimalTiming:       "2-3 weeks",
		CulturalApproach:    approach,
	}

	channels := make(map[string]float64, len(channelBaseline))
	preferred := preferredChannels(geo)
	best, bestScore := "", -1.0
	for ch, base := range channelBaseline {
		score := base
		if len(preferred) > 0 && preferred[0] == ch {
			score += 0.05
		}
		score = round2(math.Min(score*(0.8+engagement/500), 0.99))
		channels[ch] = score
		if score > bestScore || (score == bestScore && ch < best) {
			best, bestScore = ch, score
		}
	}
	p.EngagementLikelihood = EngagementLikelihood{Channels: channels, OptimalChannel: best, BestTime: "10:00-12:00 local time"}

	value := crm.LifetimeValue(c.CompanySize, int(engagement), c.Country)
	growth := "low"
	switch {
	case engagement >= 70:
		growth = "high"
	case engagement >= 40:
		growth = "medium"
	}
	p.LifetimeValue = LifetimeValue{
		PredictedValue:       value,
		ConfidenceInterval:   [2]float64{round2(value * 0.8), round2(value * 1.2)},
		GrowthPotential:      growth,
		RetentionProbability: round2(1 - churn),
	}
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
