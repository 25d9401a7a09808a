package crm

import "math"

// ScoreInput holds the signals lead scoring looks at.
type ScoreInput struct {
	CompanySize      string `json:"company_size"`
	EmailOpened      bool   `json:"email_opened"`
	WebsiteVisits    int    `json:"website_visits"`
	SocialEngagement bool   `json:"social_engagement"`
	Source           string `json:"source"`
	Country          string `json:"country"`
	BudgetRange      string `json:"budget_range"`
}

var (
	companySizePoints = map[string]int{"enterprise": 30, "medium": 20, "small": 10}
	sourcePoints      = map[string]int{"referral": 25, "website": 15, "social_media": 12}
	budgetPoints      = map[string]int{"high": 20, "medium": 10, "low": 5}
	focusMarkets      = map[string]bool{"IN": true, "LK": true, "PK": true, "BD": true}
)

// LeadScore rates a lead from 0 to 100 on firmographics, engagement, source,
// market and budget.
func LeadScore(in ScoreInput) int {
	score := companySizePoints[in.CompanySize]
	if in.EmailOpened {
		score += 5
	}
	if in.WebsiteVisits > 3 {
		score += 10
	}
	if in.SocialEngagement {
		score += 8
	}
	score += sourcePoints[in.Source]
	if focusMarkets[in.Country] {
		score += 15
	}
	score += budgetPoints[in.BudgetRange]
	return min(score, 100)
}

// Temperature buckets a lead score.
func Temperature(score int) string {
	switch {
	case score >= 80:
		return "hot"
	case score >= 60:
		return "warm"
	default:
		return "cold"
	}
}

const baseLifetimeValue = 1000.0

var marketMultipliers = map[string]float64{
	"IN": 1.2,
	"LK": 1.0,
	"PK": 0.9,
	"BD": 0.8,
	"NP": 0.7,
	"MM": 0.6,
}

// LifetimeValue predicts customer lifetime value in USD from company size,
// engagement (50 is neutral) and market. An empty country counts as LK.
func LifetimeValue(companySize string, engagement int, country string) float64 {
	value := baseLifetimeValue
	switch companySize {
	case "enterprise":
		value *= 5
	case "medium":
		value *= 2.5
	}
	if country == "" {
		country = "LK"
	}
	market, ok := marketMultipliers[country]
	if !ok {
		market = 1.0
	}
	clv := value * (float64(engagement) / 50) * market
	return math.Round(clv*100) / 100
}
