// README: AI enrichment results with static fallbacks.
package insight

import "errors"

// ErrQuotaExhausted is returned when a caller has no calls left this month.
var ErrQuotaExhausted = errors.New("monthly insight quota exhausted")

// DefaultMonthlyQuota is the number of provider calls granted per caller per month.
const DefaultMonthlyQuota = 100

type EmergencyAnalysis struct {
	Criticality           string `json:"criticality"`
	FulfillmentPrediction string `json:"fulfillment_prediction"`
	Recommendation        string `json:"recommendation"`
	Fallback              bool   `json:"fallback"`
}

type ShortageForecast struct {
	PredictedShortageGroup string `json:"predicted_shortage_group"`
	RiskLevel              string `json:"risk_level"`
	GrowthForecast         string `json:"growth_forecast"`
	CampaignIdea           string `json:"campaign_idea"`
	Fallback               bool   `json:"fallback"`
}

func fallbackAnalysis() EmergencyAnalysis {
	return EmergencyAnalysis{
		Criticality:           "Standard Emergency Protocol",
		FulfillmentPrediction: "Local network scan active",
		Recommendation:        "Proceed with standard broadcast",
		Fallback:              true,
	}
}

func fallbackForecast() ShortageForecast {
	return ShortageForecast{
		PredictedShortageGroup: "O-",
		RiskLevel:              "Moderate",
		GrowthForecast:         "Forecast unavailable, using network baseline",
		CampaignIdea:           "Every Drop Counts",
		Fallback:               true,
	}
}

// Provider wire shapes use the camelCase keys the prompts ask for.
type analysisReply struct {
	Criticality           string `json:"criticality"`
	FulfillmentPrediction string `json:"fulfillmentPrediction"`
	Recommendation        string `json:"recommendation"`
}

type forecastReply struct {
	PredictedShortageGroup string `json:"predictedShortageGroup"`
	RiskLevel              string `json:"riskLevel"`
	GrowthForecast         string `json:"growthForecast"`
	CampaignIdea           string `json:"campaignIdea"`
}
