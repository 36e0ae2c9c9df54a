// README: Prompt builders for emergency analysis and shortage forecasts.
package insight

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/request"
)

// historyWindow caps how many past requests a forecast prompt carries.
const historyWindow = 50

var (
	analysisFields = []string{"criticality", "fulfillmentPrediction", "recommendation"}
	forecastFields = []string{"predictedShortageGroup", "riskLevel", "growthForecast", "campaignIdea"}
)

type requestSummary struct {
	PatientName    string `json:"patient_name"`
	BloodGroup     string `json:"blood_group"`
	Hospital       string `json:"hospital"`
	Location       string `json:"location"`
	Urgency        string `json:"urgency"`
	RequiredWithin string `json:"required_within"`
	Status         string `json:"status"`
}

func emergencyPrompt(req *request.Request, compatibleAvailable int) Prompt {
	details, _ := json.Marshal(requestSummary{
		PatientName:    req.PatientName,
		BloodGroup:     string(req.BloodGroup),
		Hospital:       req.Hospital,
		Location:       req.Location,
		Urgency:        string(req.Urgency),
		RequiredWithin: req.RequiredWithin,
		Status:         string(req.Status),
	})
	return Prompt{
		Text: fmt.Sprintf(`Analyze this LifeLink emergency blood request:
Request Details: %s
Available compatible donors in network: %d

Provide:
1. Criticality assessment.
2. Fulfillment prediction.
3. Short action recommendation.`, details, compatibleAvailable),
		Fields: analysisFields,
	}
}

type historyPoint struct {
	BloodGroup string    `json:"bg"`
	Timestamp  time.Time `json:"ts"`
}

func shortagePrompt(requests []*request.Request, donors []*donor.Donor) Prompt {
	inventory := map[string]int{}
	for _, d := range donors {
		inventory[string(d.BloodGroup)]++
	}

	ordered := make([]*request.Request, len(requests))
	copy(ordered, requests)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })
	if len(ordered) > historyWindow {
		ordered = ordered[len(ordered)-historyWindow:]
	}
	history := make([]historyPoint, len(ordered))
	for i, r := range ordered {
		history[i] = historyPoint{BloodGroup: string(r.BloodGroup), Timestamp: r.CreatedAt}
	}

	inv, _ := json.Marshal(inventory)
	hist, _ := json.Marshal(history)
	return Prompt{
		Text: fmt.Sprintf(`Analyze LifeLink medical emergency data:
Inventory: %s
History: %s

Task:
1. Predict which blood group will be in critical shortage next month.
2. Suggest an awareness campaign title.
3. Rate regional risk (Low, Moderate, Critical).
4. Give a one-line demand growth forecast.`, inv, hist),
		Fields: forecastFields,
	}
}
