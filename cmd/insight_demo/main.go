// README: Runs one emergency analysis and one shortage forecast against a live provider.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/insight"
	"lifelink/internal/modules/request"
	"lifelink/internal/types"
)

func main() {
	ctx := context.Background()

	var provider insight.Provider
	switch {
	case os.Getenv("GEMINI_API_KEY") != "":
		p, err := insight.NewGeminiProvider(ctx, os.Getenv("GEMINI_API_KEY"))
		if err != nil {
			log.Fatalf("initialising gemini: %v", err)
		}
		defer p.Close()
		provider = p
	case os.Getenv("OPENAI_API_KEY") != "":
		provider = insight.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), "")
	default:
		log.Fatal("set GEMINI_API_KEY or OPENAI_API_KEY")
	}

	svc := insight.NewService(provider, insight.NewMemoryQuota(insight.DefaultMonthlyQuota), insight.WithTimeout(30*time.Second))

	req := &request.Request{
		ID:             "req_demo",
		PatientName:    "Jordan Lee",
		BloodGroup:     types.ONeg,
		Hospital:       "City General Medical Center",
		Location:       "Downtown SF",
		Urgency:        request.UrgencyCritical,
		RequiredWithin: "2 hours",
		Status:         request.StatusPending,
		CreatedAt:      time.Now(),
	}
	fmt.Printf("Provider: %s\n", provider.Name())
	show("Emergency analysis", svc.AnalyzeEmergency(ctx, "demo", req, 3))

	donors := []*donor.Donor{
		{ID: "d1", BloodGroup: types.OPos, Available: true, Role: donor.RoleDonor},
		{ID: "d2", BloodGroup: types.APos, Available: true, Role: donor.RoleDonor},
		{ID: "d3", BloodGroup: types.ONeg, Available: false, Role: donor.RoleDonor},
	}
	show("Shortage forecast", svc.PredictShortages(ctx, "demo", []*request.Request{req}, donors))
}

func show(title string, v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Printf("%s:\n%s\n", title, out)
}
