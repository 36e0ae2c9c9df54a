package matching

import (
	"math"
	"sort"
	"time"

	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/location"
	"lifelink/internal/modules/request"
)

// Score weights; they sum to one so the result stays within 0..100.
const (
	weightDistance    = 0.4
	weightEligibility = 0.2
	weightReliability = 0.2
	weightResponse    = 0.2
)

func distanceScore(km float64) float64 {
	switch {
	case km <= 5:
		return 100
	case km <= 10:
		return 80
	case km <= 25:
		return 60
	default:
		// NaN lands here too.
		return 40
	}
}

// eligibilityScore is strict: a donor exactly one rest period out scores 0
// here even though CheckEligibility already reports them eligible.
func eligibilityScore(d *donor.Donor, now time.Time) float64 {
	if d.LastDonation == nil || now.Sub(*d.LastDonation) > donor.RestPeriod {
		return 100
	}
	return 0
}

// SmartScore rates how well d suits req on a 0..100 scale.
func SmartScore(d *donor.Donor, req *request.Request, now time.Time) int {
	return scoreAt(d, location.Distance(req.Position, d.Position), now)
}

func scoreAt(d *donor.Donor, km float64, now time.Time) int {
	total := weightDistance*distanceScore(km) +
		weightEligibility*eligibilityScore(d, now) +
		weightReliability*float64(d.ReliabilityScore) +
		weightResponse*float64(d.ResponseRate)
	return int(math.Round(total))
}

// RankSmartMatches orders donors by score, then distance, then id, and keeps
// the first n. n <= 0 keeps all of them.
func RankSmartMatches(donors []*donor.Donor, req *request.Request, now time.Time, n int) []SmartMatch {
	out := make([]SmartMatch, 0, len(donors))
	for _, d := range donors {
		km := location.Distance(req.Position, d.Position)
		out = append(out, SmartMatch{Donor: d, Score: scoreAt(d, km, now), DistanceKm: km})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DistanceKm != b.DistanceKm {
			return lessDistance(a.DistanceKm, b.DistanceKm)
		}
		return a.Donor.ID < b.Donor.ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// lessDistance sorts NaN after every real distance.
func lessDistance(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	}
	return a < b
}
