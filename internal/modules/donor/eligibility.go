// README: 90-day rest period between donations.
package donor

import (
	"math"
	"time"
)

// RestPeriod is the minimum interval between two donations.
const RestPeriod = 90 * 24 * time.Hour

type Eligibility struct {
	IsEligible bool `json:"is_eligible"`
	DaysLeft   int  `json:"days_left"`
}

// CheckEligibility decides whether a donor whose last donation was at last
// may donate again at now. A nil last donation is always eligible.
func CheckEligibility(last *time.Time, now time.Time) Eligibility {
	if last == nil {
		return Eligibility{IsEligible: true}
	}
	next := last.Add(RestPeriod)
	if !now.Before(next) {
		return Eligibility{IsEligible: true}
	}
	days := int(math.Ceil(next.Sub(now).Hours() / 24))
	return Eligibility{IsEligible: false, DaysLeft: days}
}
