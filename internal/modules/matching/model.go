// README: Broadcast results and smart-match rankings for emergency requests.
package matching

import (
	"time"

	"lifelink/internal/modules/donor"
	"lifelink/internal/types"
)

const (
	// DefaultRadiusKm bounds broadcasts when the caller passes no radius.
	DefaultRadiusKm = 25.0
	// DefaultSmartMatchCount is how many ranked donors a hospital sees.
	DefaultSmartMatchCount = 3
	// dispatchTTL outlives any realistic request lifetime.
	dispatchTTL = 7 * 24 * time.Hour
)

// BroadcastResult reports one fan-out. MatchedCount counts persisted
// notifications only.
type BroadcastResult struct {
	MatchedCount     int            `json:"matched_count"`
	NotifiedDonorIDs []types.ID     `json:"notified_donor_ids"`
	Matched          []*donor.Donor `json:"-"`
}

type SmartMatch struct {
	Donor      *donor.Donor `json:"donor"`
	Score      int          `json:"score"`
	DistanceKm float64      `json:"distance_km"`
}
