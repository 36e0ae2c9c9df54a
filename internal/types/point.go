// README: Geographic coordinate in decimal degrees.
package types

import (
	"fmt"
	"strconv"
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the point as "lat,lng", the form accepted by map APIs.
func (p Point) String() string {
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(p.Lat, 'f', 6, 64),
		strconv.FormatFloat(p.Lng, 'f', 6, 64),
	)
}

// IsZero reports whether both coordinates are unset.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}
