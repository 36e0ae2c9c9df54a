// README: ABO/Rh blood group enumeration.
package types

import (
	"errors"
	"strings"
)

type BloodGroup string

const (
	APos  BloodGroup = "A+"
	ANeg  BloodGroup = "A-"
	BPos  BloodGroup = "B+"
	BNeg  BloodGroup = "B-"
	OPos  BloodGroup = "O+"
	ONeg  BloodGroup = "O-"
	ABPos BloodGroup = "AB+"
	ABNeg BloodGroup = "AB-"
)

// BloodGroups lists every supported group in display order.
var BloodGroups = []BloodGroup{APos, ANeg, BPos, BNeg, OPos, ONeg, ABPos, ABNeg}

var ErrUnknownBloodGroup = errors.New("unknown blood group")

func (b BloodGroup) Valid() bool {
	for _, g := range BloodGroups {
		if g == b {
			return true
		}
	}
	return false
}

// ParseBloodGroup accepts any letter case and surrounding whitespace.
func ParseBloodGroup(s string) (BloodGroup, error) {
	b := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", ErrUnknownBloodGroup
	}
	return b, nil
}
