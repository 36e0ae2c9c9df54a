// README: Medical history vault records appended when a donation completes.
package medical

import (
	"time"

	"lifelink/internal/types"
)

type EligibilityStatus string

const (
	StatusEligible    EligibilityStatus = "Eligible"
	StatusNotEligible EligibilityStatus = "Not Eligible"
)

// History is immutable once appended.
type History struct {
	ID                types.ID          `json:"id"`
	DonorID           types.ID          `json:"donor_id"`
	DonorName         string            `json:"donor_name"`
	BloodGroup        types.BloodGroup  `json:"blood_group"`
	HemoglobinLevel   string            `json:"hemoglobin_level"`
	BloodPressure     string            `json:"blood_pressure"`
	Weight            string            `json:"weight"`
	EligibilityStatus EligibilityStatus `json:"eligibility_status"`
	MedicalNotes      string            `json:"medical_notes"`
	TestDate          time.Time         `json:"test_date"`
	HospitalName      string            `json:"hospital_name"`
	HospitalID        types.ID          `json:"hospital_id"`
	VerifiedBy        string            `json:"verified_by"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Scope narrows a listing; zero values match everything.
type Scope struct {
	DonorID    types.ID
	HospitalID types.ID
}

func (s Scope) match(h *History) bool {
	if s.DonorID != "" && h.DonorID != s.DonorID {
		return false
	}
	if s.HospitalID != "" && h.HospitalID != s.HospitalID {
		return false
	}
	return true
}
