// README: Donor and hospital records held by the directory.
package donor

import (
	"time"

	"lifelink/internal/types"
)

type Role string

const (
	RoleDonor Role = "donor"
	RoleAdmin Role = "admin"
)

type HealthStatus string

const (
	HealthNormal         HealthStatus = "Normal"
	HealthNeedsAttention HealthStatus = "Needs Attention"
	HealthExcellent      HealthStatus = "Excellent"
)

// Registration defaults.
const (
	DefaultReliabilityScore = 85
	DefaultResponseRate     = 100
	MinAge                  = 18
	MaxAge                  = 65
	ReliabilityBonus        = 5
	MaxScore                = 100
)

type MedicalStats struct {
	Hemoglobin    string       `json:"hemoglobin"`
	BloodPressure string       `json:"blood_pressure"`
	Pulse         string       `json:"pulse"`
	Weight        string       `json:"weight"`
	Status        HealthStatus `json:"status"`
}

type DonationRecord struct {
	ID            types.ID      `json:"id"`
	Date          time.Time     `json:"date"`
	Hospital      string        `json:"hospital"`
	HospitalID    types.ID      `json:"hospital_id"`
	CertificateID string        `json:"certificate_id"`
	Notes         string        `json:"notes,omitempty"`
	MedicalStats  *MedicalStats `json:"medical_stats,omitempty"`
}

type Donor struct {
	ID               types.ID         `json:"id"`
	Name             string           `json:"name"`
	Age              int              `json:"age"`
	Gender           string           `json:"gender"`
	BloodGroup       types.BloodGroup `json:"blood_group"`
	Phone            string           `json:"phone"`
	Email            string           `json:"email"`
	Password         string           `json:"-"`
	City             string           `json:"city"`
	State            string           `json:"state"`
	Position         types.Point      `json:"position"`
	LastDonation     *time.Time       `json:"last_donation,omitempty"`
	Available        bool             `json:"available"`
	IsVerified       bool             `json:"is_verified"`
	ReliabilityScore int              `json:"reliability_score"`
	ResponseRate     int              `json:"response_rate"`
	Role             Role             `json:"role"`
	DonationHistory  []DonationRecord `json:"donation_history"`
	TotalDonations   int              `json:"total_donations"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Clone returns a deep copy that shares no mutable state with d.
func (d *Donor) Clone() *Donor {
	if d == nil {
		return nil
	}
	c := *d
	if d.LastDonation != nil {
		t := *d.LastDonation
		c.LastDonation = &t
	}
	if d.DonationHistory != nil {
		c.DonationHistory = make([]DonationRecord, len(d.DonationHistory))
		for i, r := range d.DonationHistory {
			if r.MedicalStats != nil {
				ms := *r.MedicalStats
				r.MedicalStats = &ms
			}
			c.DonationHistory[i] = r
		}
	}
	return &c
}

type Hospital struct {
	ID            types.ID    `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Password      string      `json:"-"`
	Location      string      `json:"location"`
	Position      types.Point `json:"position"`
	ContactPerson string      `json:"contact_person"`
	Phone         string      `json:"phone"`
	Verified      bool        `json:"verified"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (h *Hospital) Clone() *Hospital {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// Patch is a partial donor update; nil fields are left untouched.
type Patch struct {
	Name             *string           `json:"name"`
	Age              *int              `json:"age"`
	Gender           *string           `json:"gender"`
	BloodGroup       *types.BloodGroup `json:"blood_group"`
	Phone            *string           `json:"phone"`
	City             *string           `json:"city"`
	State            *string           `json:"state"`
	Position         *types.Point      `json:"position"`
	Available        *bool             `json:"available"`
	IsVerified       *bool             `json:"is_verified"`
	ReliabilityScore *int              `json:"reliability_score"`
	ResponseRate     *int              `json:"response_rate"`
}

// Validate rejects values that would break donor invariants.
func (p Patch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return ErrInvalidDonor
	}
	if p.Age != nil && (*p.Age < MinAge || *p.Age > MaxAge) {
		return ErrInvalidDonor
	}
	if p.BloodGroup != nil && !p.BloodGroup.Valid() {
		return ErrInvalidDonor
	}
	if p.ReliabilityScore != nil && !inScoreRange(*p.ReliabilityScore) {
		return ErrInvalidDonor
	}
	if p.ResponseRate != nil && !inScoreRange(*p.ResponseRate) {
		return ErrInvalidDonor
	}
	return nil
}

// Apply copies every set field onto d. Call Validate first.
func (p Patch) Apply(d *Donor) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Age != nil {
		d.Age = *p.Age
	}
	if p.Gender != nil {
		d.Gender = *p.Gender
	}
	if p.BloodGroup != nil {
		d.BloodGroup = *p.BloodGroup
	}
	if p.Phone != nil {
		d.Phone = *p.Phone
	}
	if p.City != nil {
		d.City = *p.City
	}
	if p.State != nil {
		d.State = *p.State
	}
	if p.Position != nil {
		d.Position = *p.Position
	}
	if p.Available != nil {
		d.Available = *p.Available
	}
	if p.IsVerified != nil {
		d.IsVerified = *p.IsVerified
	}
	if p.ReliabilityScore != nil {
		d.ReliabilityScore = *p.ReliabilityScore
	}
	if p.ResponseRate != nil {
		d.ResponseRate = *p.ResponseRate
	}
}

func inScoreRange(v int) bool {
	return v >= 0 && v <= MaxScore
}
