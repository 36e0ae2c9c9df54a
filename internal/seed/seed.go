// README: Demo directory: one donor, one operator, four hospitals and two vault records.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/medical"
	"lifelink/internal/types"
)

const sentinelDonor types.ID = "donor_1"

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

func seedDonors() []*donor.Donor {
	return []*donor.Donor{
		{
			ID:               sentinelDonor,
			Name:             "Alex Rivera",
			Age:              28,
			Gender:           "Male",
			BloodGroup:       types.OPos,
			Phone:            "555-0101",
			Email:            "alex@example.com",
			Password:         "password",
			City:             "San Francisco",
			State:            "CA",
			Position:         types.Point{Lat: 37.7749, Lng: -122.4194},
			LastDonation:     ptr(day("2023-11-15")),
			Available:        true,
			IsVerified:       true,
			ReliabilityScore: 95,
			ResponseRate:     88,
			Role:             donor.RoleDonor,
			DonationHistory:  []donor.DonationRecord{},
			TotalDonations:   4,
		},
		{
			ID:               "admin_1",
			Name:             "System Root",
			Age:              35,
			Gender:           "Other",
			BloodGroup:       types.ABPos,
			Phone:            "1234567890",
			Email:            "admin@lifelink.org",
			Password:         "admin",
			City:             "Global HQ",
			State:            "NY",
			Position:         types.Point{Lat: 40.7128, Lng: -74.0060},
			Available:        true,
			IsVerified:       true,
			ReliabilityScore: 100,
			ResponseRate:     100,
			Role:             donor.RoleAdmin,
			DonationHistory:  []donor.DonationRecord{},
		},
	}
}

func seedHospitals() []*donor.Hospital {
	return []*donor.Hospital{
		{ID: "hosp_1", Name: "City General Medical Center", Email: "ops@citygeneral.com", Password: "hospitaladmin",
			Location: "Downtown SF", Position: types.Point{Lat: 37.7833, Lng: -122.4167},
			ContactPerson: "Dr. Sarah Chen", Phone: "555-9000", Verified: true},
		{ID: "hosp_2", Name: "St. Mary's Medical Center", Email: "contact@stmarys.org", Password: "hospitaladmin",
			Location: "Hayes Valley, SF", Position: types.Point{Lat: 37.7740, Lng: -122.4312},
			ContactPerson: "Nurse James Miller", Phone: "555-8200", Verified: true},
		{ID: "hosp_3", Name: "UCSF Helen Diller Center", Email: "info@ucsf.edu", Password: "hospitaladmin",
			Location: "Mission Bay, SF", Position: types.Point{Lat: 37.7679, Lng: -122.3923},
			ContactPerson: "Protocol Officer Elena", Phone: "555-1234", Verified: true},
		{ID: "hosp_4", Name: "Zuckerberg General Hospital", Email: "admin@zsgh.org", Password: "hospitaladmin",
			Location: "Potrero Hill, SF", Position: types.Point{Lat: 37.7558, Lng: -122.4050},
			ContactPerson: "Emergency Desk", Phone: "555-4444", Verified: false},
	}
}

func seedHistory() []medical.AppendCommand {
	return []medical.AppendCommand{
		{
			ID:                "mh_1",
			DonorID:           sentinelDonor,
			DonorName:         "Alex Rivera",
			BloodGroup:        types.OPos,
			HemoglobinLevel:   "14.2",
			BloodPressure:     "120/80",
			Weight:            "72",
			EligibilityStatus: medical.StatusEligible,
			MedicalNotes:      "Stable hemoglobin, ready for next donation cycle.",
			TestDate:          day("2023-11-15"),
			HospitalName:      "City General Medical Center",
			HospitalID:        "hosp_1",
			VerifiedBy:        "Dr. Sarah Chen",
		},
		{
			ID:                "mh_2",
			DonorID:           sentinelDonor,
			DonorName:         "Alex Rivera",
			BloodGroup:        types.OPos,
			HemoglobinLevel:   "13.8",
			BloodPressure:     "118/78",
			Weight:            "71",
			EligibilityStatus: medical.StatusEligible,
			MedicalNotes:      "Routine screening complete.",
			TestDate:          day("2023-08-10"),
			HospitalName:      "City General Medical Center",
			HospitalID:        "hosp_1",
			VerifiedBy:        "Nurse Jack",
		},
	}
}

// Load fills an empty directory with the demo records. It does nothing when
// donor_1 already exists, so restarts against a persistent store are safe.
func Load(ctx context.Context, donors *donor.Service, vault *medical.Service, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	_, err := donors.GetDonor(ctx, sentinelDonor)
	switch {
	case err == nil:
		log.Debug("seed skipped, directory not empty")
		return nil
	case !errors.Is(err, donor.ErrNotFound):
		return fmt.Errorf("checking seed state: %w", err)
	}

	for _, h := range seedHospitals() {
		if err := donors.CreateHospital(ctx, h); err != nil && !errors.Is(err, donor.ErrDuplicateIdentity) {
			return fmt.Errorf("seeding hospital %s: %w", h.ID, err)
		}
	}
	for _, d := range seedDonors() {
		if err := donors.CreateDonor(ctx, d); err != nil && !errors.Is(err, donor.ErrDuplicateIdentity) {
			return fmt.Errorf("seeding donor %s: %w", d.ID, err)
		}
	}
	for _, cmd := range seedHistory() {
		if _, err := vault.Append(ctx, cmd); err != nil && !errors.Is(err, medical.ErrDuplicate) {
			return fmt.Errorf("seeding medical history %s: %w", cmd.ID, err)
		}
	}
	log.Info("seeded demo directory",
		zap.Int("hospitals", len(seedHospitals())),
		zap.Int("donors", len(seedDonors())))
	return nil
}
