package medical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifelink/internal/identity"
	"lifelink/internal/types"
)

const (
	defaultBloodPressure = "N/A"
	defaultVerifier      = "Authorized Medical Staff"
)

var ErrInvalidHistory = errors.New("invalid medical history")

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type AppendCommand struct {
	// ID keeps an existing record code; empty means a fresh MH- code.
	ID                types.ID
	DonorID           types.ID
	DonorName         string
	BloodGroup        types.BloodGroup
	HemoglobinLevel   string
	BloodPressure     string
	Weight            string
	EligibilityStatus EligibilityStatus
	MedicalNotes      string
	TestDate          time.Time
	HospitalName      string
	HospitalID        types.ID
	VerifiedBy        string
}

// Append stores a new vault record.
func (s *Service) Append(ctx context.Context, cmd AppendCommand) (*History, error) {
	if cmd.DonorID == "" || cmd.HospitalID == "" {
		return nil, fmt.Errorf("%w: donor and hospital are required", ErrInvalidHistory)
	}
	id := cmd.ID
	if id == "" {
		id = types.ID(types.ShortCode("MH"))
	}
	now := s.now().UTC()
	h := &History{
		ID:                id,
		DonorID:           cmd.DonorID,
		DonorName:         cmd.DonorName,
		BloodGroup:        cmd.BloodGroup,
		HemoglobinLevel:   cmd.HemoglobinLevel,
		BloodPressure:     orDefault(cmd.BloodPressure, defaultBloodPressure),
		Weight:            cmd.Weight,
		EligibilityStatus: cmd.EligibilityStatus,
		MedicalNotes:      cmd.MedicalNotes,
		TestDate:          cmd.TestDate,
		HospitalName:      cmd.HospitalName,
		HospitalID:        cmd.HospitalID,
		VerifiedBy:        orDefault(cmd.VerifiedBy, defaultVerifier),
		CreatedAt:         now,
	}
	if h.EligibilityStatus == "" {
		h.EligibilityStatus = StatusEligible
	}
	if h.TestDate.IsZero() {
		h.TestDate = now
	}
	if err := s.store.Append(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ListFor shows admins everything, hospitals the records they verified and
// donors their own. A nil principal sees nothing.
func (s *Service) ListFor(ctx context.Context, p identity.Principal) ([]*History, error) {
	var scope Scope
	switch v := p.(type) {
	case identity.Admin:
	case identity.Hospital:
		scope.HospitalID = v.HospitalID
	case identity.Donor:
		scope.DonorID = v.DonorID
	default:
		return []*History{}, nil
	}
	return s.store.List(ctx, scope)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
