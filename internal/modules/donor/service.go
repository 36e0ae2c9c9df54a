// README: Donor directory service: registration, patches, availability, donations, search.
package donor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"lifelink/internal/modules/location"
	"lifelink/internal/types"
	"lifelink/internal/validate"
)

var (
	ErrNotFound          = errors.New("donor not found")
	ErrDuplicateIdentity = errors.New("identity conflict")
	ErrInvalidDonor      = errors.New("invalid donor")
	ErrRestPeriodActive  = errors.New("donor is within the rest period")
)

type Service struct {
	store    Store
	validate *validate.Validator
	now      func() time.Time
}

func NewService(store Store, v *validate.Validator) *Service {
	if v == nil {
		v = validate.New()
	}
	return &Service{store: store, validate: v, now: time.Now}
}

// WithClock overrides the time source; used by tests and seeding.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type RegisterCommand struct {
	// ID, when set, is the caller's auth uid.
	ID         types.ID    `json:"-"`
	Name       string      `json:"name" validate:"required"`
	Age        int         `json:"age" validate:"min=18,max=65"`
	Gender     string      `json:"gender"`
	BloodGroup string      `json:"blood_group" validate:"required,bloodgroup"`
	Phone      string      `json:"phone" validate:"required"`
	Email      string      `json:"email" validate:"required,email"`
	Password   string      `json:"password" validate:"required,min=6"`
	City       string      `json:"city"`
	State      string      `json:"state"`
	Position   types.Point `json:"position"`
}

// Register creates a donor with the registration defaults.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Donor, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDonor, err)
	}
	if err := location.ValidPoint(cmd.Position); err != nil {
		return nil, err
	}
	bg, err := types.ParseBloodGroup(cmd.BloodGroup)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDonor, err)
	}
	d := &Donor{
		ID:               idOrNew(cmd.ID),
		Name:             strings.TrimSpace(cmd.Name),
		Age:              cmd.Age,
		Gender:           cmd.Gender,
		BloodGroup:       bg,
		Phone:            cmd.Phone,
		Email:            strings.TrimSpace(cmd.Email),
		Password:         cmd.Password,
		City:             cmd.City,
		State:            cmd.State,
		Position:         cmd.Position,
		Available:        true,
		IsVerified:       false,
		ReliabilityScore: DefaultReliabilityScore,
		ResponseRate:     DefaultResponseRate,
		Role:             RoleDonor,
		DonationHistory:  []DonationRecord{},
		CreatedAt:        s.now(),
	}
	if err := s.store.CreateDonor(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDonor stores a fully formed donor. Email uniqueness is
// case-insensitive; a conflict leaves the directory untouched.
func (s *Service) CreateDonor(ctx context.Context, d *Donor) error {
	if d == nil || d.Email == "" {
		return ErrInvalidDonor
	}
	if d.ID == "" {
		d.ID = types.NewID()
	}
	if d.Role == "" {
		d.Role = RoleDonor
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	if !inScoreRange(d.ReliabilityScore) || !inScoreRange(d.ResponseRate) {
		return ErrInvalidDonor
	}
	return s.store.CreateDonor(ctx, d)
}

func (s *Service) ListDonors(ctx context.Context) ([]*Donor, error) {
	return s.store.ListDonors(ctx, Filter{})
}

// AvailableDonors lists donors that can answer an emergency for bg.
func (s *Service) AvailableDonors(ctx context.Context, bg types.BloodGroup) ([]*Donor, error) {
	return s.store.ListDonors(ctx, Filter{Role: RoleDonor, AvailableOnly: true, BloodGroup: bg})
}

func (s *Service) GetDonor(ctx context.Context, id types.ID) (*Donor, error) {
	return s.store.GetDonor(ctx, id)
}

// UpdateDonor applies a partial patch. A missing id is a no-op and reports
// found=false without an error. Switching availability on goes through the
// same rest-period gate as SetAvailability.
func (s *Service) UpdateDonor(ctx context.Context, id types.ID, p Patch) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	if p.Position != nil {
		if err := location.ValidPoint(*p.Position); err != nil {
			return false, err
		}
	}
	now := s.now()
	return s.store.UpdateDonor(ctx, id, func(d *Donor) error {
		if p.Available != nil && *p.Available && !CheckEligibility(d.LastDonation, now).IsEligible {
			return ErrRestPeriodActive
		}
		p.Apply(d)
		return nil
	})
}

// SetAvailability toggles the donor's availability flag. Switching on is
// refused while the rest period is running.
func (s *Service) SetAvailability(ctx context.Context, id types.ID, available bool) (bool, error) {
	now := s.now()
	return s.store.UpdateDonor(ctx, id, func(d *Donor) error {
		if available && !CheckEligibility(d.LastDonation, now).IsEligible {
			return ErrRestPeriodActive
		}
		d.Available = available
		return nil
	})
}

func (s *Service) Eligibility(ctx context.Context, id types.ID) (Eligibility, error) {
	d, err := s.store.GetDonor(ctx, id)
	if err != nil {
		return Eligibility{}, err
	}
	return CheckEligibility(d.LastDonation, s.now()), nil
}

type RecordDonationCommand struct {
	DonorID      types.ID
	Date         time.Time
	Hospital     string
	HospitalID   types.ID
	Notes        string
	MedicalStats *MedicalStats
}

// RecordDonation books a completed donation on the donor: one more donation,
// a history entry with a fresh certificate, a reliability bonus capped at
// MaxScore and the last donation date moved to the completion date.
func (s *Service) RecordDonation(ctx context.Context, cmd RecordDonationCommand) (*Donor, error) {
	date := cmd.Date
	if date.IsZero() {
		date = s.now()
	}
	var updated *Donor
	found, err := s.store.UpdateDonor(ctx, cmd.DonorID, func(d *Donor) error {
		rec := DonationRecord{
			ID:            types.NewID(),
			Date:          date,
			Hospital:      cmd.Hospital,
			HospitalID:    cmd.HospitalID,
			CertificateID: types.ShortCode("CERT"),
			Notes:         cmd.Notes,
			MedicalStats:  cmd.MedicalStats,
		}
		d.TotalDonations++
		d.DonationHistory = append(d.DonationHistory, rec)
		d.ReliabilityScore = min(MaxScore, d.ReliabilityScore+ReliabilityBonus)
		d.LastDonation = &date
		updated = d.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return updated, nil
}

type SearchQuery struct {
	BloodGroup   types.BloodGroup
	VerifiedOnly bool
	Origin       *types.Point
	RadiusKm     float64
}

type SearchResult struct {
	Donor      *Donor   `json:"donor"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Search lists available donors. With an origin the results carry their
// distance, are limited to RadiusKm when it is positive and are sorted by
// distance; without one they keep directory order.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if q.BloodGroup != "" && !q.BloodGroup.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDonor, types.ErrUnknownBloodGroup)
	}
	if q.Origin != nil {
		if err := location.ValidPoint(*q.Origin); err != nil {
			return nil, err
		}
	}
	donors, err := s.store.ListDonors(ctx, Filter{
		Role:          RoleDonor,
		AvailableOnly: true,
		VerifiedOnly:  q.VerifiedOnly,
		BloodGroup:    q.BloodGroup,
	})
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(donors))
	for _, d := range donors {
		if q.Origin == nil {
			out = append(out, SearchResult{Donor: d})
			continue
		}
		dist := location.Distance(*q.Origin, d.Position)
		if math.IsNaN(dist) {
			continue
		}
		if q.RadiusKm > 0 && dist > q.RadiusKm {
			continue
		}
		out = append(out, SearchResult{Donor: d, DistanceKm: &dist})
	}
	if q.Origin != nil {
		location.SortByDistance(out, func(r SearchResult) float64 { return *r.DistanceKm })
	}
	return out, nil
}

type RegisterHospitalCommand struct {
	ID            types.ID    `json:"-"`
	Name          string      `json:"name" validate:"required"`
	Email         string      `json:"email" validate:"required,email"`
	Password      string      `json:"password" validate:"required,min=6"`
	Location      string      `json:"location" validate:"required"`
	Position      types.Point `json:"position"`
	ContactPerson string      `json:"contact_person" validate:"required"`
	Phone         string      `json:"phone" validate:"required"`
}

func (s *Service) RegisterHospital(ctx context.Context, cmd RegisterHospitalCommand) (*Hospital, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDonor, err)
	}
	if err := location.ValidPoint(cmd.Position); err != nil {
		return nil, err
	}
	h := &Hospital{
		ID:            idOrNew(cmd.ID),
		Name:          strings.TrimSpace(cmd.Name),
		Email:         strings.TrimSpace(cmd.Email),
		Password:      cmd.Password,
		Location:      cmd.Location,
		Position:      cmd.Position,
		ContactPerson: cmd.ContactPerson,
		Phone:         cmd.Phone,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateHospital(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) CreateHospital(ctx context.Context, h *Hospital) error {
	if h == nil || h.Email == "" {
		return ErrInvalidDonor
	}
	if h.ID == "" {
		h.ID = types.NewID()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	return s.store.CreateHospital(ctx, h)
}

func (s *Service) ListHospitals(ctx context.Context) ([]*Hospital, error) {
	return s.store.ListHospitals(ctx)
}

func (s *Service) GetHospital(ctx context.Context, id types.ID) (*Hospital, error) {
	return s.store.GetHospital(ctx, id)
}

func idOrNew(id types.ID) types.ID {
	if id == "" {
		return types.NewID()
	}
	return id
}
