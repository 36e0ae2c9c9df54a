// README: Emergency desk orchestrates submission, completion and tracking of requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifelink/internal/identity"
	"lifelink/internal/maps"
	"lifelink/internal/metrics"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/insight"
	"lifelink/internal/modules/location"
	"lifelink/internal/modules/matching"
	"lifelink/internal/modules/medical"
	"lifelink/internal/modules/request"
	"lifelink/internal/types"
)

// citySpeedKmh turns straight-line distance into an ETA when no router is set.
const citySpeedKmh = 30.0

var ErrNotAccepted = errors.New("request has no accepting donor")

type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type Router interface {
	Estimate(ctx context.Context, from, to types.Point) (maps.Estimate, error)
}

type Analyst interface {
	AnalyzeEmergency(ctx context.Context, caller string, req *request.Request, compatibleAvailable int) insight.EmergencyAnalysis
	PredictShortages(ctx context.Context, caller string, requests []*request.Request, donors []*donor.Donor) insight.ShortageForecast
}

// Desk wires the ledger, directory, broadcaster, vault and collaborators.
// Geocoder, Router and Analyst may be nil.
type Desk struct {
	requests   *request.Service
	donors     *donor.Service
	broadcast  *matching.Service
	vault      *medical.Service
	analyst    Analyst
	geocoder   Geocoder
	router     Router
	radiusKm   float64
	matchCount int
	metrics    *metrics.Recorder
	log        *zap.Logger
	now        func() time.Time
}

type Deps struct {
	Requests        *request.Service
	Donors          *donor.Service
	Broadcaster     *matching.Service
	Vault           *medical.Service
	Analyst         Analyst
	Geocoder        Geocoder
	Router          Router
	RadiusKm        float64
	SmartMatchCount int
	Metrics         *metrics.Recorder
	Log             *zap.Logger
}

func NewDesk(d Deps) *Desk {
	desk := &Desk{
		requests:   d.Requests,
		donors:     d.Donors,
		broadcast:  d.Broadcaster,
		vault:      d.Vault,
		analyst:    d.Analyst,
		geocoder:   d.Geocoder,
		router:     d.Router,
		radiusKm:   d.RadiusKm,
		matchCount: d.SmartMatchCount,
		metrics:    d.Metrics,
		log:        d.Log,
		now:        time.Now,
	}
	if desk.radiusKm <= 0 {
		desk.radiusKm = matching.DefaultRadiusKm
	}
	if desk.matchCount <= 0 {
		desk.matchCount = matching.DefaultSmartMatchCount
	}
	if desk.log == nil {
		desk.log = zap.NewNop()
	}
	return desk
}

type SubmitCommand struct {
	PatientName    string          `json:"patient_name"`
	BloodGroup     string          `json:"blood_group"`
	HospitalID     types.ID        `json:"hospital_id"`
	Contact        string          `json:"contact"`
	Location       string          `json:"location"`
	Position       *types.Point    `json:"position"`
	Urgency        request.Urgency `json:"urgency"`
	RequiredWithin string          `json:"required_within"`
	RadiusKm       float64         `json:"radius_km"`
}

type SubmitResult struct {
	Request          *request.Request          `json:"request"`
	MatchedCount     int                       `json:"matched_count"`
	NotifiedDonorIDs []types.ID                `json:"notified_donor_ids"`
	SmartMatches     []matching.SmartMatch     `json:"smart_matches"`
	Analysis         insight.EmergencyAnalysis `json:"analysis"`
}

// Submit raises a request for a hospital and broadcasts it. Hospitals always
// submit for themselves; admins name the hospital.
func (d *Desk) Submit(ctx context.Context, p identity.Principal, cmd SubmitCommand) (*SubmitResult, error) {
	if err := identity.Require(identity.CanSubmitRequest(p)); err != nil {
		return nil, err
	}
	if h, ok := p.(identity.Hospital); ok {
		cmd.HospitalID = h.HospitalID
	}
	if cmd.HospitalID == "" {
		return nil, fmt.Errorf("%w: hospital_id is required", request.ErrBadRequest)
	}
	hosp, err := d.donors.GetHospital(ctx, cmd.HospitalID)
	if err != nil {
		return nil, err
	}

	loc := cmd.Location
	if loc == "" {
		loc = hosp.Location
	}
	contact := cmd.Contact
	if contact == "" {
		contact = hosp.Phone
	}
	pos, err := d.resolvePosition(ctx, cmd, hosp)
	if err != nil {
		return nil, err
	}

	req, err := d.requests.Create(ctx, request.CreateCommand{
		PatientName:    cmd.PatientName,
		BloodGroup:     cmd.BloodGroup,
		Hospital:       hosp.Name,
		HospitalID:     hosp.ID,
		Contact:        contact,
		Location:       loc,
		Position:       pos,
		Urgency:        cmd.Urgency,
		RequiredWithin: cmd.RequiredWithin,
	})
	if err != nil {
		return nil, err
	}
	d.metrics.RequestSubmitted()

	radius := cmd.RadiusKm
	if radius <= 0 {
		radius = d.radiusKm
	}
	res, err := d.broadcast.Broadcast(ctx, req, radius)
	if err != nil {
		// The request exists; donors can still be reached by a later broadcast.
		d.log.Error("broadcast failed", zap.String("request_id", string(req.ID)), zap.Error(err))
	}

	out := &SubmitResult{
		Request:          req,
		MatchedCount:     res.MatchedCount,
		NotifiedDonorIDs: res.NotifiedDonorIDs,
		SmartMatches:     d.broadcast.SmartMatches(req, res.Matched, d.matchCount),
	}
	if out.NotifiedDonorIDs == nil {
		out.NotifiedDonorIDs = []types.ID{}
	}
	out.Analysis = d.analyze(ctx, p, req)
	return out, nil
}

func (d *Desk) resolvePosition(ctx context.Context, cmd SubmitCommand, hosp *donor.Hospital) (types.Point, error) {
	if cmd.Position != nil {
		if err := location.ValidPoint(*cmd.Position); err != nil {
			return types.Point{}, err
		}
		return *cmd.Position, nil
	}
	if cmd.Location != "" && d.geocoder != nil {
		pos, err := d.geocoder.Geocode(ctx, cmd.Location)
		if err == nil {
			return pos, nil
		}
		d.log.Warn("geocoding failed, using hospital position",
			zap.String("location", cmd.Location), zap.Error(err))
	}
	return hosp.Position, nil
}

func (d *Desk) analyze(ctx context.Context, p identity.Principal, req *request.Request) insight.EmergencyAnalysis {
	if d.analyst == nil {
		return insight.EmergencyAnalysis{}
	}
	compatible, err := d.donors.AvailableDonors(ctx, req.BloodGroup)
	if err != nil {
		d.log.Warn("counting compatible donors", zap.Error(err))
	}
	return d.analyst.AnalyzeEmergency(ctx, string(p.ID()), req, len(compatible))
}

type CompleteCommand struct {
	RequestID    types.ID            `json:"-"`
	MedicalStats *donor.MedicalStats `json:"medical_stats"`
	Notes        string              `json:"notes"`
}

type CompleteResult struct {
	Request *request.Request `json:"request"`
	Donor   *donor.Donor     `json:"donor"`
	History *medical.History `json:"medical_history"`
}

// Complete fulfils an accepted request, books the donation on the accepting
// donor and files a vault record. Fulfilment goes first so a request is
// completed at most once.
func (d *Desk) Complete(ctx context.Context, p identity.Principal, cmd CompleteCommand) (*CompleteResult, error) {
	req, err := d.requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if err := identity.Require(identity.CanManageRequest(p, req.HospitalID)); err != nil {
		return nil, err
	}
	if req.Status != request.StatusAccepted {
		return nil, request.ErrInvalidState
	}
	if req.AcceptedBy == nil {
		return nil, ErrNotAccepted
	}
	hosp, err := d.donors.GetHospital(ctx, req.HospitalID)
	if err != nil {
		return nil, err
	}

	if err := d.requests.Fulfil(ctx, request.FulfilCommand{
		RequestID: req.ID,
		ActorType: string(p.Role()),
		ActorID:   p.ID(),
	}); err != nil {
		return nil, err
	}

	now := d.now().UTC()
	dn, err := d.donors.RecordDonation(ctx, donor.RecordDonationCommand{
		DonorID:      *req.AcceptedBy,
		Date:         now,
		Hospital:     hosp.Name,
		HospitalID:   hosp.ID,
		Notes:        cmd.Notes,
		MedicalStats: cmd.MedicalStats,
	})
	if err != nil {
		return nil, fmt.Errorf("recording donation for request %s: %w", req.ID, err)
	}

	stats := donor.MedicalStats{}
	if cmd.MedicalStats != nil {
		stats = *cmd.MedicalStats
	}
	hist, err := d.vault.Append(ctx, medical.AppendCommand{
		DonorID:           dn.ID,
		DonorName:         dn.Name,
		BloodGroup:        dn.BloodGroup,
		HemoglobinLevel:   stats.Hemoglobin,
		BloodPressure:     stats.BloodPressure,
		Weight:            stats.Weight,
		EligibilityStatus: medical.StatusEligible,
		MedicalNotes:      fmt.Sprintf("Verified donation at %s. Patient %s.", hosp.Name, req.PatientName),
		TestDate:          now,
		HospitalName:      hosp.Name,
		HospitalID:        hosp.ID,
		VerifiedBy:        hosp.ContactPerson,
	})
	if err != nil {
		return nil, fmt.Errorf("filing medical history for request %s: %w", req.ID, err)
	}

	done, err := d.requests.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	d.log.Info("request fulfilled",
		zap.String("request_id", string(req.ID)),
		zap.String("donor_id", string(dn.ID)),
		zap.String("history_id", string(hist.ID)))
	return &CompleteResult{Request: done, Donor: dn, History: hist}, nil
}

// Track refreshes the route estimate from the accepting donor to the request.
// from overrides the donor's registered position.
func (d *Desk) Track(ctx context.Context, p identity.Principal, requestID types.ID, from *types.Point) (*request.Tracking, error) {
	req, err := d.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != request.StatusAccepted || req.AcceptedBy == nil {
		return nil, ErrNotAccepted
	}
	if err := identity.Require(identity.CanManageRequest(p, req.HospitalID) || identity.CanActForDonor(p, *req.AcceptedBy)); err != nil {
		return nil, err
	}

	var origin types.Point
	if from != nil {
		if err := location.ValidPoint(*from); err != nil {
			return nil, err
		}
		origin = *from
	} else {
		dn, err := d.donors.GetDonor(ctx, *req.AcceptedBy)
		if err != nil {
			return nil, err
		}
		origin = dn.Position
	}

	t := d.estimate(ctx, origin, req.Position)
	if err := d.requests.SetTracking(ctx, req.ID, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *Desk) estimate(ctx context.Context, from, to types.Point) request.Tracking {
	if d.router != nil {
		est, err := d.router.Estimate(ctx, from, to)
		if err == nil {
			return request.Tracking{ETA: est.DurationText, Distance: est.DistanceText}
		}
		d.log.Warn("route estimate failed, using straight line", zap.Error(err))
	}
	km := location.Distance(from, to)
	mins := int(km/citySpeedKmh*60 + 0.5)
	if mins < 1 {
		mins = 1
	}
	return request.Tracking{ETA: fmt.Sprintf("%d mins", mins), Distance: fmt.Sprintf("%.1f km", km)}
}

// ShortageOutlook forecasts next month's shortages for admins.
func (d *Desk) ShortageOutlook(ctx context.Context, p identity.Principal) (insight.ShortageForecast, error) {
	if err := identity.Require(identity.IsAdmin(p)); err != nil {
		return insight.ShortageForecast{}, err
	}
	reqs, err := d.requests.List(ctx)
	if err != nil {
		return insight.ShortageForecast{}, err
	}
	all, err := d.donors.ListDonors(ctx)
	if err != nil {
		return insight.ShortageForecast{}, err
	}
	donors := make([]*donor.Donor, 0, len(all))
	for _, dn := range all {
		if dn.Role == donor.RoleDonor {
			donors = append(donors, dn)
		}
	}
	if d.analyst == nil {
		return insight.NewService(nil, nil).PredictShortages(ctx, string(p.ID()), reqs, donors), nil
	}
	return d.analyst.PredictShortages(ctx, string(p.ID()), reqs, donors), nil
}
