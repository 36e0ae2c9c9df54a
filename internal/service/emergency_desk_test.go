package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"lifelink/internal/alert"
	"lifelink/internal/identity"
	"lifelink/internal/maps"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/insight"
	"lifelink/internal/modules/matching"
	"lifelink/internal/modules/medical"
	"lifelink/internal/modules/notification"
	"lifelink/internal/modules/request"
	"lifelink/internal/types"
)

var hospitalPos = types.Point{Lat: 37.7833, Lng: -122.4167}

type stubAnalyst struct {
	compatible int
	caller     string
}

func (a *stubAnalyst) AnalyzeEmergency(_ context.Context, caller string, _ *request.Request, n int) insight.EmergencyAnalysis {
	a.caller, a.compatible = caller, n
	return insight.EmergencyAnalysis{Criticality: "High", FulfillmentPrediction: "Soon", Recommendation: "Hold"}
}

func (a *stubAnalyst) PredictShortages(_ context.Context, caller string, _ []*request.Request, donors []*donor.Donor) insight.ShortageForecast {
	a.caller = caller
	return insight.ShortageForecast{PredictedShortageGroup: "AB-", RiskLevel: "Low", CampaignIdea: fmt.Sprintf("%d donors", len(donors))}
}

type stubGeocoder struct{ p types.Point }

func (g stubGeocoder) Geocode(context.Context, string) (types.Point, error) { return g.p, nil }

type stubRouter struct{ err error }

func (r stubRouter) Estimate(context.Context, types.Point, types.Point) (maps.Estimate, error) {
	if r.err != nil {
		return maps.Estimate{}, r.err
	}
	return maps.Estimate{Duration: 12 * time.Minute, DurationText: "12 mins", DistanceText: "3.4 km"}, nil
}

type deskFixture struct {
	desk     *Desk
	donors   *donor.Service
	requests *request.Service
	inbox    *notification.Service
	vault    *medical.Service
	analyst  *stubAnalyst
}

func newDeskFixture(t *testing.T, mutate func(*Deps)) *deskFixture {
	t.Helper()
	ctx := context.Background()
	donors := donor.NewService(donor.NewMemoryStore(), nil)
	for _, h := range []*donor.Hospital{
		{ID: "hosp_1", Name: "City General", Email: "ops@citygeneral.com", Location: "Downtown SF", Position: hospitalPos, ContactPerson: "Dr. Sarah Chen", Phone: "555-9000"},
		{ID: "hosp_2", Name: "St. Mary's", Email: "contact@stmarys.org", Location: "Hayes Valley", Position: types.Point{Lat: 37.7740, Lng: -122.4312}, Phone: "555-8200"},
	} {
		if err := donors.CreateHospital(ctx, h); err != nil {
			t.Fatalf("hospital: %v", err)
		}
	}
	for i, km := range []float64{1, 2, 3, 4, 50} {
		err := donors.CreateDonor(ctx, &donor.Donor{
			ID:               types.ID(fmt.Sprintf("d%d", i+1)),
			Name:             fmt.Sprintf("Donor %d", i+1),
			Email:            fmt.Sprintf("d%d@example.com", i+1),
			BloodGroup:       types.OPos,
			Available:        true,
			Position:         types.Point{Lat: hospitalPos.Lat + km/111.195, Lng: hospitalPos.Lng},
			ReliabilityScore: 80,
			ResponseRate:     100 - i,
		})
		if err != nil {
			t.Fatalf("donor: %v", err)
		}
	}

	requests := request.NewService(request.NewMemoryStore(), nil)
	inbox := notification.NewService(notification.NewMemoryStore(), requests, donors, nil, nil)
	vault := medical.NewService(medical.NewMemoryStore())
	analyst := &stubAnalyst{}
	deps := Deps{
		Requests:    requests,
		Donors:      donors,
		Broadcaster: matching.NewService(donors, inbox, alert.NewLogGateway(nil)),
		Vault:       vault,
		Analyst:     analyst,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &deskFixture{desk: NewDesk(deps), donors: donors, requests: requests, inbox: inbox, vault: vault, analyst: analyst}
}

func submit(t *testing.T, f *deskFixture, p identity.Principal) *SubmitResult {
	t.Helper()
	res, err := f.desk.Submit(context.Background(), p, SubmitCommand{PatientName: "Jordan Lee", BloodGroup: "O+", Urgency: request.UrgencyCritical})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return res
}

func TestSubmitBroadcastsAndRanks(t *testing.T) {
	f := newDeskFixture(t, nil)
	res := submit(t, f, identity.Hospital{HospitalID: "hosp_1"})

	r := res.Request
	if r.HospitalID != "hosp_1" || r.Hospital != "City General" || r.Contact != "555-9000" || r.Position != hospitalPos || r.Location != "Downtown SF" {
		t.Fatalf("request not filled from hospital: %+v", r)
	}
	if res.MatchedCount != 4 || len(res.NotifiedDonorIDs) != 4 {
		t.Fatalf("expected the four donors within 25 km, got %+v", res)
	}
	if len(res.SmartMatches) != 3 || res.SmartMatches[0].Donor.ID != "d1" {
		t.Fatalf("unexpected smart matches %+v", res.SmartMatches)
	}
	if res.Analysis.Criticality != "High" || f.analyst.compatible != 5 || f.analyst.caller != "hosp_1" {
		t.Fatalf("analysis not wired: %+v / %+v", res.Analysis, f.analyst)
	}
}

func TestSubmitPermissionsAndValidation(t *testing.T) {
	f := newDeskFixture(t, nil)
	ctx := context.Background()

	if _, err := f.desk.Submit(ctx, identity.Donor{DonorID: "d1"}, SubmitCommand{BloodGroup: "O+"}); !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("donors must not submit, got %v", err)
	}
	if _, err := f.desk.Submit(ctx, identity.Admin{OperatorID: "admin_1"}, SubmitCommand{PatientName: "X", BloodGroup: "O+"}); !errors.Is(err, request.ErrBadRequest) {
		t.Fatalf("admin without hospital_id: %v", err)
	}
	if _, err := f.desk.Submit(ctx, identity.Admin{OperatorID: "admin_1"}, SubmitCommand{PatientName: "X", BloodGroup: "O+", HospitalID: "nope"}); !errors.Is(err, donor.ErrNotFound) {
		t.Fatalf("unknown hospital: %v", err)
	}
	bad := types.Point{Lat: 91, Lng: 0}
	if _, err := f.desk.Submit(ctx, identity.Hospital{HospitalID: "hosp_1"}, SubmitCommand{PatientName: "X", BloodGroup: "O+", Position: &bad}); err == nil {
		t.Fatalf("expected invalid coordinate error")
	}
	if _, err := f.desk.Submit(ctx, identity.Hospital{HospitalID: "hosp_1"}, SubmitCommand{PatientName: "X", BloodGroup: "Q+"}); !errors.Is(err, request.ErrBadRequest) {
		t.Fatalf("unknown blood group: %v", err)
	}

	res, err := f.desk.Submit(ctx, identity.Admin{OperatorID: "admin_1"}, SubmitCommand{PatientName: "X", BloodGroup: "O+", HospitalID: "hosp_2"})
	if err != nil || res.Request.HospitalID != "hosp_2" {
		t.Fatalf("admin submit: %+v %v", res, err)
	}
}

func TestSubmitGeocodesLocationText(t *testing.T) {
	far := types.Point{Lat: 40.7128, Lng: -74.0060}
	f := newDeskFixture(t, func(d *Deps) { d.Geocoder = stubGeocoder{p: far} })

	res, err := f.desk.Submit(context.Background(), identity.Hospital{HospitalID: "hosp_1"}, SubmitCommand{
		PatientName: "Jordan Lee", BloodGroup: "O+", Location: "New York",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Request.Position != far || res.MatchedCount != 0 || len(res.SmartMatches) != 0 {
		t.Fatalf("expected geocoded position and no nearby donors, got %+v", res)
	}
}

func TestCompleteFlow(t *testing.T) {
	f := newDeskFixture(t, nil)
	ctx := context.Background()
	hosp := identity.Hospital{HospitalID: "hosp_1"}
	res := submit(t, f, hosp)
	id := res.Request.ID

	if _, err := f.desk.Complete(ctx, hosp, CompleteCommand{RequestID: id}); !errors.Is(err, request.ErrInvalidState) {
		t.Fatalf("pending request cannot be completed, got %v", err)
	}
	if err := f.requests.Accept(ctx, request.AcceptCommand{RequestID: id, DonorID: "d2", DonorName: "Donor 2"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.desk.Complete(ctx, identity.Hospital{HospitalID: "hosp_2"}, CompleteCommand{RequestID: id}); !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("other hospital must be refused, got %v", err)
	}

	out, err := f.desk.Complete(ctx, hosp, CompleteCommand{
		RequestID:    id,
		MedicalStats: &donor.MedicalStats{Hemoglobin: "14.1", BloodPressure: "120/80", Weight: "70", Status: donor.HealthNormal},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Request.Status != request.StatusFulfilled || out.Request.FulfilledAt == nil {
		t.Fatalf("request not fulfilled: %+v", out.Request)
	}
	if out.Donor.TotalDonations != 1 || out.Donor.ReliabilityScore != 85 || out.Donor.LastDonation == nil {
		t.Fatalf("donation not recorded: %+v", out.Donor)
	}
	if !strings.HasPrefix(string(out.History.ID), "MH-") || out.History.VerifiedBy != "Dr. Sarah Chen" || out.History.HemoglobinLevel != "14.1" {
		t.Fatalf("unexpected history %+v", out.History)
	}
	if !strings.Contains(out.History.MedicalNotes, "Patient Jordan Lee") {
		t.Fatalf("unexpected notes %q", out.History.MedicalNotes)
	}

	vault, _ := f.vault.ListFor(ctx, identity.Donor{DonorID: "d2"})
	if len(vault) != 1 {
		t.Fatalf("expected one vault record for the donor, got %d", len(vault))
	}
	if _, err := f.desk.Complete(ctx, hosp, CompleteCommand{RequestID: id}); !errors.Is(err, request.ErrInvalidState) {
		t.Fatalf("second completion must fail, got %v", err)
	}
}

func TestTrack(t *testing.T) {
	f := newDeskFixture(t, func(d *Deps) { d.Router = stubRouter{} })
	ctx := context.Background()
	res := submit(t, f, identity.Hospital{HospitalID: "hosp_1"})
	id := res.Request.ID

	if _, err := f.desk.Track(ctx, identity.Admin{OperatorID: "a"}, id, nil); !errors.Is(err, ErrNotAccepted) {
		t.Fatalf("pending request has no route, got %v", err)
	}
	if err := f.requests.Accept(ctx, request.AcceptCommand{RequestID: id, DonorID: "d3", DonorName: "Donor 3"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.desk.Track(ctx, identity.Donor{DonorID: "d1"}, id, nil); !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("another donor must be refused, got %v", err)
	}

	tr, err := f.desk.Track(ctx, identity.Donor{DonorID: "d3"}, id, nil)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if tr.ETA != "12 mins" || tr.Distance != "3.4 km" {
		t.Fatalf("unexpected tracking %+v", tr)
	}
	stored, _ := f.requests.Get(ctx, id)
	if stored.Tracking == nil || stored.Tracking.ETA != "12 mins" {
		t.Fatalf("tracking not stored: %+v", stored.Tracking)
	}
}

func TestTrackFallsBackToStraightLine(t *testing.T) {
	f := newDeskFixture(t, func(d *Deps) { d.Router = stubRouter{err: errors.New("quota")} })
	ctx := context.Background()
	res := submit(t, f, identity.Hospital{HospitalID: "hosp_1"})
	if err := f.requests.Accept(ctx, request.AcceptCommand{RequestID: res.Request.ID, DonorID: "d3"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	tr, err := f.desk.Track(ctx, identity.Hospital{HospitalID: "hosp_1"}, res.Request.ID, nil)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if tr.Distance != "3.0 km" || tr.ETA != "6 mins" {
		t.Fatalf("unexpected straight-line estimate %+v", tr)
	}
}

func TestShortageOutlook(t *testing.T) {
	f := newDeskFixture(t, nil)
	ctx := context.Background()

	if _, err := f.desk.ShortageOutlook(ctx, identity.Hospital{HospitalID: "hosp_1"}); !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("only admins see the outlook, got %v", err)
	}
	got, err := f.desk.ShortageOutlook(ctx, identity.Admin{OperatorID: "admin_1"})
	if err != nil || got.PredictedShortageGroup != "AB-" || got.CampaignIdea != "5 donors" {
		t.Fatalf("unexpected forecast %+v %v", got, err)
	}

	bare := newDeskFixture(t, func(d *Deps) { d.Analyst = nil })
	got, err = bare.desk.ShortageOutlook(ctx, identity.Admin{OperatorID: "admin_1"})
	if err != nil || !got.Fallback {
		t.Fatalf("expected fallback forecast, got %+v %v", got, err)
	}
}
