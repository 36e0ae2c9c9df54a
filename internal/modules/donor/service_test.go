// README: Donor directory service tests against the in-memory store.
package donor

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"lifelink/internal/modules/location"
	"lifelink/internal/types"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService() *Service {
	return NewService(NewMemoryStore(), nil).WithClock(func() time.Time { return fixedNow })
}

func validRegister(email string) RegisterCommand {
	return RegisterCommand{
		Name:       "Alex Rivera",
		Age:        28,
		Gender:     "Male",
		BloodGroup: "O+",
		Phone:      "555-0101",
		Email:      email,
		Password:   "secret1",
		City:       "San Francisco",
		State:      "CA",
		Position:   types.Point{Lat: 37.7749, Lng: -122.4194},
	}
}

func TestRegisterDefaults(t *testing.T) {
	svc := newTestService()
	d, err := svc.Register(context.Background(), validRegister("alex@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !d.Available || d.IsVerified || d.ReliabilityScore != 85 || d.ResponseRate != 100 ||
		d.TotalDonations != 0 || d.Role != RoleDonor || d.LastDonation != nil {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := map[string]func(*RegisterCommand){
		"too young":       func(c *RegisterCommand) { c.Age = 17 },
		"too old":         func(c *RegisterCommand) { c.Age = 66 },
		"short password":  func(c *RegisterCommand) { c.Password = "12345" },
		"bad email":       func(c *RegisterCommand) { c.Email = "not-an-email" },
		"bad blood group": func(c *RegisterCommand) { c.BloodGroup = "C+" },
		"missing name":    func(c *RegisterCommand) { c.Name = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cmd := validRegister("case@example.com")
			mutate(&cmd)
			if _, err := svc.Register(ctx, cmd); !errors.Is(err, ErrInvalidDonor) {
				t.Fatalf("expected ErrInvalidDonor, got %v", err)
			}
		})
	}

	cmd := validRegister("coords@example.com")
	cmd.Position = types.Point{Lat: 120, Lng: 0}
	if _, err := svc.Register(ctx, cmd); !errors.Is(err, location.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegister("alex@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, validRegister("ALEX@example.com"))
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
	all, _ := svc.ListDonors(ctx)
	if len(all) != 1 {
		t.Fatalf("duplicate must not be written, got %d donors", len(all))
	}
}

func TestUpdateDonorMissingIsNoop(t *testing.T) {
	svc := newTestService()
	name := "Ghost"
	found, err := svc.UpdateDonor(context.Background(), "missing", Patch{Name: &name})
	if err != nil || found {
		t.Fatalf("expected found=false err=nil, got found=%v err=%v", found, err)
	}
}

func TestUpdateDonorPatch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d, _ := svc.Register(ctx, validRegister("p@example.com"))

	city := "Oakland"
	score := 90
	found, err := svc.UpdateDonor(ctx, d.ID, Patch{City: &city, ReliabilityScore: &score})
	if err != nil || !found {
		t.Fatalf("update: found=%v err=%v", found, err)
	}
	got, _ := svc.GetDonor(ctx, d.ID)
	if got.City != "Oakland" || got.ReliabilityScore != 90 || got.Name != "Alex Rivera" {
		t.Fatalf("patch not applied correctly: %+v", got)
	}

	bad := 101
	if _, err := svc.UpdateDonor(ctx, d.ID, Patch{ResponseRate: &bad}); !errors.Is(err, ErrInvalidDonor) {
		t.Fatalf("expected out-of-range score rejected, got %v", err)
	}
}

func TestSetAvailabilityGatedByRestPeriod(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d, _ := svc.Register(ctx, validRegister("rest@example.com"))

	if _, err := svc.RecordDonation(ctx, RecordDonationCommand{DonorID: d.ID, Date: fixedNow.AddDate(0, 0, -10), Hospital: "City General"}); err != nil {
		t.Fatalf("record donation: %v", err)
	}
	if _, err := svc.SetAvailability(ctx, d.ID, false); err != nil {
		t.Fatalf("toggle off must always succeed: %v", err)
	}
	found, err := svc.SetAvailability(ctx, d.ID, true)
	if !found || !errors.Is(err, ErrRestPeriodActive) {
		t.Fatalf("expected ErrRestPeriodActive, got found=%v err=%v", found, err)
	}
	got, _ := svc.GetDonor(ctx, d.ID)
	if got.Available {
		t.Fatalf("failed toggle must not change availability")
	}

	el, err := svc.Eligibility(ctx, d.ID)
	if err != nil || el.IsEligible || el.DaysLeft != 80 {
		t.Fatalf("unexpected eligibility %+v err=%v", el, err)
	}
}

func TestPatchAvailabilityGatedByRestPeriod(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d, _ := svc.Register(ctx, validRegister("patch-rest@example.com"))

	if _, err := svc.RecordDonation(ctx, RecordDonationCommand{DonorID: d.ID, Date: fixedNow.AddDate(0, 0, -10), Hospital: "City General"}); err != nil {
		t.Fatalf("record donation: %v", err)
	}
	off, on := false, true
	if _, err := svc.UpdateDonor(ctx, d.ID, Patch{Available: &off}); err != nil {
		t.Fatalf("patch off must always succeed: %v", err)
	}
	city := "Oakland"
	found, err := svc.UpdateDonor(ctx, d.ID, Patch{Available: &on, City: &city})
	if !found || !errors.Is(err, ErrRestPeriodActive) {
		t.Fatalf("expected ErrRestPeriodActive, got found=%v err=%v", found, err)
	}
	got, _ := svc.GetDonor(ctx, d.ID)
	if got.Available || got.City == "Oakland" {
		t.Fatalf("refused patch must leave the donor untouched: %+v", got)
	}

	svc.WithClock(func() time.Time { return fixedNow.AddDate(0, 0, 80) })
	if _, err := svc.UpdateDonor(ctx, d.ID, Patch{Available: &on}); err != nil {
		t.Fatalf("patch on after rest period: %v", err)
	}
	if got, _ := svc.GetDonor(ctx, d.ID); !got.Available {
		t.Fatalf("expected donor available after rest period")
	}
}

func TestCreateDonorRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	last := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	want := &Donor{
		ID:               "donor_rt",
		Name:             "Sam Lee",
		Age:              40,
		Gender:           "Female",
		BloodGroup:       "AB-",
		Phone:            "555-0199",
		Email:            "sam@example.com",
		Password:         "hunter22",
		City:             "Portland",
		State:            "OR",
		Position:         types.Point{Lat: 45.5152, Lng: -122.6784},
		LastDonation:     &last,
		Available:        false,
		IsVerified:       true,
		ReliabilityScore: 92,
		ResponseRate:     77,
		Role:             RoleAdmin,
		DonationHistory: []DonationRecord{{
			ID:            "don_1",
			Date:          last,
			Hospital:      "City General",
			HospitalID:    "hosp_1",
			CertificateID: "CERT-ABC123",
			Notes:         "Routine",
			MedicalStats: &MedicalStats{
				Hemoglobin:    "14.2",
				BloodPressure: "120/80",
				Pulse:         "72",
				Weight:        "68",
				Status:        HealthExcellent,
			},
		}},
		TotalDonations: 1,
		CreatedAt:      time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	if err := svc.CreateDonor(ctx, want.Clone()); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := svc.ListDonors(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var matches []*Donor
	for _, d := range list {
		if d.ID == want.ID {
			matches = append(matches, d)
		}
	}
	if len(matches) != 1 {
		t.Fatalf("expected donor listed exactly once, got %d", len(matches))
	}
	if !reflect.DeepEqual(matches[0], want) {
		t.Fatalf("round trip changed the donor:\n got %+v\nwant %+v", matches[0], want)
	}
}

func TestRecordDonationCapsReliability(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d, _ := svc.Register(ctx, validRegister("cap@example.com"))
	score := 98
	_, _ = svc.UpdateDonor(ctx, d.ID, Patch{ReliabilityScore: &score})

	got, err := svc.RecordDonation(ctx, RecordDonationCommand{DonorID: d.ID, Hospital: "City General", HospitalID: "hosp_1"})
	if err != nil {
		t.Fatalf("record donation: %v", err)
	}
	if got.ReliabilityScore != 100 {
		t.Fatalf("expected reliability capped at 100, got %d", got.ReliabilityScore)
	}
	if got.TotalDonations != 1 || len(got.DonationHistory) != 1 {
		t.Fatalf("expected one donation recorded: %+v", got)
	}
	if got.LastDonation == nil || !got.LastDonation.Equal(fixedNow) {
		t.Fatalf("last donation not set to completion date: %v", got.LastDonation)
	}
	if cert := got.DonationHistory[0].CertificateID; len(cert) != len("CERT-XXXXXX") {
		t.Fatalf("unexpected certificate id %q", cert)
	}

	if _, err := svc.RecordDonation(ctx, RecordDonationCommand{DonorID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListReturnsDeepCopies(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d, _ := svc.Register(ctx, validRegister("copy@example.com"))
	_, _ = svc.RecordDonation(ctx, RecordDonationCommand{DonorID: d.ID, Hospital: "City General"})

	list, _ := svc.ListDonors(ctx)
	list[0].Name = "Mutated"
	list[0].DonationHistory[0].Hospital = "Mutated"
	*list[0].LastDonation = time.Time{}

	again, _ := svc.GetDonor(ctx, d.ID)
	if again.Name == "Mutated" || again.DonationHistory[0].Hospital == "Mutated" || again.LastDonation.IsZero() {
		t.Fatalf("caller mutation leaked into the store: %+v", again)
	}
}

func TestSearch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	origin := types.Point{Lat: 37.7749, Lng: -122.4194}

	mk := func(id types.ID, email string, bg types.BloodGroup, p types.Point, available, verified bool) {
		t.Helper()
		err := svc.CreateDonor(ctx, &Donor{
			ID: id, Name: string(id), Email: email, BloodGroup: bg, Position: p,
			Available: available, IsVerified: verified, Role: RoleDonor,
			ReliabilityScore: 80, ResponseRate: 80,
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	mk("far", "far@x.org", types.OPos, types.Point{Lat: 37.8044, Lng: -122.2712}, true, true)
	mk("near", "near@x.org", types.OPos, types.Point{Lat: 37.7760, Lng: -122.4180}, true, false)
	mk("off", "off@x.org", types.OPos, origin, false, true)
	mk("other", "other@x.org", types.ANeg, origin, true, true)
	_ = svc.CreateDonor(ctx, &Donor{ID: "root", Email: "root@x.org", BloodGroup: types.OPos, Position: origin, Available: true, Role: RoleAdmin})

	res, err := svc.Search(ctx, SearchQuery{BloodGroup: types.OPos, Origin: &origin})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 2 || res[0].Donor.ID != "near" || res[1].Donor.ID != "far" {
		t.Fatalf("unexpected search order: %+v", res)
	}

	res, _ = svc.Search(ctx, SearchQuery{BloodGroup: types.OPos, Origin: &origin, RadiusKm: 5})
	if len(res) != 1 || res[0].Donor.ID != "near" {
		t.Fatalf("radius filter failed: %+v", res)
	}

	res, _ = svc.Search(ctx, SearchQuery{VerifiedOnly: true})
	if len(res) != 2 {
		t.Fatalf("expected far and other for verified-only search, got %d", len(res))
	}
}

func TestConcurrentRecordDonation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d, _ := svc.Register(ctx, validRegister("race@example.com"))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.RecordDonation(ctx, RecordDonationCommand{DonorID: d.ID, Hospital: "City General"})
		}()
	}
	wg.Wait()

	got, _ := svc.GetDonor(ctx, d.ID)
	if got.TotalDonations != n || len(got.DonationHistory) != n || got.ReliabilityScore != 100 {
		t.Fatalf("lost updates: total=%d history=%d reliability=%d", got.TotalDonations, len(got.DonationHistory), got.ReliabilityScore)
	}
}
