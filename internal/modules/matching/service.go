// README: Broadcaster fans an emergency request out to nearby compatible donors.
package matching

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"lifelink/internal/alert"
	"lifelink/internal/metrics"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/location"
	"lifelink/internal/modules/notification"
	"lifelink/internal/modules/request"
	"lifelink/internal/types"
)

// DonorSource lists available donors of one blood group.
type DonorSource interface {
	AvailableDonors(ctx context.Context, bg types.BloodGroup) ([]*donor.Donor, error)
}

type NotificationSink interface {
	Create(ctx context.Context, cmd notification.CreateCommand) (*notification.Notification, error)
}

// DispatchRecorder is satisfied by *Store.
type DispatchRecorder interface {
	RecordDispatch(ctx context.Context, requestID types.ID, donorIDs []types.ID) error
}

type Service struct {
	donors     DonorSource
	inbox      NotificationSink
	gateway    alert.Gateway
	dispatches DispatchRecorder
	radiusKm   float64
	metrics    *metrics.Recorder
	log        *zap.Logger
	now        func() time.Time
}

type Option func(*Service)

// WithDispatchStore records every broadcast; without it nothing is recorded.
func WithDispatchStore(d DispatchRecorder) Option {
	return func(s *Service) { s.dispatches = d }
}

func WithRadius(km float64) Option {
	return func(s *Service) {
		if km > 0 {
			s.radiusKm = km
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(donors DonorSource, inbox NotificationSink, gateway alert.Gateway, opts ...Option) *Service {
	if gateway == nil {
		gateway = alert.NewLogGateway(nil)
	}
	s := &Service{
		donors:   donors,
		inbox:    inbox,
		gateway:  gateway,
		radiusKm: DefaultRadiusKm,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AlertMessage is the text every matched donor receives.
func AlertMessage(req *request.Request) string {
	return fmt.Sprintf("Urgent: Blood required (%s) at %s. Contact: %s", req.BloodGroup, req.Hospital, req.Contact)
}

// Broadcast notifies every available donor of exactly req's blood group
// within radiusKm of the request. radiusKm <= 0 uses the configured radius.
// Failed notification saves are skipped; gateway failures are logged only.
func (s *Service) Broadcast(ctx context.Context, req *request.Request, radiusKm float64) (BroadcastResult, error) {
	started := s.now()
	if radiusKm <= 0 {
		radiusKm = s.radiusKm
	}
	candidates, err := s.donors.AvailableDonors(ctx, req.BloodGroup)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("loading donors for request %s: %w", req.ID, err)
	}

	msg := AlertMessage(req)
	res := BroadcastResult{NotifiedDonorIDs: []types.ID{}}
	for _, d := range candidates {
		if !eligibleForBroadcast(d, req, radiusKm) {
			continue
		}
		if _, err := s.inbox.Create(ctx, notification.CreateCommand{
			DonorID:   d.ID,
			RequestID: req.ID,
			Message:   msg,
			Type:      notification.TypeEmergency,
		}); err != nil {
			s.log.Warn("notification not saved",
				zap.String("request_id", string(req.ID)),
				zap.String("donor_id", string(d.ID)),
				zap.Error(err))
			continue
		}
		res.MatchedCount++
		res.NotifiedDonorIDs = append(res.NotifiedDonorIDs, d.ID)
		res.Matched = append(res.Matched, d)

		if err := s.gateway.Send(ctx, alert.Alert{
			DonorID:    d.ID,
			RequestID:  req.ID,
			Name:       d.Name,
			Phone:      d.Phone,
			Email:      d.Email,
			BloodGroup: req.BloodGroup,
			Hospital:   req.Hospital,
			Message:    msg,
		}); err != nil {
			s.metrics.AlertFailed(s.gateway.Name())
			s.log.Warn("alert delivery failed",
				zap.String("gateway", s.gateway.Name()),
				zap.String("request_id", string(req.ID)),
				zap.String("donor_id", string(d.ID)),
				zap.Error(err))
		}
	}
	s.metrics.NotificationsCreated(res.MatchedCount)

	if s.dispatches != nil {
		if err := s.dispatches.RecordDispatch(ctx, req.ID, res.NotifiedDonorIDs); err != nil {
			s.log.Warn("dispatch not recorded", zap.String("request_id", string(req.ID)), zap.Error(err))
		}
	}

	s.metrics.Broadcast(s.now().Sub(started), res.MatchedCount)
	s.log.Info("request broadcast",
		zap.String("request_id", string(req.ID)),
		zap.String("blood_group", string(req.BloodGroup)),
		zap.Float64("radius_km", radiusKm),
		zap.Int("matched", res.MatchedCount))
	return res, nil
}

// SmartMatches ranks the donors a broadcast reached.
func (s *Service) SmartMatches(req *request.Request, matched []*donor.Donor, n int) []SmartMatch {
	return RankSmartMatches(matched, req, s.now(), n)
}

func eligibleForBroadcast(d *donor.Donor, req *request.Request, radiusKm float64) bool {
	if d.Role != donor.RoleDonor || !d.Available || d.BloodGroup != req.BloodGroup {
		return false
	}
	dist := location.Distance(req.Position, d.Position)
	return !math.IsNaN(dist) && dist <= radiusKm
}
