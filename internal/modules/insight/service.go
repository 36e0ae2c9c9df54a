// README: Emergency analysis and shortage forecasts behind a bounded, quota-checked provider.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifelink/internal/metrics"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/request"
)

const (
	defaultTimeout = 15 * time.Second
	systemCaller   = "system" // charged when no principal is attached

	kindEmergency = "emergency"
	kindShortage  = "shortage"
)

// Fallback reasons, used as the metrics label.
const (
	reasonDisabled   = "disabled"
	reasonQuota      = "quota"
	reasonTimeout    = "timeout"
	reasonProvider   = "provider"
	reasonMalformed  = "malformed"
	reasonIncomplete = "incomplete"
)

// Service never fails: any problem yields the static fallback.
type Service struct {
	provider Provider
	quota    Quota
	timeout  time.Duration
	metrics  *metrics.Recorder
	log      *zap.Logger
}

type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
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

// NewService accepts a nil provider (always fall back) and a nil quota
// (unlimited).
func NewService(provider Provider, quota Quota, opts ...Option) *Service {
	s := &Service{provider: provider, quota: quota, timeout: defaultTimeout, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeEmergency rates a new request given how many compatible donors are
// available right now.
func (s *Service) AnalyzeEmergency(ctx context.Context, caller string, req *request.Request, compatibleAvailable int) EmergencyAnalysis {
	var reply analysisReply
	if reason := s.ask(ctx, caller, kindEmergency, emergencyPrompt(req, compatibleAvailable), &reply); reason != "" {
		return fallbackAnalysis()
	}
	if reply.Criticality == "" || reply.FulfillmentPrediction == "" || reply.Recommendation == "" {
		s.fellBack(kindEmergency, reasonIncomplete, nil)
		return fallbackAnalysis()
	}
	return EmergencyAnalysis{
		Criticality:           reply.Criticality,
		FulfillmentPrediction: reply.FulfillmentPrediction,
		Recommendation:        reply.Recommendation,
	}
}

// PredictShortages forecasts next month's scarcest blood group from the
// donor inventory and recent request history.
func (s *Service) PredictShortages(ctx context.Context, caller string, requests []*request.Request, donors []*donor.Donor) ShortageForecast {
	var reply forecastReply
	if reason := s.ask(ctx, caller, kindShortage, shortagePrompt(requests, donors), &reply); reason != "" {
		return fallbackForecast()
	}
	if reply.PredictedShortageGroup == "" || reply.RiskLevel == "" {
		s.fellBack(kindShortage, reasonIncomplete, nil)
		return fallbackForecast()
	}
	return ShortageForecast{
		PredictedShortageGroup: reply.PredictedShortageGroup,
		RiskLevel:              reply.RiskLevel,
		GrowthForecast:         reply.GrowthForecast,
		CampaignIdea:           reply.CampaignIdea,
	}
}

// ask charges the quota, calls the provider once and decodes its answer into
// out. It returns the fallback reason, or "" on success.
func (s *Service) ask(ctx context.Context, caller, kind string, p Prompt, out interface{}) string {
	if s.provider == nil {
		s.fellBack(kind, reasonDisabled, nil)
		return reasonDisabled
	}
	if caller == "" {
		caller = systemCaller
	}
	if s.quota != nil {
		if err := s.quota.Use(ctx, caller); err != nil {
			reason := reasonQuota
			if !errors.Is(err, ErrQuotaExhausted) {
				reason = reasonProvider
			}
			s.fellBack(kind, reason, err)
			return reason
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.provider.Complete(callCtx, p)
	if err != nil {
		reason := reasonProvider
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = reasonTimeout
		}
		s.fellBack(kind, reason, err)
		return reason
	}
	if err := json.Unmarshal([]byte(cleanJSONString(raw)), out); err != nil {
		s.fellBack(kind, reasonMalformed, fmt.Errorf("%w (raw: %.200s)", err, raw))
		return reasonMalformed
	}
	return ""
}

func (s *Service) fellBack(kind, reason string, err error) {
	s.metrics.InsightFallback(kind, reason)
	fields := []zap.Field{zap.String("kind", kind), zap.String("reason", reason)}
	if s.provider != nil {
		fields = append(fields, zap.String("provider", s.provider.Name()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason == reasonDisabled {
		s.log.Debug("insight fallback", fields...)
		return
	}
	s.log.Warn("insight fallback", fields...)
}
