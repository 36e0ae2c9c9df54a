// Package alert delivers out-of-band emergency alerts to donors: log, Firebase
// Cloud Messaging, SMTP email, or several of those at once.
package alert

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"lifelink/internal/types"
)

// Alert is one message for one donor.
type Alert struct {
	DonorID    types.ID
	RequestID  types.ID
	Name       string
	Phone      string
	Email      string
	BloodGroup types.BloodGroup
	Hospital   string
	Message    string
}

// Gateway is fire-and-forget from the caller's point of view: errors are
// reported for logging, never retried.
type Gateway interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// LogGateway writes the alert to the log in place of an SMS provider.
type LogGateway struct {
	log *zap.Logger
}

func NewLogGateway(log *zap.Logger) *LogGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogGateway{log: log}
}

func (g *LogGateway) Name() string { return "log" }

func (g *LogGateway) Send(_ context.Context, a Alert) error {
	g.log.Info("simulated sms",
		zap.String("to", a.Phone),
		zap.String("donor_id", string(a.DonorID)),
		zap.String("request_id", string(a.RequestID)),
		zap.String("message", a.Message),
	)
	return nil
}

// FanOut sends every alert through all gateways and joins their errors.
type FanOut struct {
	gateways []Gateway
}

func NewFanOut(gateways ...Gateway) *FanOut {
	return &FanOut{gateways: gateways}
}

func (f *FanOut) Name() string { return "fanout" }

func (f *FanOut) Send(ctx context.Context, a Alert) error {
	var errs []error
	for _, g := range f.gateways {
		if err := g.Send(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
		}
	}
	return errors.Join(errs...)
}
