package alert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

var sample = Alert{
	DonorID:    "donor_1",
	RequestID:  "req_1",
	Name:       "Alex Rivera",
	Phone:      "555-0101",
	Email:      "alex@example.com",
	BloodGroup: "O+",
	Hospital:   "City General",
	Message:    "Urgent: Blood required (O+) at City General. Contact: 555-9000",
}

func TestLogGatewayLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	g := NewLogGateway(zap.New(core))

	if err := g.Send(context.Background(), sample); err != nil {
		t.Fatalf("send: %v", err)
	}
	entries := logs.FilterMessage("simulated sms").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["to"] != "555-0101" {
		t.Fatalf("unexpected fields %v", entries[0].ContextMap())
	}
}

type stubTokens map[string]string

func (s stubTokens) DeviceToken(_ context.Context, donorID string) (string, error) {
	if tok, ok := s[donorID]; ok {
		return tok, nil
	}
	return "", ErrNoDeviceToken
}

type stubSender struct {
	sent []*messaging.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, m)
	return "msg-1", nil
}

func TestFCMGateway(t *testing.T) {
	sender := &stubSender{}
	g := NewFCMGateway(stubTokens{"donor_1": "tok-1"}, sender, nil)

	if err := g.Send(context.Background(), sample); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Token != "tok-1" || sender.sent[0].Data["request_id"] != "req_1" {
		t.Fatalf("unexpected message %+v", sender.sent)
	}

	other := sample
	other.DonorID = "donor_2"
	if err := g.Send(context.Background(), other); !errors.Is(err, ErrNoDeviceToken) {
		t.Fatalf("expected ErrNoDeviceToken, got %v", err)
	}

	sender.err = errors.New("unavailable")
	if err := g.Send(context.Background(), sample); err == nil {
		t.Fatalf("expected sender error")
	}
}

type stubDialer struct {
	msgs []*gomail.Message
	err  error
}

func (d *stubDialer) DialAndSend(m ...*gomail.Message) error {
	d.msgs = append(d.msgs, m...)
	return d.err
}

func TestEmailGateway(t *testing.T) {
	d := &stubDialer{}
	g := NewEmailGateway(d, "alerts@lifelink.org")

	if err := g.Send(context.Background(), sample); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(d.msgs) != 1 {
		t.Fatalf("expected one email, got %d", len(d.msgs))
	}
	if to := d.msgs[0].GetHeader("To"); len(to) != 1 || to[0] != "alex@example.com" {
		t.Fatalf("unexpected recipient %v", to)
	}

	noMail := sample
	noMail.Email = ""
	if err := g.Send(context.Background(), noMail); !errors.Is(err, ErrNoEmail) {
		t.Fatalf("expected ErrNoEmail, got %v", err)
	}
}

type failing struct{ name string }

func (f failing) Name() string { return f.name }

func (f failing) Send(context.Context, Alert) error {
	return errors.New("down")
}

func TestFanOutJoinsErrors(t *testing.T) {
	d := &stubDialer{}
	f := NewFanOut(NewLogGateway(nil), failing{"sms"}, NewEmailGateway(d, "a@b.org"), failing{"fcm"})

	err := f.Send(context.Background(), sample)
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if !strings.Contains(err.Error(), "sms: down") || !strings.Contains(err.Error(), "fcm: down") {
		t.Fatalf("unexpected error %v", err)
	}
	if len(d.msgs) != 1 {
		t.Fatalf("healthy gateways must still send, got %d emails", len(d.msgs))
	}
	if err := NewFanOut(NewLogGateway(nil)).Send(context.Background(), sample); err != nil {
		t.Fatalf("all-healthy fan-out returned %v", err)
	}
}
