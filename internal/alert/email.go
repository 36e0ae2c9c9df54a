package alert

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

var ErrNoEmail = errors.New("donor has no email address")

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailGateway struct {
	dialer Dialer
	from   string
}

func NewEmailGateway(dialer Dialer, from string) *EmailGateway {
	return &EmailGateway{dialer: dialer, from: from}
}

// NewSMTPGateway builds an EmailGateway on a plain gomail dialer.
func NewSMTPGateway(host string, port int, user, password, from string) *EmailGateway {
	return NewEmailGateway(gomail.NewDialer(host, port, user, password), from)
}

func (g *EmailGateway) Name() string { return "email" }

func (g *EmailGateway) Send(_ context.Context, a Alert) error {
	if a.Email == "" {
		return ErrNoEmail
	}
	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", a.Email)
	m.SetHeader("Subject", fmt.Sprintf("Urgent: %s blood needed at %s", a.BloodGroup, a.Hospital))
	m.SetBody("text/plain", fmt.Sprintf("Hello %s,\n\n%s\n\nOpen LifeLink to accept or decline.\n", a.Name, a.Message))

	if err := g.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", a.Email, err)
	}
	return nil
}
