package alert

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// ErrNoDeviceToken is returned when a donor has no registered device.
var ErrNoDeviceToken = errors.New("no device token registered")

// deviceTokensNode is the RTDB path holding donorID -> FCM token.
const deviceTokensNode = "device_tokens"

// TokenSource resolves a donor's FCM registration token.
type TokenSource interface {
	DeviceToken(ctx context.Context, donorID string) (string, error)
}

// MessageSender is the subset of *messaging.Client the gateway needs.
type MessageSender interface {
	Send(ctx context.Context, m *messaging.Message) (string, error)
}

// RTDBTokenSource reads tokens the mobile app writes to /device_tokens.
type RTDBTokenSource struct {
	client *db.Client
}

func NewRTDBTokenSource(client *db.Client) *RTDBTokenSource {
	return &RTDBTokenSource{client: client}
}

func (s *RTDBTokenSource) DeviceToken(ctx context.Context, donorID string) (string, error) {
	var token string
	if err := s.client.NewRef(deviceTokensNode).Child(donorID).Get(ctx, &token); err != nil {
		return "", fmt.Errorf("reading device token for %s: %w", donorID, err)
	}
	if token == "" {
		return "", ErrNoDeviceToken
	}
	return token, nil
}

type FCMGateway struct {
	tokens TokenSource
	sender MessageSender
	log    *zap.Logger
}

func NewFCMGateway(tokens TokenSource, sender MessageSender, log *zap.Logger) *FCMGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &FCMGateway{tokens: tokens, sender: sender, log: log}
}

// NewFCMGatewayFromApp wires the gateway to the app's RTDB and messaging clients.
func NewFCMGatewayFromApp(ctx context.Context, app *firebase.App, log *zap.Logger) (*FCMGateway, error) {
	dbClient, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase RTDB client: %w", err)
	}
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return NewFCMGateway(NewRTDBTokenSource(dbClient), msgClient, log), nil
}

func (g *FCMGateway) Name() string { return "fcm" }

func (g *FCMGateway) Send(ctx context.Context, a Alert) error {
	token, err := g.tokens.DeviceToken(ctx, string(a.DonorID))
	if err != nil {
		return err
	}

	msg := &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":        "emergency",
			"request_id":  string(a.RequestID),
			"blood_group": string(a.BloodGroup),
			"hospital":    a.Hospital,
		},
		Notification: &messaging.Notification{
			Title: fmt.Sprintf("Blood needed: %s", a.BloodGroup),
			Body:  a.Message,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	messageID, err := g.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM for request %s: %w", a.RequestID, err)
	}
	g.log.Debug("fcm sent",
		zap.String("request_id", string(a.RequestID)),
		zap.String("donor_id", string(a.DonorID)),
		zap.String("message_id", messageID))
	return nil
}
