// README: Firebase Admin SDK initialisation and token verifiers.
package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseToken holds the verified token data used by downstream middleware.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw bearer token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

var ErrInvalidToken = errors.New("invalid token")

// NewFirebaseApp initialises the Admin SDK app shared by auth, RTDB and FCM.
// If credentialsFile is non-empty it is used as the service-account JSON path;
// otherwise application-default credentials are used. databaseURL may be empty
// when the realtime database is not needed.
func NewFirebaseApp(ctx context.Context, projectID, credentialsFile, databaseURL string) (*firebase.App, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID, DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	return app, nil
}

// firebaseVerifier is the production implementation backed by the Firebase Admin SDK.
type firebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (TokenVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}

// devVerifier accepts tokens of the form "<role>:<uid>" without any
// signature. Only for local runs without Firebase.
type devVerifier struct{}

func NewDevVerifier() TokenVerifier { return devVerifier{} }

func (devVerifier) VerifyIDToken(_ context.Context, idToken string) (*FirebaseToken, error) {
	role, uid, ok := strings.Cut(idToken, ":")
	if !ok || role == "" || uid == "" {
		return nil, ErrInvalidToken
	}
	return &FirebaseToken{UID: uid, Claims: map[string]interface{}{"role": role}}, nil
}
