package auth

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// AnonymousUserID is the identity assigned to every caller when token
// verification is disabled (no service-account credential configured).
const AnonymousUserID = "anonymous"

// NewApp initializes the Firebase app from a serialized service-account
// credential. An empty credential returns a nil app, which disables both token
// verification and history persistence.
func NewApp(ctx context.Context, credentialJSON string) (*firebase.App, error) {
	if credentialJSON == "" {
		return nil, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(credentialJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

// Verifier validates bearer ID tokens against Firebase and maps them to a
// stable user ID.
type Verifier struct {
	client *fbauth.Client
}

func NewVerifier(ctx context.Context, app *firebase.App) (*Verifier, error) {
	if app == nil {
		log.Println("Token verification disabled: all requests map to the anonymous identity")
		return &Verifier{}, nil
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return &Verifier{client: client}, nil
}

func (v *Verifier) Enabled() bool {
	return v.client != nil
}

// Verify checks the ID token signature and expiry and returns the token's UID.
func (v *Verifier) Verify(ctx context.Context, idToken string) (string, error) {
	if v.client == nil {
		return AnonymousUserID, nil
	}
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("token verification failed: %w", err)
	}
	return token.UID, nil
}
