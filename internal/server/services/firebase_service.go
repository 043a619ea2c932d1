package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type FirebaseService struct {
	app        *firebase.App
	authClient *auth.Client
}

// NewFirebaseService initializes Firebase Admin SDK
func NewFirebaseService(ctx context.Context, credentialsPath string) (*FirebaseService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH not set")
	}

	// Initialize Firebase app with service account credentials
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	// Get Auth client
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firebase Auth client: %w", err)
	}

	return &FirebaseService{
		app:        app,
		authClient: authClient,
	}, nil
}

// Firestore opens a Firestore client for the project. The caller owns it.
func (s *FirebaseService) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := s.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}
	return client, nil
}

// VerifyIDToken verifies a Firebase ID token and returns the token claims
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}
	return token, nil
}

// Identity verifies idToken and returns the user id and display name.
// The name falls back to the account email, then empty.
func (s *FirebaseService) Identity(ctx context.Context, idToken string) (userID, userName string, err error) {
	token, err := s.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", "", err
	}
	if name, ok := token.Claims["name"].(string); ok && name != "" {
		return token.UID, name, nil
	}
	if email, ok := token.Claims["email"].(string); ok {
		return token.UID, email, nil
	}
	return token.UID, "", nil
}
