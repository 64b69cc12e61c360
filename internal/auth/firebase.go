package auth

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type FirebaseOptions struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// idTokenVerifier is the part of the Firebase auth client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier uses the service account fields when both the client
// email and private key are set, and application default credentials
// otherwise.
func NewFirebaseVerifier(ctx context.Context, opts FirebaseOptions) (*FirebaseVerifier, error) {
	var clientOpts []option.ClientOption
	if opts.ClientEmail != "" && opts.PrivateKey != "" {
		creds, err := json.Marshal(map[string]string{
			"type":         "service_account",
			"project_id":   opts.ProjectID,
			"client_email": opts.ClientEmail,
			"private_key":  opts.PrivateKey,
			"token_uri":    "https://oauth2.googleapis.com/token",
		})
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(creds))
	}

	var fbCfg *firebase.Config
	if opts.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: opts.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id := Identity{UID: tok.UID, Provider: tok.Firebase.SignInProvider}
	if email, ok := tok.Claims["email"].(string); ok {
		id.Email = email
	}
	return id, nil
}
