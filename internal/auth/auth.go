// Package auth verifies bearer tokens at the relay.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/config"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/httpmw"
)

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrMalformedToken = errors.New("malformed bearer token")
	ErrInvalidToken   = errors.New("invalid token")
)

// Identity is the verified caller.
type Identity struct {
	UID      string
	Email    string
	Provider string
}

// Verifier checks an identity token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMalformedToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMalformedToken
	}
	return token, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Middleware rejects requests without a valid bearer token before the
// wrapped handler reads the body.
func Middleware(v Verifier, exposeDetails bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := httpmw.Logger(r.Context())
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				l.Info().Err(err).Msg("unauthorized request")
				httpmw.WriteError(w, http.StatusUnauthorized, contract.ErrorBody{Error: "Unauthorized"})
				return
			}
			id, err := v.Verify(r.Context(), token)
			if err != nil {
				l.Warn().Err(err).Msg("token verification failed")
				body := contract.ErrorBody{Error: "Invalid token"}
				if exposeDetails {
					body.Details = err.Error()
				}
				httpmw.WriteError(w, http.StatusUnauthorized, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// NewVerifier builds the verifier selected by cfg.Mode.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Mode {
	case "", "firebase":
		v, err := NewFirebaseVerifier(ctx, FirebaseOptions{
			ProjectID:   cfg.ProjectID,
			ClientEmail: cfg.ClientEmail,
			PrivateKey:  cfg.PrivateKey,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case "jwt":
		v, err := NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
}
