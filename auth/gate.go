package auth

import (
	"chatchat/domain/chat"
	"chatchat/errors"
	"context"
	"log/slog"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// Gate authenticates a connection or a request before anything else happens.
type Gate struct {
	verifier IVerifier
	log      *slog.Logger
}

func NewGate(verifier IVerifier, log *slog.Logger) *Gate {
	return &Gate{verifier: verifier, log: log}
}

// Authenticate calls the verifier at most once.
func (g *Gate) Authenticate(ctx context.Context, credential string) (chat.Identity, error) {
	if g.verifier == nil {
		return chat.Identity{}, errors.ErrVerifierUnavailable
	}
	if credential == "" {
		return chat.Identity{}, errors.ErrMissingCredential
	}
	identity, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		g.log.Debug("Authentication refused", "error", err)
		return chat.Identity{}, err
	}
	return identity, nil
}

// AuthenticateRequest reads the credential from r, see CredentialFromRequest.
func (g *Gate) AuthenticateRequest(r *http.Request, allowQuery bool) (chat.Identity, error) {
	return g.Authenticate(r.Context(), CredentialFromRequest(r, allowQuery))
}

// CredentialFromRequest extracts the bearer token of the Authorization header.
// Browsers cannot set headers on a WebSocket upgrade, so allowQuery also accepts ?token=.
func CredentialFromRequest(r *http.Request, allowQuery bool) string {
	header := r.Header.Get("Authorization")
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if allowQuery {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}
