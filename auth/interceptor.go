package auth

import (
	"chatchat/domain/chat"
	"context"
	"net/http"
)

type contextKey string

const IdentityKey contextKey = "identity"

// ErrorResponder writes err to the client.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// RequireIdentity authenticates every request with the Authorization header
// and injects the identity into the request context for downstream handlers.
func RequireIdentity(gate *Gate, respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.AuthenticateRequest(r, false)
			if err != nil {
				respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity chat.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func IdentityFromContext(ctx context.Context) (chat.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(chat.Identity)
	return identity, ok && identity.UserID != ""
}
