package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sciencemaster/portal/portal"
)

type contextKey string

const actorKey contextKey = "actor"

// UserLoader resolves the user a token was issued to.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*portal.User, error)
}

// ErrorWriter renders an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests and gates them by role.
type Middleware struct {
	tokens *Tokens
	users  UserLoader
	fail   ErrorWriter
}

func NewMiddleware(tokens *Tokens, users UserLoader, fail ErrorWriter) *Middleware {
	return &Middleware{tokens: tokens, users: users, fail: fail}
}

// Authenticate requires a valid bearer token and stores the caller as a
// portal.Actor on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			m.fail(w, r, portal.ErrUnauthorized)
			return
		}
		claims, err := m.tokens.Verify(token)
		if err != nil {
			m.fail(w, r, err)
			return
		}

		user, err := m.users.GetUser(r.Context(), claims.UserID)
		if errors.Is(err, portal.ErrNotFound) {
			m.fail(w, r, ErrInvalidToken)
			return
		}
		if err != nil {
			m.fail(w, r, err)
			return
		}

		actor := portal.Actor{UserID: user.ID, Role: user.Role, BranchID: user.BranchID}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireRole lets the request through only for the given roles. It must
// run after Authenticate.
func (m *Middleware) RequireRole(roles ...portal.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				m.fail(w, r, portal.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.fail(w, r, &portal.ForbiddenError{Reason: "insufficient role"})
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithActor returns ctx carrying actor.
func WithActor(ctx context.Context, actor portal.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the authenticated caller stored by Authenticate.
func ActorFrom(ctx context.Context) (portal.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(portal.Actor)
	return actor, ok
}
