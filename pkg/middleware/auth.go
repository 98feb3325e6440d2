package middleware

import (
	"context"
	"net/http"

	"staybook/pkg/auth"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// ResolveIdentity attaches the caller's identity when the request carries a
// valid bearer token. Requests without one pass through anonymously and are
// rejected later by RequireAuth on protected routes.
func ResolveIdentity(authenticator Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := auth.BearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), raw)
			if err != nil {
				log.Debug("bearer token not resolved",
					"request_id", logger.RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// caller's identity to the request context. An identity already resolved by
// ResolveIdentity is reused.
func RequireAuth(authenticator Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.IdentityFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			raw := auth.BearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
				return
			}

			user, err := authenticator.Authenticate(r.Context(), raw)
			if err != nil {
				log.Debug("rejected bearer token",
					"request_id", logger.RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				if !apperrors.IsAppError(err) {
					err = apperrors.Unauthorized("Invalid or expired token")
				}
				_ = httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func withUser(ctx context.Context, user *model.User) context.Context {
	return auth.WithIdentity(ctx, auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
	})
}

// Protect applies an http middleware to a single httprouter route.
func Protect(mw func(http.Handler) http.Handler, handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handle(w, r, ps)
		})).ServeHTTP(w, r)
	}
}
