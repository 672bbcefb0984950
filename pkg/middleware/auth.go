package middleware

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"telehealth/pkg/auth"
	"telehealth/pkg/logger"
)

// Authenticate resolves the bearer token, when one is sent, into an
// auth.Actor on the request context. Requests without a token continue
// anonymously; a token that fails validation is rejected outright.
func Authenticate(parser *auth.TokenParser, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := parser.ParseBearer(header)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestIDFrom(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		})
	}
}

// RequireActor guards a route so only authenticated callers with one of the
// given roles reach it. No roles means any authenticated caller.
func RequireActor(next httprouter.Handle, roles ...auth.Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, ok := auth.ActorFrom(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if len(roles) > 0 && !hasRole(actor, roles) {
			writeJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r, ps)
	}
}

func hasRole(actor auth.Actor, roles []auth.Role) bool {
	for _, role := range roles {
		if actor.Role == role {
			return true
		}
	}
	return false
}
