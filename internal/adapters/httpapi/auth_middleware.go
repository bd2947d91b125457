package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

// TokenVerifier checks a bearer token and returns its subject.
// *jwtverifier.Verifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <JWT> and scopes the request to the
// token subject. Rejections carry a WWW-Authenticate challenge.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				unauthorized(w, r, "", problem)
				return
			}
			sub, err := v.Verify(r.Context(), raw)
			if err != nil {
				unauthorized(w, r, "invalid_token", "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), domain.OwnerID(sub))))
		})
	}
}

// bearerToken extracts the token, or a client-facing reason when the header is unusable.
func bearerToken(authz string) (string, string) {
	if authz == "" {
		return "", "missing Authorization header"
	}
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || scheme != "Bearer" {
		return "", "malformed Authorization header"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, code, msg string) {
	challenge := `Bearer realm="peraluna"`
	if code != "" {
		challenge += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", msg, nil)
}

// NewDevAuthMiddleware trusts X-Debug-Subject, falling back to defaultSubject.
// Local development and tests only.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set X-Debug-Subject)", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), domain.OwnerID(sub))))
		})
	}
}
