// Package authz guards the migration control endpoints. A request carries a
// bearer token verified either against a shared HS256 secret or against a
// JWKS endpoint; once the signature is checked, both validators run the same
// admission path.
package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Sprinq/cecs378project-sub000/internal/observability/metrics"
)

type subjectKey struct{}

// SubjectFrom reports the token subject a validator stashed in the context.
func SubjectFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok
}

func bearerToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(raw[len("Bearer "):]), true
}

// verifyFunc checks a token's signature and returns its claims. Each
// validator supplies one; everything past the signature is shared.
type verifyFunc func(token string) (map[string]any, error)

// admit wraps a verifyFunc into middleware. The issuer check is skipped for
// tokens that carry no issuer claim; the subject is mandatory since the audit
// log keys on it.
func admit(method, issuer string, verify verifyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimw.GetReqID(r.Context())
			deny := func(msg string, args ...any) {
				metrics.AdminAuthAttemptsTotal.WithLabelValues(method, "failure").Inc()
				http.Error(w, msg, http.StatusUnauthorized)
				slog.Warn("admin auth denied",
					append([]any{"method", method, "reason", msg, "request_id", reqID}, args...)...)
			}

			tok, ok := bearerToken(r)
			if !ok {
				deny("missing bearer token")
				return
			}
			claims, err := verify(tok)
			if err != nil {
				deny("invalid token", "error", err)
				return
			}
			if iss, _ := claims["iss"].(string); iss != "" && iss != issuer {
				deny("issuer mismatch", "issuer", iss)
				return
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				deny("no subject")
				return
			}

			metrics.AdminAuthAttemptsTotal.WithLabelValues(method, "success").Inc()
			slog.Info("admin auth passed", "method", method, "subject", sub, "request_id", reqID)
			ctx := context.WithValue(r.Context(), subjectKey{}, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
