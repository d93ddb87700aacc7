package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"fieldlog/auth"
	"fieldlog/models"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Authenticate validates the Bearer token on the request and injects the
// resolved identity into the context. Evaluation is a pure function of the
// Authorization header and the current time; no stored state is consulted
// or mutated. Requests without a verifiable token are short-circuited with
// 401 and never reach a handler with an identity attached.
func Authenticate(codec *auth.TokenCodec, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logAuthOutcome(log, r, "", "rejected: missing header")
				writeError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			token, err := auth.ExtractToken(authHeader)
			if err != nil {
				logAuthOutcome(log, r, "", "rejected: malformed header")
				writeError(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			identity, err := codec.Verify(token)
			if err != nil {
				logAuthOutcome(log, r, "", "rejected: "+err.Error())
				writeError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			logAuthOutcome(log, r, string(identity.Role), "accepted")
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext retrieves the identity attached by Authenticate.
func GetIdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(models.Identity)
	return identity, ok
}

// RequireRole admits the request iff the authenticated identity's role is
// in the allow-list. Routes without a RequireRole gate accept any
// authenticated role.
func RequireRole(log *zap.Logger, allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentityFromContext(r.Context())
			if !ok {
				writeError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			for _, role := range allowedRoles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logAuthOutcome(log, r, string(identity.Role), "rejected: insufficient role")
			writeError(w, "Insufficient permissions", http.StatusForbidden)
		})
	}
}

// logAuthOutcome emits the authorization-outcome event. Observability only;
// gate decisions never depend on it.
func logAuthOutcome(log *zap.Logger, r *http.Request, role, outcome string) {
	log.Info("authorization",
		zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.String("role", role),
		zap.String("outcome", outcome))
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
