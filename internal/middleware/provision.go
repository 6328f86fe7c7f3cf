package middleware

import (
	"log/slog"
	"net/http"

	"betty/internal/httputil"
	"betty/internal/service/profile"
)

// Provision creates the user profile on the first authenticated request.
// Failures are logged and the request proceeds; handlers that need the
// profile surface their own errors.
func Provision(profiles *profile.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := httputil.GetUserID(r); userID != "" {
				if _, err := profiles.EnsureUser(r.Context(), userID, httputil.GetEmail(r)); err != nil {
					logger.Warn("user provisioning failed",
						"user_id", userID,
						"error", err,
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
