package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors/constants"
)

// RequireSession rejects requests without a checkout session header.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimSpace(r.Header.Get(constants.HeaderXSessionID))
		if sessionID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":     "session_required",
				"message":   constants.HeaderXSessionID + " header is required",
				"retryable": false,
			})
			return
		}
		ctx := context.WithValue(r.Context(), constants.ContextKeySessionID, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(constants.ContextKeySessionID).(string)
	return sessionID
}
