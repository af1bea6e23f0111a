package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

const sessionCookie = "storefront_session"

// SessionMiddleware threads an explicit owner identifier through every
// request. First-time visitors get a fresh session cookie; there is no
// authentication, just a stable per-browser cart owner.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := ""
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			ownerID = c.Value
		}

		if ownerID == "" {
			ownerID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    ownerID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OwnerFromContext returns the session owner id set by SessionMiddleware.
func OwnerFromContext(ctx context.Context) string {
	if ownerID, ok := ctx.Value(ownerIDKey).(string); ok {
		return ownerID
	}
	return ""
}

// WithOwner is a test helper for handlers called outside the middleware.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}
