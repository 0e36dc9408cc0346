package middleware

import (
	"context"
	"net/http"

	"backoffice/internal/models"
	"backoffice/internal/services"
	"backoffice/internal/store"
)

type ActiveUsers interface {
	Active(ctx context.Context, userID string) (store.User, error)
}

// ActiveUser reloads the caller so that a token issued before a rejection or
// deletion stops working. The stored role replaces the role in the token.
func ActiveUser(users ActiveUsers) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user, err := users.Active(r.Context(), userID)
			if err != nil {
				switch services.KindOf(err) {
				case services.KindForbidden:
					http.Error(w, "account access revoked", http.StatusForbidden)
				case services.KindNotFound:
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				default:
					http.Error(w, "unable to verify user", http.StatusInternalServerError)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user.ID, string(user.Role))))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if RoleFromContext(r.Context()) != string(models.RoleAdmin) {
			http.Error(w, "admin privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
