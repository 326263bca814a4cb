package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/deepdey/notebook-backend/internal/database"
	"github.com/deepdey/notebook-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenVerifier returns the user id a bearer token was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFinder loads the account behind a token.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type ctxKey int

const userKey ctxKey = iota

// Auth guards routes that need a logged-in user.
type Auth struct {
	tokens TokenVerifier
	users  UserFinder
	log    *slog.Logger
}

func NewAuth(tokens TokenVerifier, users UserFinder, log *slog.Logger) *Auth {
	return &Auth{tokens: tokens, users: users, log: log}
}

// Protect rejects requests without a valid bearer token for an existing
// user with 401. The user is stored on the request context.
func (a *Auth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			unauthorized(w, "Not authorized, no token")
			return
		}

		subject, err := a.tokens.Verify(token)
		if err != nil {
			unauthorized(w, "Not authorized, token failed")
			return
		}
		id, err := primitive.ObjectIDFromHex(subject)
		if err != nil {
			unauthorized(w, "Not authorized, token failed")
			return
		}

		user, err := a.users.FindByID(r.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			unauthorized(w, "Not authorized, user not found")
			return
		}
		if err != nil {
			a.log.ErrorContext(r.Context(), "auth user lookup failed", "user_id", subject, "error", err)
			writeJSONMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user set by Protect.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSONMessage(w, http.StatusUnauthorized, msg)
}

func writeJSONMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
