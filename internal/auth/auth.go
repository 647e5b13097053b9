package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/httputil"
)

type contextKey string

const userIDKey contextKey = "userID"

type Handler struct {
	db        database.DBTX
	jwtSecret string
}

func NewHandler(db database.DBTX, jwtSecret string) *Handler {
	return &Handler{db: db, jwtSecret: jwtSecret}
}

// Middleware requires a valid session token belonging to a known user.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, status, msg := h.authenticate(r)
		if status != 0 {
			httputil.WriteError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
	})
}

// OptionalMiddleware attaches the user when a valid token is present and
// lets anonymous requests through unchanged.
func (h *Handler) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, status, _ := h.authenticate(r)
		if status == http.StatusInternalServerError {
			httputil.WriteError(w, status, "failed to authenticate")
			return
		}
		if status == 0 {
			r = r.WithContext(ContextWithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authenticate(r *http.Request) (userID string, status int, msg string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", http.StatusUnauthorized, "authorization header required"
	}

	tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return "", http.StatusUnauthorized, "invalid authorization header format"
	}

	claims, err := ValidateToken(h.jwtSecret, tokenStr)
	if err != nil {
		return "", http.StatusUnauthorized, "invalid token"
	}

	userID, err = h.lookupUser(r.Context(), claims.Subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", http.StatusUnauthorized, "unknown user"
	}
	if err != nil {
		slog.Error("auth: failed to look up user", "clerk_id", claims.Subject, "error", err)
		return "", http.StatusInternalServerError, "failed to authenticate"
	}
	return userID, 0, ""
}

func (h *Handler) lookupUser(ctx context.Context, clerkID string) (string, error) {
	var userID string
	err := h.db.QueryRow(ctx, "SELECT id FROM users WHERE clerk_id = $1", clerkID).Scan(&userID)
	return userID, err
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user's id, or "" for anonymous
// requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
