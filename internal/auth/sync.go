package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/webhook"
)

const maxWebhookBodyBytes = 1 << 20

// SyncHandler mirrors auth provider users into the users table.
type SyncHandler struct {
	db     database.DBTX
	secret string
}

func NewSyncHandler(db database.DBTX, secret string) *SyncHandler {
	return &SyncHandler{db: db, secret: secret}
}

type userEvent struct {
	Type string   `json:"type"`
	Data userData `json:"data"`
}

type userData struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}

func (d userData) displayName() string {
	name := strings.TrimSpace(d.FirstName + " " + d.LastName)
	if name == "" {
		return "Anonymous"
	}
	return name
}

func (h *SyncHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		slog.Error("auth webhook: AUTH_WEBHOOK_SECRET is not configured")
		httputil.WriteError(w, http.StatusInternalServerError, "webhook secret not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !webhook.VerifyHMAC(h.secret, body, r.Header.Get("Webhook-Signature")) {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event userEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if event.Data.ID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing user id")
		return
	}

	ctx := r.Context()
	switch event.Type {
	case "user.created":
		_, err = h.db.Exec(ctx,
			`INSERT INTO users (clerk_id, name, image_url) VALUES ($1, $2, $3)
			 ON CONFLICT (clerk_id) DO UPDATE SET name = EXCLUDED.name, image_url = EXCLUDED.image_url, updated_at = now()`,
			event.Data.ID, event.Data.displayName(), event.Data.ImageURL)
	case "user.updated":
		_, err = h.db.Exec(ctx,
			"UPDATE users SET name = $1, image_url = $2, updated_at = now() WHERE clerk_id = $3",
			event.Data.displayName(), event.Data.ImageURL, event.Data.ID)
	case "user.deleted":
		_, err = h.db.Exec(ctx, "DELETE FROM users WHERE clerk_id = $1", event.Data.ID)
	default:
		slog.Debug("auth webhook: ignoring event", "type", event.Type)
	}
	if err != nil {
		slog.Error("auth webhook: failed to sync user", "type", event.Type, "clerk_id", event.Data.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to sync user")
		return
	}

	w.WriteHeader(http.StatusOK)
}
