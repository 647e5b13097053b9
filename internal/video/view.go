package video

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/mssola/useragent"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/httputil"
)

const viewColumns = `user_id, video_id, country, browser, os, created_at, updated_at`

func (v *View) scanFields() []any {
	return []any{&v.UserID, &v.VideoID, &v.Country, &v.Browser, &v.OS, &v.CreatedAt, &v.UpdatedAt}
}

// parseUserAgent returns the browser and OS names, empty when unknown.
func parseUserAgent(raw string) (browser, os string) {
	if raw == "" {
		return "", ""
	}
	ua := useragent.New(raw)
	browser, _ = ua.Browser()
	return browser, ua.OSInfo().Name
}

// RecordView counts one view per user and video. Repeat views return the
// existing row.
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	existing, err := h.findView(r.Context(), userID, videoID)
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, existing)
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		slog.Error("video: failed to look up view", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not record view")
		return
	}

	browser, os := parseUserAgent(r.UserAgent())
	country := h.geo.Country(httputil.ClientIP(r))

	var view View
	err = h.db.QueryRow(r.Context(),
		`INSERT INTO video_views (user_id, video_id, country, browser, os)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+viewColumns,
		userID, videoID, optionalString(country), optionalString(browser), optionalString(os),
	).Scan(view.scanFields()...)
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusCreated, view)
	case database.IsUniqueViolation(err):
		existing, err := h.findView(r.Context(), userID, videoID)
		if err != nil {
			slog.Error("video: failed to reload concurrent view", "video_id", videoID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "could not record view")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, existing)
	case database.IsForeignKeyViolation(err):
		httputil.WriteError(w, http.StatusNotFound, "video not found")
	default:
		slog.Error("video: failed to insert view", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not record view")
	}
}

func (h *Handler) findView(ctx context.Context, userID, videoID string) (View, error) {
	var v View
	err := h.db.QueryRow(ctx,
		`SELECT `+viewColumns+` FROM video_views WHERE user_id = $1 AND video_id = $2`,
		userID, videoID,
	).Scan(v.scanFields()...)
	return v, err
}
