package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/mux"
	"github.com/newtube/newtube/internal/validate"
)

// RestoreThumbnail replaces the stored thumbnail with the provider's default
// frame.
func (h *Handler) RestoreThumbnail(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	var playbackID, oldKey *string
	err := h.db.QueryRow(r.Context(),
		`SELECT mux_playback_id, thumbnail_key FROM videos WHERE id = $1 AND user_id = $2`,
		videoID, userID,
	).Scan(&playbackID, &oldKey)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to load video for thumbnail restore", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not restore thumbnail")
		return
	}
	if playbackID == nil || *playbackID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "video is not ready yet")
		return
	}

	obj, err := h.storage.UploadFromURL(r.Context(), thumbnailKey(videoID), mux.ThumbnailURL(*playbackID))
	if err != nil {
		slog.Error("video: failed to re-host thumbnail", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to upload thumbnail")
		return
	}

	v, err := h.replaceThumbnail(r.Context(), videoID, userID, obj.URL, obj.Key)
	if err != nil {
		h.purgeObjects(obj.Key)
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "video not found")
			return
		}
		slog.Error("video: failed to save restored thumbnail", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not restore thumbnail")
		return
	}

	h.purgeObjects(derefString(oldKey))
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) replaceThumbnail(ctx context.Context, videoID, userID, url, key string) (Video, error) {
	var v Video
	err := h.db.QueryRow(ctx,
		`UPDATE videos AS v SET thumbnail_url = $1, thumbnail_key = $2, updated_at = now()
		 WHERE v.id = $3 AND v.user_id = $4
		 RETURNING `+videoColumns,
		url, key, videoID, userID,
	).Scan(v.scanFields()...)
	return v, err
}

type generateThumbnailRequest struct {
	Prompt string `json:"prompt"`
}

type jobResponse struct {
	Status string `json:"status"`
}

// GenerateThumbnail renders an AI thumbnail from a prompt in the background.
func (h *Handler) GenerateThumbnail(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "AI features are not enabled")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	var req generateThumbnailRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) < 10 {
		httputil.WriteError(w, http.StatusBadRequest, "prompt must be at least 10 characters")
		return
	}
	if msg := validate.Prompt(prompt); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var oldKey *string
	err := h.db.QueryRow(r.Context(),
		`SELECT thumbnail_key FROM videos WHERE id = $1 AND user_id = $2`,
		videoID, userID,
	).Scan(&oldKey)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to load video for thumbnail generation", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not start thumbnail generation")
		return
	}

	h.runJob("generate_thumbnail", jobTimeout, func(ctx context.Context) error {
		imageURL, err := h.generator.GenerateThumbnail(ctx, prompt)
		if err != nil {
			return fmt.Errorf("generate image for %s: %w", videoID, err)
		}
		obj, err := h.storage.UploadFromURL(ctx, thumbnailKey(videoID), imageURL)
		if err != nil {
			return fmt.Errorf("store generated thumbnail for %s: %w", videoID, err)
		}
		if _, err := h.replaceThumbnail(ctx, videoID, userID, obj.URL, obj.Key); err != nil {
			h.purgeObjects(obj.Key)
			return fmt.Errorf("save generated thumbnail for %s: %w", videoID, err)
		}
		h.purgeObjects(derefString(oldKey))
		slog.Info("video: generated thumbnail", "video_id", videoID)
		return nil
	})

	httputil.WriteJSON(w, http.StatusAccepted, jobResponse{Status: "queued"})
}
