package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/httputil"
)

type transcriptSource struct {
	playbackID  *string
	trackID     *string
	trackStatus *string
}

func (s transcriptSource) ready() bool {
	return derefString(s.playbackID) != "" && derefString(s.trackID) != "" && derefString(s.trackStatus) == "ready"
}

func (h *Handler) GenerateTitle(w http.ResponseWriter, r *http.Request) {
	h.generateFromTranscript(w, r, "title", h.generatorTitle)
}

func (h *Handler) GenerateDescription(w http.ResponseWriter, r *http.Request) {
	h.generateFromTranscript(w, r, "description", h.generatorDescription)
}

func (h *Handler) generatorTitle(ctx context.Context, transcript string) (string, error) {
	return h.generator.GenerateTitle(ctx, transcript)
}

func (h *Handler) generatorDescription(ctx context.Context, transcript string) (string, error) {
	return h.generator.GenerateDescription(ctx, transcript)
}

// generateFromTranscript queues a job that feeds the video's subtitle track to
// gen and stores the result in column.
func (h *Handler) generateFromTranscript(w http.ResponseWriter, r *http.Request, column string, gen func(context.Context, string) (string, error)) {
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

	var src transcriptSource
	err := h.db.QueryRow(r.Context(),
		`SELECT mux_playback_id, mux_track_id, mux_track_status FROM videos WHERE id = $1 AND user_id = $2`,
		videoID, userID,
	).Scan(&src.playbackID, &src.trackID, &src.trackStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to load video for generation", "video_id", videoID, "field", column, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not start generation")
		return
	}
	if !src.ready() {
		httputil.WriteError(w, http.StatusBadRequest, "video has no transcript yet")
		return
	}

	playbackID, trackID := *src.playbackID, *src.trackID
	h.runJob("generate_"+column, jobTimeout, func(ctx context.Context) error {
		transcript, err := h.mux.FetchTranscript(ctx, playbackID, trackID)
		if err != nil {
			return fmt.Errorf("fetch transcript for %s: %w", videoID, err)
		}
		if transcript == "" {
			return fmt.Errorf("empty transcript for %s", videoID)
		}
		value, err := gen(ctx, transcript)
		if err != nil {
			return fmt.Errorf("generate %s for %s: %w", column, videoID, err)
		}
		// column is one of the two constants above, never user input.
		if _, err := h.db.Exec(ctx,
			`UPDATE videos SET `+column+` = $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
			value, videoID, userID,
		); err != nil {
			return fmt.Errorf("save %s for %s: %w", column, videoID, err)
		}
		slog.Info("video: generated metadata", "video_id", videoID, "field", column)
		return nil
	})

	httputil.WriteJSON(w, http.StatusAccepted, jobResponse{Status: "queued"})
}
