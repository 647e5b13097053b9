package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/mux"
	"github.com/newtube/newtube/internal/storage"
	"github.com/newtube/newtube/internal/webhook"
)

const (
	maxWebhookBodyBytes = 1 << 20

	eventAssetCreated    = "video.asset.created"
	eventAssetReady      = "video.asset.ready"
	eventAssetErrored    = "video.asset.errored"
	eventAssetDeleted    = "video.asset.deleted"
	eventAssetTrackReady = "video.asset.track.ready"
)

type muxEvent struct {
	Type string       `json:"type"`
	Data muxEventData `json:"data"`
}

type muxPlaybackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

type muxEventData struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	UploadID    string          `json:"upload_id"`
	AssetID     string          `json:"asset_id"`
	PlaybackIDs []muxPlaybackID `json:"playback_ids"`
	Duration    *float64        `json:"duration"`
}

// durationMillis converts the provider's fractional seconds to whole
// milliseconds.
func (d muxEventData) durationMillis() int {
	if d.Duration == nil {
		return 0
	}
	return int(math.Round(*d.Duration * 1000))
}

// webhookError carries the response for a rejected delivery.
type webhookError struct {
	status  int
	message string
}

func (e *webhookError) Error() string { return e.message }

func badRequest(msg string) error { return &webhookError{status: http.StatusBadRequest, message: msg} }

// Webhook applies Mux asset lifecycle events to the matching video row.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.muxWebhookSecret == "" {
		slog.Error("mux webhook: MUX_WEBHOOK_SECRET is not set")
		httputil.WriteError(w, http.StatusInternalServerError, "MUX_WEBHOOK_SECRET is not set")
		return
	}

	signature := r.Header.Get("Mux-Signature")
	if signature == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "No signature found")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := webhook.VerifyMuxSignature(signature, body, h.muxWebhookSecret, h.now(), h.webhookTolerance); err != nil {
		slog.Warn("mux webhook: signature rejected", "error", err)
		httputil.WriteError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event muxEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.applyMuxEvent(r.Context(), event); err != nil {
		var whErr *webhookError
		if errors.As(err, &whErr) {
			httputil.WriteError(w, whErr.status, whErr.message)
			return
		}
		slog.Error("mux webhook: failed to apply event", "type", event.Type, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) applyMuxEvent(ctx context.Context, event muxEvent) error {
	data := event.Data
	switch event.Type {
	case eventAssetCreated:
		if data.UploadID == "" {
			return badRequest("No upload_id found")
		}
		_, err := h.db.Exec(ctx,
			`UPDATE videos SET mux_asset_id = $1, mux_status = $2 WHERE mux_upload_id = $3`,
			data.ID, data.Status, data.UploadID)
		return err

	case eventAssetReady:
		return h.applyAssetReady(ctx, data)

	case eventAssetErrored:
		if data.UploadID == "" {
			return badRequest("No upload_id found")
		}
		_, err := h.db.Exec(ctx,
			`UPDATE videos SET mux_status = $1 WHERE mux_upload_id = $2`,
			data.Status, data.UploadID)
		return err

	case eventAssetDeleted:
		if data.UploadID == "" {
			return badRequest("No upload_id found")
		}
		var thumbKey, previewKey *string
		err := h.db.QueryRow(ctx,
			`DELETE FROM videos WHERE mux_upload_id = $1 RETURNING thumbnail_key, preview_key`,
			data.UploadID,
		).Scan(&thumbKey, &previewKey)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		h.purgeObjects(derefString(thumbKey), derefString(previewKey))
		return nil

	case eventAssetTrackReady:
		if data.AssetID == "" {
			return badRequest("No asset_id found")
		}
		_, err := h.db.Exec(ctx,
			`UPDATE videos SET mux_track_status = $1, mux_track_id = $2, mux_asset_id = $3 WHERE mux_asset_id = $3`,
			data.Status, data.ID, data.AssetID)
		return err

	default:
		slog.Debug("mux webhook: ignoring event", "type", event.Type)
		return nil
	}
}

// applyAssetReady re-hosts the provider's images and records the playable
// asset. A redelivery for a playback id that is already hosted only refreshes
// status and duration, so thumbnails set since then survive. Images replaced
// by a new upload are purged once the row points at the new ones.
func (h *Handler) applyAssetReady(ctx context.Context, data muxEventData) error {
	if data.UploadID == "" {
		return badRequest("No upload_id found")
	}
	if len(data.PlaybackIDs) == 0 || data.PlaybackIDs[0].ID == "" {
		return badRequest("No playback_id found")
	}
	playbackID := data.PlaybackIDs[0].ID

	var currentPlaybackID, currentThumbKey, currentPreviewKey *string
	err := h.db.QueryRow(ctx,
		`SELECT mux_playback_id, thumbnail_key, preview_key FROM videos WHERE mux_upload_id = $1`,
		data.UploadID,
	).Scan(&currentPlaybackID, &currentThumbKey, &currentPreviewKey)
	if errors.Is(err, pgx.ErrNoRows) {
		slog.Warn("mux webhook: no video for upload", "upload_id", data.UploadID)
		return nil
	}
	if err != nil {
		return err
	}

	if derefString(currentPlaybackID) == playbackID && currentThumbKey != nil && currentPreviewKey != nil {
		_, err := h.db.Exec(ctx,
			`UPDATE videos SET mux_status = $1, mux_asset_id = $2, duration = $3 WHERE mux_upload_id = $4`,
			data.Status, data.ID, data.durationMillis(), data.UploadID)
		return err
	}

	var thumb, preview storage.Object
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		thumb, err = h.storage.UploadFromURL(gctx, thumbnailKey(playbackID), mux.ThumbnailURL(playbackID))
		return err
	})
	g.Go(func() error {
		var err error
		preview, err = h.storage.UploadFromURL(gctx, previewKey(playbackID), mux.PreviewURL(playbackID))
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("mux webhook: failed to re-host images", "playback_id", playbackID, "error", err)
		h.purgeObjects(thumb.Key, preview.Key)
		return &webhookError{status: http.StatusInternalServerError, message: "Failed to upload thumbnail or preview"}
	}

	var oldThumbKey, oldPreviewKey *string
	err = h.db.QueryRow(ctx,
		`WITH old AS (
			SELECT id, thumbnail_key, preview_key FROM videos WHERE mux_upload_id = $9 FOR UPDATE
		 )
		 UPDATE videos AS v
		 SET mux_status = $1, mux_playback_id = $2, mux_asset_id = $3,
		     thumbnail_url = $4, thumbnail_key = $5, preview_url = $6, preview_key = $7,
		     duration = $8
		 FROM old
		 WHERE v.id = old.id
		 RETURNING old.thumbnail_key, old.preview_key`,
		data.Status, playbackID, data.ID,
		thumb.URL, thumb.Key, preview.URL, preview.Key,
		data.durationMillis(), data.UploadID,
	).Scan(&oldThumbKey, &oldPreviewKey)
	if errors.Is(err, pgx.ErrNoRows) {
		slog.Warn("mux webhook: video removed during re-hosting", "upload_id", data.UploadID)
		h.purgeObjects(thumb.Key, preview.Key)
		return nil
	}
	if err != nil {
		h.purgeObjects(thumb.Key, preview.Key)
		return err
	}
	h.purgeObjects(derefString(oldThumbKey), derefString(oldPreviewKey))
	return nil
}
