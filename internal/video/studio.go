package video

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/pagination"
)

func (h *Handler) StudioGetOne(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	var v Video
	err := h.db.QueryRow(r.Context(),
		`SELECT `+videoColumns+` FROM videos v WHERE v.id = $1 AND v.user_id = $2`,
		videoID, userID,
	).Scan(v.scanFields()...)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("studio: failed to load video", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load video")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, v)
}

// StudioList pages through the caller's own videos, private ones included.
func (h *Handler) StudioList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	args := []any{userID}
	where := "v.user_id = $1"
	if cursor != nil {
		pred, predArgs := pagination.Predicate("v", len(args)+1, *cursor)
		where += " AND " + pred
		args = append(args, predArgs...)
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`SELECT %s,
	        (SELECT count(*) FROM video_views vv WHERE vv.video_id = v.id),
	        (SELECT count(*) FROM comments c WHERE c.video_id = v.id),
	        (SELECT count(*) FROM video_reactions vr WHERE vr.video_id = v.id AND vr.type = 'like')
	 FROM videos v
	 WHERE %s
	 ORDER BY %s
	 LIMIT $%d`, videoColumns, where, pagination.OrderBy("v"), len(args))

	rows, err := h.db.Query(r.Context(), query, args...)
	if err != nil {
		slog.Error("studio: failed to list videos", "user_id", userID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not list videos")
		return
	}
	defer rows.Close()

	var items []StudioVideo
	for rows.Next() {
		var s StudioVideo
		fields := append(s.Video.scanFields(), &s.ViewCount, &s.CommentCount, &s.LikeCount)
		if err := rows.Scan(fields...); err != nil {
			slog.Error("studio: failed to scan video", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "could not list videos")
			return
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not list videos")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.Trim(items, limit, StudioVideo.cursor))
}
