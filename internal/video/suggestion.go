package video

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/pagination"
)

// Suggestions pages through public videos related to the given one: the
// same category when it has one, otherwise everything.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	var categoryID *string
	err := h.db.QueryRow(r.Context(), `SELECT category_id FROM videos WHERE id = $1`, videoID).Scan(&categoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to load suggestion source", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load suggestions")
		return
	}

	args := []any{videoID}
	where := "v.id <> $1 AND v.visibility = 'public'"
	if categoryID != nil {
		args = append(args, *categoryID)
		where += fmt.Sprintf(" AND v.category_id = $%d", len(args))
	}
	if cursor != nil {
		pred, predArgs := pagination.Predicate("v", len(args)+1, *cursor)
		where += " AND " + pred
		args = append(args, predArgs...)
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`SELECT %s, %s, %s
	 FROM videos v
	 JOIN users u ON u.id = v.user_id
	 WHERE %s
	 ORDER BY %s
	 LIMIT $%d`, videoColumns, creatorColumns, videoCountColumns, where, pagination.OrderBy("v"), len(args))

	rows, err := h.db.Query(r.Context(), query, args...)
	if err != nil {
		slog.Error("video: failed to query suggestions", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load suggestions")
		return
	}
	defer rows.Close()

	var items []VideoCard
	for rows.Next() {
		var card VideoCard
		if err := rows.Scan(card.scanFields()...); err != nil {
			slog.Error("video: failed to scan suggestion", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "could not load suggestions")
			return
		}
		items = append(items, card)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load suggestions")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.Trim(items, limit, VideoCard.cursor))
}
