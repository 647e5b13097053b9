package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/pagination"
	"github.com/newtube/newtube/internal/validate"
)

const commentColumns = `c.id, c.user_id, c.video_id, c.value, c.created_at, c.updated_at`

type postCommentRequest struct {
	Value string `json:"value"`
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	var req postCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value := validate.PlainText(req.Value)
	if value == "" {
		httputil.WriteError(w, http.StatusBadRequest, "comment is required")
		return
	}
	if msg := validate.Comment(value); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var c Comment
	err := h.db.QueryRow(r.Context(),
		`INSERT INTO comments AS c (user_id, video_id, value) VALUES ($1, $2, $3) RETURNING `+commentColumns,
		userID, videoID, value,
	).Scan(c.scanFields()...)
	if database.IsForeignKeyViolation(err) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to insert comment", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not post comment")
		return
	}

	h.counter.Invalidate(r.Context(), videoID)
	httputil.WriteJSON(w, http.StatusCreated, c)
}

// RemoveComment deletes a comment written by the caller.
func (h *Handler) RemoveComment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	commentID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "comment not found")
		return
	}

	var c Comment
	err := h.db.QueryRow(r.Context(),
		`DELETE FROM comments AS c WHERE c.id = $1 AND c.user_id = $2 RETURNING `+commentColumns,
		commentID, userID,
	).Scan(c.scanFields()...)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "comment not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to delete comment", "comment_id", commentID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not delete comment")
		return
	}

	h.counter.Invalidate(r.Context(), c.VideoID)
	httputil.WriteJSON(w, http.StatusOK, c)
}

// ListComments returns one keyset page of a video's comments together with
// the video's total comment count.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	viewer := nullableUser(auth.UserIDFromContext(r.Context()))

	var page CommentPage
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		n, err := h.commentCount(ctx, videoID)
		page.TotalCount = n
		return err
	})
	g.Go(func() error {
		items, err := h.commentPage(ctx, videoID, viewer, cursor, limit)
		page.Page = pagination.Trim(items, limit, CommentItem.cursor)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("video: failed to list comments", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not list comments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) commentCount(ctx context.Context, videoID string) (int64, error) {
	n, gen, ok := h.counter.GetCount(ctx, videoID)
	if ok {
		return n, nil
	}
	if err := h.db.QueryRow(ctx, `SELECT count(*) FROM comments WHERE video_id = $1`, videoID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	h.counter.SetCount(ctx, videoID, n, gen)
	return n, nil
}

func (h *Handler) commentPage(ctx context.Context, videoID string, viewer any, cursor *pagination.Cursor, limit int) ([]CommentItem, error) {
	args := []any{videoID, viewer}
	where := "c.video_id = $1"
	if cursor != nil {
		pred, predArgs := pagination.Predicate("c", len(args)+1, *cursor)
		where += " AND " + pred
		args = append(args, predArgs...)
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`SELECT %s, %s,
	        (SELECT count(*) FROM comment_reactions cr WHERE cr.comment_id = c.id AND cr.type = 'like'),
	        (SELECT count(*) FROM comment_reactions cr WHERE cr.comment_id = c.id AND cr.type = 'dislike'),
	        (SELECT cr.type FROM comment_reactions cr WHERE cr.comment_id = c.id AND cr.user_id = $2)
	 FROM comments c
	 JOIN users u ON u.id = c.user_id
	 WHERE %s
	 ORDER BY %s
	 LIMIT $%d`, commentColumns, creatorColumns, where, pagination.OrderBy("c"), len(args))

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var items []CommentItem
	for rows.Next() {
		var item CommentItem
		fields := append(item.Comment.scanFields(), item.User.scanFields()...)
		fields = append(fields, &item.LikeCount, &item.DislikeCount, &item.ViewerReaction)
		if err := rows.Scan(fields...); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// pageParams parses cursor and limit, writing a 400 when either is invalid.
func pageParams(w http.ResponseWriter, r *http.Request) (*pagination.Cursor, int, bool) {
	q := r.URL.Query()
	limit, err := pagination.ParseLimit(q.Get("limit"), pagination.DefaultLimit)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	cursor, err := pagination.Decode(q.Get("cursor"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	return cursor, limit, true
}
