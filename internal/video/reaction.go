package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/httputil"
)

// reactionTable names a reactions table keyed on (user_id, column).
type reactionTable struct {
	table  string
	column string
	target string
}

var (
	videoReactions   = reactionTable{table: "video_reactions", column: "video_id", target: "video"}
	commentReactions = reactionTable{table: "comment_reactions", column: "comment_id", target: "comment"}
)

// toggle removes the caller's reaction when it already has type kind, and
// otherwise creates it or switches the existing reaction to kind.
func (t reactionTable) toggle(ctx context.Context, db database.DBTX, userID, targetID, kind string) (ReactionResult, error) {
	returning := fmt.Sprintf("RETURNING user_id, %s, type, created_at, updated_at", t.column)

	var res ReactionResult
	fields := []any{&res.UserID, &res.TargetID, &res.Type, &res.CreatedAt, &res.UpdatedAt}

	err := db.QueryRow(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND %s = $2 AND type = $3 %s`, t.table, t.column, returning),
		userID, targetID, kind,
	).Scan(fields...)
	if err == nil {
		res.Removed = true
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return res, err
	}

	err = db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %[1]s (user_id, %[2]s, type) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, %[2]s) DO UPDATE SET type = EXCLUDED.type, updated_at = now()
		 %[3]s`, t.table, t.column, returning),
		userID, targetID, kind,
	).Scan(fields...)
	return res, err
}

func (h *Handler) ReactToVideo(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, videoReactions)
}

func (h *Handler) ReactToComment(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, commentReactions)
}

func (h *Handler) react(w http.ResponseWriter, r *http.Request, t reactionTable) {
	userID := auth.UserIDFromContext(r.Context())
	targetID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, t.target+" not found")
		return
	}
	kind := chi.URLParam(r, "type")
	if !validReaction(kind) {
		httputil.WriteError(w, http.StatusBadRequest, "reaction must be like or dislike")
		return
	}

	res, err := t.toggle(r.Context(), h.db, userID, targetID, kind)
	if database.IsForeignKeyViolation(err) {
		httputil.WriteError(w, http.StatusNotFound, t.target+" not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to toggle reaction", "target", t.target, "target_id", targetID, "type", kind, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not save reaction")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
