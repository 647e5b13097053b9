package video

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/validate"
)

type createResponse struct {
	Video Video  `json:"video"`
	URL   string `json:"url"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	upload, err := h.mux.CreateUpload(r.Context(), userID)
	if err != nil {
		slog.Error("video: failed to create upload", "user_id", userID, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "could not create upload")
		return
	}

	var v Video
	err = h.db.QueryRow(r.Context(),
		`INSERT INTO videos AS v (user_id, title, mux_status, mux_upload_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+videoColumns,
		userID, defaultTitle, upload.Status, upload.ID,
	).Scan(v.scanFields()...)
	if err != nil {
		slog.Error("video: failed to insert video", "user_id", userID, "upload_id", upload.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not create video")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, createResponse{Video: v, URL: upload.URL})
}

// GetOne returns a video with its creator and engagement. Private videos
// are only visible to their owner.
func (h *Handler) GetOne(w http.ResponseWriter, r *http.Request) {
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	viewer := nullableUser(auth.UserIDFromContext(r.Context()))

	var d VideoDetail
	err := h.db.QueryRow(r.Context(),
		`SELECT `+videoColumns+`, `+creatorColumns+`, `+videoCountColumns+`,
		        (SELECT vr.type FROM video_reactions vr WHERE vr.video_id = v.id AND vr.user_id = $2)
		 FROM videos v
		 JOIN users u ON u.id = v.user_id
		 WHERE v.id = $1 AND (v.visibility = 'public' OR v.user_id = $2)`,
		videoID, viewer,
	).Scan(append(d.scanFields(), &d.ViewerReaction)...)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to load video", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load video")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, d)
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CategoryID  *string `json:"categoryId"`
	Visibility  *string `json:"visibility"`
}

// assignments validates the request and returns SET clauses with their args.
func (req updateRequest) assignments() ([]string, []any, string) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, nil, "title is required"
		}
		if msg := validate.Title(title); msg != "" {
			return nil, nil, msg
		}
		add("title", title)
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if msg := validate.Description(desc); msg != "" {
			return nil, nil, msg
		}
		add("description", optionalString(desc))
	}
	if req.CategoryID != nil {
		if *req.CategoryID != "" && !validate.UUID(*req.CategoryID) {
			return nil, nil, "invalid category"
		}
		add("category_id", optionalString(*req.CategoryID))
	}
	if req.Visibility != nil {
		if *req.Visibility != visibilityPrivate && *req.Visibility != visibilityPublic {
			return nil, nil, "visibility must be private or public"
		}
		add("visibility", *req.Visibility)
	}
	if len(sets) == 0 {
		return nil, nil, "no fields to update"
	}
	return sets, args, ""
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	var req updateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sets, args, msg := req.assignments()
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	args = append(args, videoID, userID)

	query := fmt.Sprintf(
		`UPDATE videos AS v SET %s, updated_at = now() WHERE v.id = $%d AND v.user_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), videoColumns)

	var v Video
	err := h.db.QueryRow(r.Context(), query, args...).Scan(v.scanFields()...)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if database.IsForeignKeyViolation(err) {
		httputil.WriteError(w, http.StatusBadRequest, "category not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to update video", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not update video")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	videoID, ok := uuidParam(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}

	var v Video
	err := h.db.QueryRow(r.Context(),
		`DELETE FROM videos AS v WHERE v.id = $1 AND v.user_id = $2 RETURNING `+videoColumns,
		videoID, userID,
	).Scan(v.scanFields()...)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("video: failed to delete video", "video_id", videoID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not delete video")
		return
	}

	h.counter.Invalidate(r.Context(), videoID)
	h.purgeObjects(v.objectKeys()...)
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(r.Context(), `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		slog.Error("video: failed to list categories", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not list categories")
		return
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not list categories")
			return
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not list categories")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, categories)
}
