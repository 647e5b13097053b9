package video

import (
	"time"

	"github.com/newtube/newtube/internal/pagination"
)

const (
	visibilityPrivate = "private"
	visibilityPublic  = "public"

	reactionLike    = "like"
	reactionDislike = "dislike"

	defaultTitle = "Untitled Video"
)

// videoColumns selects a full video row aliased as v, in Video.scanFields order.
const videoColumns = `v.id, v.title, v.description, v.mux_status, v.mux_asset_id, v.mux_upload_id,
	v.mux_playback_id, v.mux_track_id, v.mux_track_status, v.thumbnail_url, v.thumbnail_key,
	v.preview_url, v.preview_key, v.duration, v.visibility, v.user_id, v.category_id,
	v.created_at, v.updated_at`

const creatorColumns = `u.id, u.name, u.image_url`

const videoCountColumns = `(SELECT count(*) FROM video_views vv WHERE vv.video_id = v.id),
	(SELECT count(*) FROM video_reactions vr WHERE vr.video_id = v.id AND vr.type = 'like'),
	(SELECT count(*) FROM video_reactions vr WHERE vr.video_id = v.id AND vr.type = 'dislike')`

type Video struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description"`
	MuxStatus      *string   `json:"muxStatus"`
	MuxAssetID     *string   `json:"muxAssetId"`
	MuxUploadID    *string   `json:"muxUploadId"`
	MuxPlaybackID  *string   `json:"muxPlaybackId"`
	MuxTrackID     *string   `json:"muxTrackId"`
	MuxTrackStatus *string   `json:"muxTrackStatus"`
	ThumbnailURL   *string   `json:"thumbnailUrl"`
	ThumbnailKey   *string   `json:"-"`
	PreviewURL     *string   `json:"previewUrl"`
	PreviewKey     *string   `json:"-"`
	Duration       int       `json:"duration"`
	Visibility     string    `json:"visibility"`
	UserID         string    `json:"userId"`
	CategoryID     *string   `json:"categoryId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (v *Video) scanFields() []any {
	return []any{
		&v.ID, &v.Title, &v.Description, &v.MuxStatus, &v.MuxAssetID, &v.MuxUploadID,
		&v.MuxPlaybackID, &v.MuxTrackID, &v.MuxTrackStatus, &v.ThumbnailURL, &v.ThumbnailKey,
		&v.PreviewURL, &v.PreviewKey, &v.Duration, &v.Visibility, &v.UserID, &v.CategoryID,
		&v.CreatedAt, &v.UpdatedAt,
	}
}

func (v Video) cursor() pagination.Cursor {
	return pagination.Cursor{ID: v.ID, UpdatedAt: v.UpdatedAt}
}

// objectKeys lists the stored images owned by the video.
func (v Video) objectKeys() []string {
	var keys []string
	for _, k := range []*string{v.ThumbnailKey, v.PreviewKey} {
		if k != nil && *k != "" {
			keys = append(keys, *k)
		}
	}
	return keys
}

type Creator struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

func (c *Creator) scanFields() []any {
	return []any{&c.ID, &c.Name, &c.ImageURL}
}

// VideoCard is a public video with its creator and engagement totals.
type VideoCard struct {
	Video
	User         Creator `json:"user"`
	ViewCount    int64   `json:"viewCount"`
	LikeCount    int64   `json:"likeCount"`
	DislikeCount int64   `json:"dislikeCount"`
}

func (c *VideoCard) scanFields() []any {
	fields := append(c.Video.scanFields(), c.User.scanFields()...)
	return append(fields, &c.ViewCount, &c.LikeCount, &c.DislikeCount)
}

func (c VideoCard) cursor() pagination.Cursor { return c.Video.cursor() }

type VideoDetail struct {
	VideoCard
	ViewerReaction *string `json:"viewerReaction"`
}

type StudioVideo struct {
	Video
	ViewCount    int64 `json:"viewCount"`
	CommentCount int64 `json:"commentCount"`
	LikeCount    int64 `json:"likeCount"`
}

func (s StudioVideo) cursor() pagination.Cursor { return s.Video.cursor() }

type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type View struct {
	UserID    string    `json:"userId"`
	VideoID   string    `json:"videoId"`
	Country   *string   `json:"country"`
	Browser   *string   `json:"browser"`
	OS        *string   `json:"os"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Reaction struct {
	UserID    string    `json:"userId"`
	TargetID  string    `json:"targetId"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReactionResult reports the row a toggle touched. Removed is true when the
// toggle cleared an existing reaction of the same type.
type ReactionResult struct {
	Reaction
	Removed bool `json:"removed"`
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	VideoID   string    `json:"videoId"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) scanFields() []any {
	return []any{&c.ID, &c.UserID, &c.VideoID, &c.Value, &c.CreatedAt, &c.UpdatedAt}
}

type CommentItem struct {
	Comment
	User           Creator `json:"user"`
	LikeCount      int64   `json:"likeCount"`
	DislikeCount   int64   `json:"dislikeCount"`
	ViewerReaction *string `json:"viewerReaction"`
}

func (c CommentItem) cursor() pagination.Cursor {
	return pagination.Cursor{ID: c.ID, UpdatedAt: c.UpdatedAt}
}

type CommentPage struct {
	TotalCount int64 `json:"totalCount"`
	pagination.Page[CommentItem]
}

func validReaction(t string) bool {
	return t == reactionLike || t == reactionDislike
}

// nullableUser maps the anonymous viewer to SQL NULL.
func nullableUser(userID string) any {
	if userID == "" {
		return nil
	}
	return userID
}
