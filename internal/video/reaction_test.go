package video

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

var reactionCols = []string{"user_id", "target_id", "type", "created_at", "updated_at"}

func reactionRows(targetID, kind string) *pgxmock.Rows {
	return pgxmock.NewRows(reactionCols).AddRow(testUserID, targetID, kind, testNow, testNow)
}

func decodeReaction(t *testing.T, body []byte) ReactionResult {
	t.Helper()
	var res ReactionResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode reaction: %v", err)
	}
	return res
}

func TestReactToVideo_AddsReaction(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`DELETE FROM video_reactions WHERE user_id = \$1 AND video_id = \$2 AND type = \$3`).
		WithArgs(testUserID, testVideoID, "like").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO video_reactions \(user_id, video_id, type\) VALUES \(\$1, \$2, \$3\)\s+ON CONFLICT \(user_id, video_id\) DO UPDATE SET type = EXCLUDED.type`).
		WithArgs(testUserID, testVideoID, "like").
		WillReturnRows(reactionRows(testVideoID, "like"))

	rec := serve(http.MethodPost, "/api/videos/{id}/reactions/{type}", "/api/videos/"+testVideoID+"/reactions/like", h.ReactToVideo, testUserID, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeReaction(t, rec.Body.Bytes())
	if res.Removed || res.Type != "like" || res.TargetID != testVideoID {
		t.Errorf("unexpected result %+v", res)
	}
	expectMet(t, mock)
}

func TestReactToVideo_SameTypeRemoves(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`DELETE FROM video_reactions`).
		WithArgs(testUserID, testVideoID, "dislike").
		WillReturnRows(reactionRows(testVideoID, "dislike"))

	rec := serve(http.MethodPost, "/api/videos/{id}/reactions/{type}", "/api/videos/"+testVideoID+"/reactions/dislike", h.ReactToVideo, testUserID, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if res := decodeReaction(t, rec.Body.Bytes()); !res.Removed {
		t.Errorf("expected removed reaction, got %+v", res)
	}
	expectMet(t, mock)
}

func TestReactToVideo_InvalidType(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	rec := serve(http.MethodPost, "/api/videos/{id}/reactions/{type}", "/api/videos/"+testVideoID+"/reactions/love", h.ReactToVideo, testUserID, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := parseErrorResponse(t, rec); msg != "reaction must be like or dislike" {
		t.Errorf("unexpected error %q", msg)
	}
	expectMet(t, mock)
}

func TestReactToVideo_UnknownVideo(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`DELETE FROM video_reactions`).
		WithArgs(testUserID, testVideoID, "like").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO video_reactions`).
		WithArgs(testUserID, testVideoID, "like").
		WillReturnError(fkViolation)

	rec := serve(http.MethodPost, "/api/videos/{id}/reactions/{type}", "/api/videos/"+testVideoID+"/reactions/like", h.ReactToVideo, testUserID, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := parseErrorResponse(t, rec); msg != "video not found" {
		t.Errorf("unexpected error %q", msg)
	}
	expectMet(t, mock)
}

func TestReactToComment_SwitchesType(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`DELETE FROM comment_reactions WHERE user_id = \$1 AND comment_id = \$2 AND type = \$3`).
		WithArgs(testUserID, testCommentID, "dislike").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO comment_reactions \(user_id, comment_id, type\)`).
		WithArgs(testUserID, testCommentID, "dislike").
		WillReturnRows(reactionRows(testCommentID, "dislike"))

	rec := serve(http.MethodPost, "/api/comments/{id}/{type}", "/api/comments/"+testCommentID+"/dislike", h.ReactToComment, testUserID, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if res := decodeReaction(t, rec.Body.Bytes()); res.Removed || res.Type != "dislike" {
		t.Errorf("unexpected result %+v", res)
	}
	expectMet(t, mock)
}

func TestReactToComment_UnknownComment(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`DELETE FROM comment_reactions`).
		WithArgs(testUserID, testCommentID, "like").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO comment_reactions`).
		WithArgs(testUserID, testCommentID, "like").
		WillReturnError(fkViolation)

	rec := serve(http.MethodPost, "/api/comments/{id}/{type}", "/api/comments/"+testCommentID+"/like", h.ReactToComment, testUserID, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := parseErrorResponse(t, rec); msg != "comment not found" {
		t.Errorf("unexpected error %q", msg)
	}
	expectMet(t, mock)
}
