package video

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var viewCols = []string{"user_id", "video_id", "country", "browser", "os", "created_at", "updated_at"}

func viewRows(country, browser, os *string) *pgxmock.Rows {
	return pgxmock.NewRows(viewCols).AddRow(testUserID, testVideoID, country, browser, os, testNow, testNow)
}

func recordView(h *Handler, userAgent, forwardedFor string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.With(withUser(testUserID)).Post("/api/videos/{id}/views", h.RecordView)

	req := httptest.NewRequest(http.MethodPost, "/api/videos/"+testVideoID+"/views", nil)
	req.Header.Set("User-Agent", userAgent)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestParseUserAgent(t *testing.T) {
	browser, os := parseUserAgent(chromeOnWindows)
	if browser != "Chrome" {
		t.Errorf("expected Chrome, got %q", browser)
	}
	if os != "Windows" {
		t.Errorf("expected Windows, got %q", os)
	}

	if b, o := parseUserAgent(""); b != "" || o != "" {
		t.Errorf("expected empty results for empty agent, got %q %q", b, o)
	}
}

func TestRecordView_FirstViewIsCreated(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)
	geo := &mockResolver{country: "NL"}
	h.SetCountryResolver(geo)

	mock.ExpectQuery(`SELECT user_id, video_id, country, browser, os, created_at, updated_at FROM video_views WHERE user_id = \$1 AND video_id = \$2`).
		WithArgs(testUserID, testVideoID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO video_views \(user_id, video_id, country, browser, os\)`).
		WithArgs(testUserID, testVideoID, strPtr("NL"), strPtr("Chrome"), strPtr("Windows")).
		WillReturnRows(viewRows(strPtr("NL"), strPtr("Chrome"), strPtr("Windows")))

	rec := recordView(h, chromeOnWindows, "203.0.113.9, 10.0.0.1")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if geo.addr != "203.0.113.9" {
		t.Errorf("expected country lookup on client ip, got %q", geo.addr)
	}
	expectMet(t, mock)
}

func TestRecordView_UnknownAgentStoresNulls(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`FROM video_views WHERE user_id = \$1 AND video_id = \$2`).
		WithArgs(testUserID, testVideoID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO video_views`).
		WithArgs(testUserID, testVideoID, (*string)(nil), (*string)(nil), (*string)(nil)).
		WillReturnRows(viewRows(nil, nil, nil))

	rec := recordView(h, "", "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	expectMet(t, mock)
}

func TestRecordView_RepeatViewReturnsExisting(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`FROM video_views WHERE user_id = \$1 AND video_id = \$2`).
		WithArgs(testUserID, testVideoID).
		WillReturnRows(viewRows(strPtr("DE"), strPtr("Firefox"), strPtr("Linux")))

	rec := recordView(h, chromeOnWindows, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	expectMet(t, mock)
}

func TestRecordView_ConcurrentInsertReturnsExisting(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`FROM video_views WHERE user_id = \$1 AND video_id = \$2`).
		WithArgs(testUserID, testVideoID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO video_views`).
		WithArgs(testUserID, testVideoID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(`FROM video_views WHERE user_id = \$1 AND video_id = \$2`).
		WithArgs(testUserID, testVideoID).
		WillReturnRows(viewRows(nil, strPtr("Chrome"), strPtr("Windows")))

	rec := recordView(h, chromeOnWindows, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	expectMet(t, mock)
}

func TestRecordView_UnknownVideo(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`FROM video_views`).
		WithArgs(testUserID, testVideoID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO video_views`).
		WithArgs(testUserID, testVideoID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(fkViolation)

	rec := recordView(h, chromeOnWindows, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	expectMet(t, mock)
}

func TestRecordView_LookupError(t *testing.T) {
	h, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery(`FROM video_views`).
		WithArgs(testUserID, testVideoID).
		WillReturnError(errors.New("db down"))

	rec := recordView(h, chromeOnWindows, "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	expectMet(t, mock)
}
