package mux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateUpload(t *testing.T) {
	var got createUploadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/video/v1/uploads" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "token-id" || pass != "token-secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"upload-1","url":"https://storage.example.com/put","status":"waiting"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL+"/", "token-id", "token-secret")
	upload, err := client.CreateUpload(context.Background(), "user-uuid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if upload.ID != "upload-1" || upload.Status != "waiting" || upload.URL == "" {
		t.Errorf("unexpected upload %+v", upload)
	}
	if got.NewAssetSettings.Passthrough != "user-uuid-1" {
		t.Errorf("expected passthrough user-uuid-1, got %q", got.NewAssetSettings.Passthrough)
	}
	if len(got.NewAssetSettings.PlaybackPolicy) != 1 || got.NewAssetSettings.PlaybackPolicy[0] != "public" {
		t.Errorf("expected public playback policy, got %v", got.NewAssetSettings.PlaybackPolicy)
	}
	if got.CORSOrigin != "*" {
		t.Errorf("expected cors origin *, got %q", got.CORSOrigin)
	}
	subs := got.NewAssetSettings.Input[0].GeneratedSubtitles
	if len(subs) != 1 || subs[0].Language != "en" || subs[0].Name != "English" {
		t.Errorf("expected English generated subtitles, got %+v", subs)
	}
}

func TestCreateUpload_SubtitleLanguage(t *testing.T) {
	var got createUploadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"data":{"id":"upload-2","url":"https://storage.example.com/put","status":"waiting"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "id", "secret")
	if err := client.SetSubtitleLanguage("ja"); err == nil {
		t.Fatal("expected unsupported language to be rejected")
	}
	if err := client.SetSubtitleLanguage("nl"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.CreateUpload(context.Background(), "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subs := got.NewAssetSettings.Input[0].GeneratedSubtitles
	if len(subs) != 1 || subs[0].Language != "nl" || subs[0].Name != "Dutch" {
		t.Errorf("expected Dutch generated subtitles, got %+v", subs)
	}
}

func TestCreateUpload_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"unauthorized"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "id", "secret").CreateUpload(context.Background(), "u")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestCreateUpload_NotConfigured(t *testing.T) {
	_, err := New("", "", "").CreateUpload(context.Background(), "u")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFetchTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/play-1/text/track-1.txt" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("  hello and welcome to the video\n"))
	}))
	defer srv.Close()

	client := New("", "id", "secret")
	client.streamURL = srv.URL

	text, err := client.FetchTranscript(context.Background(), "play-1", "track-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello and welcome to the video" {
		t.Errorf("unexpected transcript %q", text)
	}
}

func TestFetchTranscript_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := New("", "id", "secret")
	client.streamURL = srv.URL

	if _, err := client.FetchTranscript(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestImageURLs(t *testing.T) {
	if got := ThumbnailURL("abc"); got != "https://image.mux.com/abc/thumbnail.png" {
		t.Errorf("unexpected thumbnail url %q", got)
	}
	if got := PreviewURL("abc"); got != "https://image.mux.com/abc/animated.gif" {
		t.Errorf("unexpected preview url %q", got)
	}
}
