// Package mux talks to the Mux video API.
package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newtube/newtube/internal/languages"
)

const (
	DefaultAPIURL    = "https://api.mux.com"
	DefaultImageURL  = "https://image.mux.com"
	DefaultStreamURL = "https://stream.mux.com"

	maxTranscriptBytes = 1 << 20
)

var ErrNotConfigured = errors.New("mux credentials not configured")

type Client struct {
	apiURL      string
	streamURL   string
	tokenID     string
	tokenSecret string
	subtitles   languages.Language
	http        *http.Client
}

func New(apiURL, tokenID, tokenSecret string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:      strings.TrimRight(apiURL, "/"),
		streamURL:   DefaultStreamURL,
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
		subtitles:   languages.Language{Code: languages.Default, Name: languages.LanguageName(languages.Default)},
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// SetSubtitleLanguage picks the language Mux transcribes new uploads in.
func (c *Client) SetSubtitleLanguage(code string) error {
	lang, err := languages.Subtitle(code)
	if err != nil {
		return err
	}
	c.subtitles = lang
	return nil
}

// Upload is a direct upload slot. The browser PUTs the file to URL.
type Upload struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

type generatedSubtitle struct {
	Language string `json:"language_code"`
	Name     string `json:"name"`
}

type inputSettings struct {
	GeneratedSubtitles []generatedSubtitle `json:"generated_subtitles"`
}

type newAssetSettings struct {
	Passthrough    string          `json:"passthrough"`
	PlaybackPolicy []string        `json:"playback_policy"`
	Input          []inputSettings `json:"input"`
}

type createUploadRequest struct {
	NewAssetSettings newAssetSettings `json:"new_asset_settings"`
	CORSOrigin       string           `json:"cors_origin"`
}

// CreateUpload opens a direct upload whose asset carries passthrough and gets
// subtitles generated in the configured language.
func (c *Client) CreateUpload(ctx context.Context, passthrough string) (*Upload, error) {
	if c.tokenID == "" || c.tokenSecret == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(createUploadRequest{
		NewAssetSettings: newAssetSettings{
			Passthrough:    passthrough,
			PlaybackPolicy: []string{"public"},
			Input: []inputSettings{{
				GeneratedSubtitles: []generatedSubtitle{{Language: c.subtitles.Code, Name: c.subtitles.Name}},
			}},
		},
		CORSOrigin: "*",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/video/v1/uploads", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("mux API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data Upload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if result.Data.ID == "" || result.Data.URL == "" {
		return nil, errors.New("mux API returned an incomplete upload")
	}
	return &result.Data, nil
}

// FetchTranscript downloads the plain-text rendition of a text track.
func (c *Client) FetchTranscript(ctx context.Context, playbackID, trackID string) (string, error) {
	url := fmt.Sprintf("%s/%s/text/%s.txt", c.streamURL, playbackID, trackID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript fetch returned status %d", resp.StatusCode)
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

func ThumbnailURL(playbackID string) string {
	return DefaultImageURL + "/" + playbackID + "/thumbnail.png"
}

func PreviewURL(playbackID string) string {
	return DefaultImageURL + "/" + playbackID + "/animated.gif"
}
