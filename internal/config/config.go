package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/newtube/newtube/internal/languages"
)

type Config struct {
	Port    string
	BaseURL string

	DatabaseURL string

	AuthJWTSecret     string
	AuthWebhookSecret string

	MuxTokenID       string
	MuxTokenSecret   string
	MuxWebhookSecret string
	MuxAPIURL        string
	SubtitleLanguage string

	S3Endpoint       string
	S3PublicEndpoint string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3Region         string

	RedisURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GeoIPDBPath string

	APIDocsEnabled bool

	Log LogConfig
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var defaults = map[string]any{
	"PORT":              "8080",
	"BASE_URL":          "http://localhost:8080",
	"MUX_API_URL":       "https://api.mux.com",
	"SUBTITLE_LANGUAGE": "en",
	"S3_ENDPOINT":       "http://localhost:3900",
	"S3_BUCKET":         "newtube",
	"S3_REGION":         "eu-central-1",
	"OPENAI_MODEL":      "gpt-4o-mini",
	"LOG_LEVEL":         "info",
	"LOG_MAX_SIZE_MB":   100,
	"LOG_MAX_BACKUPS":   3,
	"LOG_MAX_AGE_DAYS":  7,
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; real environment variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("config: failed to load .env file", "error", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		Port:              v.GetString("PORT"),
		BaseURL:           strings.TrimRight(v.GetString("BASE_URL"), "/"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		AuthJWTSecret:     v.GetString("AUTH_JWT_SECRET"),
		AuthWebhookSecret: v.GetString("AUTH_WEBHOOK_SECRET"),
		MuxTokenID:        v.GetString("MUX_TOKEN_ID"),
		MuxTokenSecret:    v.GetString("MUX_TOKEN_SECRET"),
		MuxWebhookSecret:  v.GetString("MUX_WEBHOOK_SECRET"),
		MuxAPIURL:         v.GetString("MUX_API_URL"),
		SubtitleLanguage:  v.GetString("SUBTITLE_LANGUAGE"),
		S3Endpoint:        v.GetString("S3_ENDPOINT"),
		S3PublicEndpoint:  v.GetString("S3_PUBLIC_ENDPOINT"),
		S3Bucket:          v.GetString("S3_BUCKET"),
		S3AccessKey:       v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:       v.GetString("S3_SECRET_KEY"),
		S3Region:          v.GetString("S3_REGION"),
		RedisURL:          v.GetString("REDIS_URL"),
		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:     v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		GeoIPDBPath:       v.GetString("GEOIP_DB_PATH"),
		APIDocsEnabled:    v.GetBool("API_DOCS_ENABLED"),
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.AuthJWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	if !languages.IsValidSubtitleLanguage(cfg.SubtitleLanguage) {
		return nil, fmt.Errorf("SUBTITLE_LANGUAGE %q is not supported", cfg.SubtitleLanguage)
	}

	return cfg, nil
}

func (c *Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}
